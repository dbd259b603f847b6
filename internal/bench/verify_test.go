package bench

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity(x float32) float32 { return x }

func TestVerifier_Pass(t *testing.T) {
	input := []float32{0.1, 0.2, 0.3, 0.4}

	t.Run("exact match passes at zero tolerance", func(t *testing.T) {
		v := Verifier{Tolerance: 0}
		assert.NoError(t, v.Verify(input, input, identity))
	})

	t.Run("within tolerance", func(t *testing.T) {
		v := Verifier{Tolerance: 1e-3}
		sample := []float32{0.1005, 0.2, 0.3, 0.4}
		assert.NoError(t, v.Verify(sample, input, identity))
	})

	t.Run("transform applied to input", func(t *testing.T) {
		v := Verifier{Tolerance: DefaultTolerance}
		double := func(x float32) float32 { return 2 * x }
		sample := []float32{0.2, 0.4, 0.6, 0.8}
		assert.NoError(t, v.Verify(sample, input, double))
	})

	t.Run("shorter sample checks a prefix", func(t *testing.T) {
		v := Verifier{Tolerance: 0}
		assert.NoError(t, v.Verify(input[:2], input, identity))
	})

	t.Run("empty sample passes", func(t *testing.T) {
		v := Verifier{Tolerance: 0}
		assert.NoError(t, v.Verify(nil, input, identity))
	})
}

func TestVerifier_Fail(t *testing.T) {
	input := []float32{0.1, 0.2, 0.3, 0.4}
	v := Verifier{Tolerance: DefaultTolerance}

	sample := []float32{0.1, 0.2, 0.31, 0.4}
	err := v.Verify(sample, input, identity)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVerification)
	assert.Contains(t, err.Error(), "element 2")
}

func TestVerifier_NilTransformSkips(t *testing.T) {
	v := Verifier{Tolerance: 0}
	assert.NoError(t, v.Verify([]float32{99}, []float32{1}, nil))
}

func TestVerifier_SampleLongerThanInput(t *testing.T) {
	v := Verifier{Tolerance: 0}
	err := v.Verify([]float32{1, 2}, []float32{1}, identity)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrVerification)
}
