package bench

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fxnlabs/clbench/internal/compute"
	"github.com/fxnlabs/clbench/internal/datagen"
	"github.com/fxnlabs/clbench/kernels"
)

func referenceDevice(t *testing.T) compute.Device {
	t.Helper()
	_, devices, err := compute.AllDevices(compute.NewCPURuntime(zap.NewNop()))
	require.NoError(t, err)
	require.NotEmpty(t, devices)
	return devices[0]
}

func TestRunner_VectorBenchmark(t *testing.T) {
	dev := referenceDevice(t)
	runner := NewRunner(zap.NewNop())
	data := datagen.New(1, 0, 1).Floats(10_000)

	res, err := runner.RunDevice(context.Background(), dev, VectorOps(), data)
	require.NoError(t, err)
	assert.Equal(t, dev.Name(), res.Device)
	require.Len(t, res.Variants, 2)

	for _, vr := range res.Variants {
		assert.NoError(t, vr.Err, vr.Variant)
		assert.Equal(t, len(data), vr.Elements, vr.Variant)
		assert.Greater(t, vr.Elapsed.Nanoseconds(), int64(0), vr.Variant)
		assert.Zero(t, vr.Flops, vr.Variant)
	}
	assert.Equal(t, "Range Based", res.Variants[0].Variant)
	assert.Equal(t, "Element Based", res.Variants[1].Variant)
}

func TestRunner_FourOpsBenchmark(t *testing.T) {
	dev := referenceDevice(t)
	runner := NewRunner(zap.NewNop())
	data := datagen.New(1, 0, 1).Floats(4_096)

	res, err := runner.RunDevice(context.Background(), dev, FourOps(), data)
	require.NoError(t, err)
	require.Len(t, res.Variants, 1)

	vr := res.Variants[0]
	assert.NoError(t, vr.Err)
	assert.Equal(t, int64(compute.FourOpsPerElement)*int64(len(data)), vr.Flops)
}

func TestRunner_VerificationFailureIsRecoverable(t *testing.T) {
	dev := referenceDevice(t)
	runner := NewRunner(zap.NewNop())
	data := datagen.New(1, 0, 1).Floats(1_000)

	// Expected transform deliberately disagrees with the kernel for the
	// first variant; the second still runs and passes.
	bm := VectorOps()
	bm.Variants[0].Expected = func(x float32) float32 { return x + 1 }

	res, err := runner.RunDevice(context.Background(), dev, bm, data)
	require.NoError(t, err, "verification failure must not abort the device pass")
	require.Len(t, res.Variants, 2)
	assert.ErrorIs(t, res.Variants[0].Err, ErrVerification)
	assert.NoError(t, res.Variants[1].Err)
}

func TestRunner_NilExpectedSkipsVerification(t *testing.T) {
	dev := referenceDevice(t)
	runner := NewRunner(zap.NewNop())
	data := datagen.New(1, 0, 1).Floats(1_000)

	bm := VectorOps()
	bm.Variants[0].Expected = nil
	bm.Variants[1].Expected = nil

	res, err := runner.RunDevice(context.Background(), dev, bm, data)
	require.NoError(t, err)
	for _, vr := range res.Variants {
		assert.NoError(t, vr.Err, vr.Variant)
	}
}

func TestRunner_BuildFailureSurfacesLog(t *testing.T) {
	dev := referenceDevice(t)
	runner := NewRunner(zap.NewNop())

	bm := VectorOps()
	bm.Source = "__kernel void not_a_real_op(__global float* data) {}"

	_, err := runner.RunDevice(context.Background(), dev, bm, []float32{1})
	var buildErr *compute.BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Contains(t, buildErr.Log, "not_a_real_op")
}

func TestRunner_VariantsStartFromSameInput(t *testing.T) {
	dev := referenceDevice(t)
	runner := NewRunner(zap.NewNop(), WithSampleFraction(1))
	data := datagen.New(1, 0, 1).Floats(100)

	// With a 100% sample both variants verify every element against
	// sqrt of the original input; that only holds if the buffer is
	// re-uploaded between variants.
	res, err := runner.RunDevice(context.Background(), dev, VectorOps(), data)
	require.NoError(t, err)
	for _, vr := range res.Variants {
		assert.NoError(t, vr.Err, vr.Variant)
	}
}

func TestRunner_EmptyData(t *testing.T) {
	dev := referenceDevice(t)
	runner := NewRunner(zap.NewNop())

	res, err := runner.RunDevice(context.Background(), dev, VectorOps(), nil)
	require.NoError(t, err)
	require.Len(t, res.Variants, 2)
	for _, vr := range res.Variants {
		assert.Zero(t, vr.Elements)
		assert.NoError(t, vr.Err)
	}
}

func TestRunner_SampleSize(t *testing.T) {
	r := NewRunner(zap.NewNop())
	assert.Equal(t, 0, r.sampleSize(0))
	assert.Equal(t, 1, r.sampleSize(5), "at least one element for non-empty data")
	assert.Equal(t, 1, r.sampleSize(100))
	assert.Equal(t, 100, r.sampleSize(10_000))

	full := NewRunner(zap.NewNop(), WithSampleFraction(1))
	assert.Equal(t, 7, full.sampleSize(7))
}

func TestByName(t *testing.T) {
	bm, err := ByName("vector")
	require.NoError(t, err)
	assert.Equal(t, "vector", bm.Name)
	assert.Equal(t, kernels.VectorOps, bm.Source)

	bm, err = ByName("")
	require.NoError(t, err)
	assert.Equal(t, "vector", bm.Name, "empty name selects the default")

	bm, err = ByName("fourops")
	require.NoError(t, err)
	assert.Equal(t, "fourops", bm.Name)

	_, err = ByName("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}
