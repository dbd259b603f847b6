package bench

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats/scalar"
)

// DefaultTolerance is the absolute error bound for readback
// verification.
const DefaultTolerance = 1.0e-6

// ErrVerification marks a readback sample that fell outside tolerance.
var ErrVerification = errors.New("invalid computation from device")

// Verifier checks a device readback sample against a host-side
// reference transform of the original input.
type Verifier struct {
	Tolerance float64
}

// Verify compares sample[i] against expected(input[i]) element-wise
// within the absolute tolerance. A nil transform skips verification.
// The returned error wraps ErrVerification and names the first
// offending element.
func (v Verifier) Verify(sample, input []float32, expected func(float32) float32) error {
	if expected == nil {
		return nil
	}
	if len(sample) > len(input) {
		return fmt.Errorf("sample of %d elements exceeds input length %d", len(sample), len(input))
	}
	for i, got := range sample {
		want := expected(input[i])
		if !scalar.EqualWithinAbs(float64(got), float64(want), v.Tolerance) {
			return fmt.Errorf("%w: element %d: got %v, want %v (tolerance %g)",
				ErrVerification, i, got, want, v.Tolerance)
		}
	}
	return nil
}
