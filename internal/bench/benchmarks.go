// Package bench orchestrates timed kernel dispatches against compute
// devices and reports their throughput.
package bench

import (
	"fmt"
	"math"

	"github.com/fxnlabs/clbench/internal/compute"
	"github.com/fxnlabs/clbench/kernels"
)

// Sizing selects how many work-items a variant dispatches.
type Sizing int

const (
	// SizeByComputeUnits launches one work-item per device compute
	// unit; each work-item sweeps a contiguous slice of the buffer.
	SizeByComputeUnits Sizing = iota
	// SizeByElements launches one work-item per buffer element.
	SizeByElements
)

// Variant is one timed kernel configuration within a benchmark.
type Variant struct {
	// Name is the report label, e.g. "Range Based".
	Name string

	// EntryPoint is the kernel function to invoke.
	EntryPoint string

	Sizing Sizing

	// NeedsLength binds the buffer element count as the kernel's second
	// argument.
	NeedsLength bool

	// FlopsPerElement is the known operation count the kernel performs
	// per element. Zero means the variant reports elements/second
	// instead of FLOPS.
	FlopsPerElement int

	// Expected is the host-side reference transform the verifier
	// replays on the sampled input. Nil skips verification for this
	// variant.
	Expected func(float32) float32
}

// Benchmark bundles a kernel source with the variants dispatched
// against it. The two shipped benchmarks are selectable configurations
// of one driver rather than separate programs.
type Benchmark struct {
	Name     string
	Source   string
	Variants []Variant
}

// VectorOps is the default benchmark: the square-root kernel timed once
// with a work-item per compute unit and once with a work-item per
// element.
func VectorOps() Benchmark {
	sqrt32 := func(x float32) float32 {
		return float32(math.Sqrt(float64(x)))
	}
	return Benchmark{
		Name:   "vector",
		Source: kernels.VectorOps,
		Variants: []Variant{
			{
				Name:        "Range Based",
				EntryPoint:  "range_op",
				Sizing:      SizeByComputeUnits,
				NeedsLength: true,
				Expected:    sqrt32,
			},
			{
				Name:       "Element Based",
				EntryPoint: "element_op",
				Sizing:     SizeByElements,
				Expected:   sqrt32,
			},
		},
	}
}

// FourOps is the fixed-operation-count benchmark reporting FLOPS from
// the kernel's known per-element operation count.
func FourOps() Benchmark {
	return Benchmark{
		Name:   "fourops",
		Source: kernels.FourOps,
		Variants: []Variant{
			{
				Name:            "Four Ops",
				EntryPoint:      "four_ops",
				Sizing:          SizeByElements,
				FlopsPerElement: compute.FourOpsPerElement,
				Expected:        fourOpsExpected,
			},
		},
	}
}

// fourOpsExpected replays the four_ops kernel loop in float32 on the
// host. The operation order matches the kernel source exactly, so the
// reference runtime reproduces it bit for bit and conforming devices
// land well within tolerance.
func fourOpsExpected(x float32) float32 {
	for i := 0; i < compute.FourOpsPerElement/4; i++ {
		x = x + 1.0
		x = x * 0.5
		x = x / 0.5
		x = x - 1.0
	}
	return x
}

// ByName resolves a benchmark configuration from its CLI name.
func ByName(name string) (Benchmark, error) {
	switch name {
	case "", "vector":
		return VectorOps(), nil
	case "fourops":
		return FourOps(), nil
	default:
		return Benchmark{}, fmt.Errorf("unknown benchmark %q (have: vector, fourops)", name)
	}
}
