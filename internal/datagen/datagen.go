// Package datagen produces the random float32 buffers the benchmark
// uploads to devices.
package datagen

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultSeed seeds generators when the caller does not choose one.
const DefaultSeed uint64 = 1

// Generator draws uniform values from an explicitly seeded stream. The
// stream state lives in the generator, never in package state, so a test
// or a verifier can construct a fresh generator and replay a draw
// exactly. Successive calls on one generator advance the same stream.
type Generator struct {
	dist distuv.Uniform
}

// New returns a generator drawing from [min, max) seeded with seed.
func New(seed uint64, min, max float64) *Generator {
	return &Generator{
		dist: distuv.Uniform{
			Min: min,
			Max: max,
			Src: rand.NewSource(seed),
		},
	}
}

// NewDefault returns a generator over [0, 1) with the default seed.
func NewDefault() *Generator {
	return New(DefaultSeed, 0, 1)
}

// Fill overwrites dst with draws from the stream.
func (g *Generator) Fill(dst []float32) {
	for i := range dst {
		dst[i] = float32(g.dist.Rand())
	}
}

// Floats draws n values. n may be zero; the result is always non-nil.
func (g *Generator) Floats(n int) []float32 {
	out := make([]float32, n)
	g.Fill(out)
	return out
}
