// Package kernels ships the benchmark kernel sources. The embedded copies
// are the defaults; the CLI can substitute an external .cl file at run
// time.
package kernels

import _ "embed"

// VectorOps is the square-root benchmark source with the range_op and
// element_op entry points.
//
//go:embed vectorops.cl
var VectorOps string

// FourOps is the fixed-operation-count benchmark source with the
// four_ops entry point.
//
//go:embed fourops.cl
var FourOps string
