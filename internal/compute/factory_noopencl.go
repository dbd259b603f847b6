//go:build !opencl
// +build !opencl

package compute

import "go.uber.org/zap"

// NewRuntime selects the compute runtime for this build. Without OpenCL
// support only the pure-Go reference runtime is available.
func NewRuntime(log *zap.Logger) Runtime {
	log.Info("using reference runtime (compiled without OpenCL support)")
	return NewCPURuntime(log)
}
