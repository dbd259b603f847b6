//go:build opencl
// +build opencl

package compute

import "go.uber.org/zap"

// NewRuntime selects the compute runtime for this build. With OpenCL
// support compiled in it prefers the installed OpenCL driver and falls
// back to the pure-Go reference runtime when no platform is present.
func NewRuntime(log *zap.Logger) Runtime {
	rt := NewOpenCLRuntime(log)
	platforms, err := rt.Platforms()
	if err == nil && len(platforms) > 0 {
		log.Info("using OpenCL runtime", zap.Int("platforms", len(platforms)))
		return rt
	}
	log.Info("no OpenCL platforms found, using reference runtime")
	return NewCPURuntime(log)
}
