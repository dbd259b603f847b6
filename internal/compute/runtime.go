// Package compute abstracts a vendor-neutral parallel-compute runtime.
//
// The interfaces mirror the subset of the OpenCL host API the benchmark
// consumes: platform/device enumeration, per-device contexts, program
// compilation with retrievable build logs, read-write buffers with blocking
// transfers, kernel argument binding, and range dispatch with a
// completion-signaling event. Two implementations exist: a pure-Go reference
// runtime (default build) and a cgo OpenCL runtime behind the "opencl"
// build tag.
package compute

import (
	"context"
	"fmt"
	"io"
)

// Runtime is the entry point to a compute API implementation.
type Runtime interface {
	// Name identifies the runtime implementation ("reference", "opencl").
	Name() string

	// Platforms enumerates available platforms. An empty result is valid
	// from the runtime's perspective; callers decide whether it is fatal.
	Platforms() ([]Platform, error)
}

// Platform groups one or more devices under a single vendor runtime.
type Platform interface {
	Vendor() string
	Name() string
	Devices() ([]Device, error)
}

// Device is an individually addressable compute accelerator.
type Device interface {
	Name() string
	Platform() Platform

	// MaxComputeUnits reports the number of parallel compute units the
	// device exposes. Used to size range-based dispatches.
	MaxComputeUnits() int

	// NewContext builds a compute context scoped to exactly this device.
	NewContext() (Context, error)
}

// Context owns programs, buffers and the command queue for one device.
type Context interface {
	// BuildProgram compiles kernel source for the context's device. A
	// compilation failure is returned as *BuildError carrying the build
	// log.
	BuildProgram(source string) (Program, error)

	// NewBuffer allocates a read-write device buffer holding n float32
	// elements.
	NewBuffer(n int) (Buffer, error)

	// Release frees device resources owned by the context.
	Release() error
}

// Program is a compiled kernel program with named entry points.
type Program interface {
	// Kernel binds the named entry point. Unknown names are an error.
	Kernel(name string) (Kernel, error)
}

// Buffer is a device-resident float32 array.
type Buffer interface {
	// Len reports the element capacity of the buffer.
	Len() int

	// Write copies src into the buffer starting at element 0, blocking
	// until the transfer completes.
	Write(ctx context.Context, src []float32) error

	// Read copies len(dst) elements from the buffer into dst, blocking
	// until the transfer completes.
	Read(ctx context.Context, dst []float32) error

	// Release frees the device allocation.
	Release() error
}

// Kernel is a bound entry point ready for argument binding and dispatch.
type Kernel interface {
	// SetArgBuffer binds a device buffer to the argument at index.
	SetArgBuffer(index int, buf Buffer) error

	// SetArgInt32 binds a scalar int32 to the argument at index.
	SetArgInt32(index int, v int32) error

	// EnqueueRange launches the kernel over global work-items with the
	// given local work-group size and returns immediately with a
	// completion event.
	EnqueueRange(ctx context.Context, global, local int) (Event, error)
}

// Event signals completion of an enqueued dispatch.
type Event interface {
	// Wait blocks until the dispatch has finished executing on the
	// device, or until ctx is cancelled.
	Wait(ctx context.Context) error
}

// BuildError reports a kernel compilation failure together with the
// device build log, so callers can surface the log without aborting.
type BuildError struct {
	Device string
	Log    string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("program build failed on %q", e.Device)
}

// WriteLog writes the build log to w, for surfacing on the diagnostic
// stream.
func (e *BuildError) WriteLog(w io.Writer) {
	fmt.Fprintln(w, e.Log)
}

// AllDevices flattens the runtime's platforms into one ordered device
// list, preserving platform grouping order. The position of a device in
// the returned slice is its global index, the addressing scheme used by
// the CLI device selector.
func AllDevices(rt Runtime) ([]Platform, []Device, error) {
	platforms, err := rt.Platforms()
	if err != nil {
		return nil, nil, fmt.Errorf("enumerate platforms: %w", err)
	}
	var devices []Device
	for _, p := range platforms {
		devs, err := p.Devices()
		if err != nil {
			return nil, nil, fmt.Errorf("enumerate devices on %s: %w", p.Name(), err)
		}
		devices = append(devices, devs...)
	}
	return platforms, devices, nil
}

// ListDevices prints the platform-grouped device listing. Each platform
// boundary prints "<vendor> <name>:" followed by one "[i] <device>" line
// per device; indices are contiguous across platforms.
func ListDevices(w io.Writer, rt Runtime) error {
	platforms, err := rt.Platforms()
	if err != nil {
		return err
	}
	i := 0
	for _, p := range platforms {
		devs, err := p.Devices()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s %s:\n", p.Vendor(), p.Name())
		for _, d := range devs {
			fmt.Fprintf(w, "[%d] %s\n", i, d.Name())
			i++
		}
	}
	return nil
}
