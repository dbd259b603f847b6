//go:build opencl
// +build opencl

package compute

/*
#cgo LDFLAGS: -lOpenCL
#define CL_TARGET_OPENCL_VERSION 120
#define CL_USE_DEPRECATED_OPENCL_1_2_APIS
#include <CL/cl.h>
#include <stdlib.h>
*/
import "C"
import (
	"context"
	"fmt"
	"unsafe"

	"go.uber.org/zap"
)

// clRuntime implements Runtime on top of an installed OpenCL driver.
type clRuntime struct {
	log *zap.Logger
}

// NewOpenCLRuntime returns the OpenCL-backed runtime.
func NewOpenCLRuntime(log *zap.Logger) Runtime {
	return &clRuntime{log: log.Named("opencl")}
}

func (r *clRuntime) Name() string { return "opencl" }

func (r *clRuntime) Platforms() ([]Platform, error) {
	var count C.cl_uint
	if status := C.clGetPlatformIDs(0, nil, &count); status != C.CL_SUCCESS {
		// CL_PLATFORM_NOT_FOUND_KHR and friends mean no runtime is
		// installed; report that as an empty enumeration.
		return nil, nil
	}
	if count == 0 {
		return nil, nil
	}
	ids := make([]C.cl_platform_id, count)
	if status := C.clGetPlatformIDs(count, &ids[0], nil); status != C.CL_SUCCESS {
		return nil, clError("clGetPlatformIDs", status)
	}
	platforms := make([]Platform, 0, count)
	for _, id := range ids {
		platforms = append(platforms, &clPlatform{rt: r, id: id})
	}
	return platforms, nil
}

type clPlatform struct {
	rt *clRuntime
	id C.cl_platform_id
}

func (p *clPlatform) Vendor() string { return p.info(C.CL_PLATFORM_VENDOR) }
func (p *clPlatform) Name() string   { return p.info(C.CL_PLATFORM_NAME) }

func (p *clPlatform) info(param C.cl_platform_info) string {
	var size C.size_t
	if C.clGetPlatformInfo(p.id, param, 0, nil, &size) != C.CL_SUCCESS || size == 0 {
		return "unknown"
	}
	buf := make([]byte, size)
	if C.clGetPlatformInfo(p.id, param, size, unsafe.Pointer(&buf[0]), nil) != C.CL_SUCCESS {
		return "unknown"
	}
	return string(buf[:size-1])
}

func (p *clPlatform) Devices() ([]Device, error) {
	var count C.cl_uint
	status := C.clGetDeviceIDs(p.id, C.CL_DEVICE_TYPE_ALL, 0, nil, &count)
	if status == C.CL_DEVICE_NOT_FOUND || count == 0 {
		return nil, nil
	}
	if status != C.CL_SUCCESS {
		return nil, clError("clGetDeviceIDs", status)
	}
	ids := make([]C.cl_device_id, count)
	if status := C.clGetDeviceIDs(p.id, C.CL_DEVICE_TYPE_ALL, count, &ids[0], nil); status != C.CL_SUCCESS {
		return nil, clError("clGetDeviceIDs", status)
	}
	devices := make([]Device, 0, count)
	for _, id := range ids {
		devices = append(devices, &clDevice{platform: p, id: id})
	}
	return devices, nil
}

type clDevice struct {
	platform *clPlatform
	id       C.cl_device_id
}

func (d *clDevice) Platform() Platform { return d.platform }

func (d *clDevice) Name() string {
	var size C.size_t
	if C.clGetDeviceInfo(d.id, C.CL_DEVICE_NAME, 0, nil, &size) != C.CL_SUCCESS || size == 0 {
		return "unknown device"
	}
	buf := make([]byte, size)
	if C.clGetDeviceInfo(d.id, C.CL_DEVICE_NAME, size, unsafe.Pointer(&buf[0]), nil) != C.CL_SUCCESS {
		return "unknown device"
	}
	return string(buf[:size-1])
}

func (d *clDevice) MaxComputeUnits() int {
	var units C.cl_uint
	if C.clGetDeviceInfo(d.id, C.CL_DEVICE_MAX_COMPUTE_UNITS,
		C.size_t(unsafe.Sizeof(units)), unsafe.Pointer(&units), nil) != C.CL_SUCCESS {
		return 1
	}
	return int(units)
}

func (d *clDevice) NewContext() (Context, error) {
	var status C.cl_int
	clCtx := C.clCreateContext(nil, 1, &d.id, nil, nil, &status)
	if status != C.CL_SUCCESS {
		return nil, clError("clCreateContext", status)
	}
	queue := C.clCreateCommandQueue(clCtx, d.id, 0, &status)
	if status != C.CL_SUCCESS {
		C.clReleaseContext(clCtx)
		return nil, clError("clCreateCommandQueue", status)
	}
	return &clContext{dev: d, ctx: clCtx, queue: queue}, nil
}

type clContext struct {
	dev   *clDevice
	ctx   C.cl_context
	queue C.cl_command_queue
}

func (c *clContext) BuildProgram(source string) (Program, error) {
	csrc := C.CString(source)
	defer C.free(unsafe.Pointer(csrc))
	length := C.size_t(len(source))

	var status C.cl_int
	prog := C.clCreateProgramWithSource(c.ctx, 1, &csrc, &length, &status)
	if status != C.CL_SUCCESS {
		return nil, clError("clCreateProgramWithSource", status)
	}
	if status := C.clBuildProgram(prog, 1, &c.dev.id, nil, nil, nil); status != C.CL_SUCCESS {
		log := c.buildLog(prog)
		C.clReleaseProgram(prog)
		return nil, &BuildError{Device: c.dev.Name(), Log: log}
	}
	return &clProgram{ctx: c, prog: prog}, nil
}

func (c *clContext) buildLog(prog C.cl_program) string {
	var size C.size_t
	if C.clGetProgramBuildInfo(prog, c.dev.id, C.CL_PROGRAM_BUILD_LOG, 0, nil, &size) != C.CL_SUCCESS || size == 0 {
		return "build log unavailable"
	}
	buf := make([]byte, size)
	if C.clGetProgramBuildInfo(prog, c.dev.id, C.CL_PROGRAM_BUILD_LOG, size, unsafe.Pointer(&buf[0]), nil) != C.CL_SUCCESS {
		return "build log unavailable"
	}
	return string(buf[:size-1])
}

func (c *clContext) NewBuffer(n int) (Buffer, error) {
	var status C.cl_int
	mem := C.clCreateBuffer(c.ctx, C.CL_MEM_READ_WRITE, C.size_t(n*4), nil, &status)
	if status != C.CL_SUCCESS {
		return nil, clError("clCreateBuffer", status)
	}
	return &clBuffer{ctx: c, mem: mem, n: n}, nil
}

func (c *clContext) Release() error {
	C.clReleaseCommandQueue(c.queue)
	C.clReleaseContext(c.ctx)
	return nil
}

type clProgram struct {
	ctx  *clContext
	prog C.cl_program
}

func (p *clProgram) Kernel(name string) (Kernel, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	var status C.cl_int
	k := C.clCreateKernel(p.prog, cname, &status)
	if status != C.CL_SUCCESS {
		return nil, clError(fmt.Sprintf("clCreateKernel(%s)", name), status)
	}
	return &clKernel{ctx: p.ctx, kernel: k}, nil
}

type clBuffer struct {
	ctx *clContext
	mem C.cl_mem
	n   int
}

func (b *clBuffer) Len() int { return b.n }

func (b *clBuffer) Write(ctx context.Context, src []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(src) == 0 {
		return nil
	}
	status := C.clEnqueueWriteBuffer(b.ctx.queue, b.mem, C.CL_TRUE, 0,
		C.size_t(len(src)*4), unsafe.Pointer(&src[0]), 0, nil, nil)
	if status != C.CL_SUCCESS {
		return clError("clEnqueueWriteBuffer", status)
	}
	return nil
}

func (b *clBuffer) Read(ctx context.Context, dst []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(dst) == 0 {
		return nil
	}
	status := C.clEnqueueReadBuffer(b.ctx.queue, b.mem, C.CL_TRUE, 0,
		C.size_t(len(dst)*4), unsafe.Pointer(&dst[0]), 0, nil, nil)
	if status != C.CL_SUCCESS {
		return clError("clEnqueueReadBuffer", status)
	}
	return nil
}

func (b *clBuffer) Release() error {
	C.clReleaseMemObject(b.mem)
	return nil
}

type clKernel struct {
	ctx    *clContext
	kernel C.cl_kernel
}

func (k *clKernel) SetArgBuffer(index int, buf Buffer) error {
	cb, ok := buf.(*clBuffer)
	if !ok {
		return fmt.Errorf("buffer does not belong to the OpenCL runtime")
	}
	status := C.clSetKernelArg(k.kernel, C.cl_uint(index),
		C.size_t(unsafe.Sizeof(cb.mem)), unsafe.Pointer(&cb.mem))
	if status != C.CL_SUCCESS {
		return clError("clSetKernelArg", status)
	}
	return nil
}

func (k *clKernel) SetArgInt32(index int, v int32) error {
	cv := C.cl_int(v)
	status := C.clSetKernelArg(k.kernel, C.cl_uint(index),
		C.size_t(unsafe.Sizeof(cv)), unsafe.Pointer(&cv))
	if status != C.CL_SUCCESS {
		return clError("clSetKernelArg", status)
	}
	return nil
}

func (k *clKernel) EnqueueRange(ctx context.Context, global, local int) (Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g := C.size_t(global)
	l := C.size_t(local)
	var ev C.cl_event
	status := C.clEnqueueNDRangeKernel(k.ctx.queue, k.kernel, 1, nil, &g, &l, 0, nil, &ev)
	if status != C.CL_SUCCESS {
		return nil, clError("clEnqueueNDRangeKernel", status)
	}
	return &clEvent{ev: ev}, nil
}

type clEvent struct {
	ev C.cl_event
}

// Wait blocks until the device signals completion. OpenCL offers no
// cancellation for an in-flight dispatch, so ctx is only honored before
// the wait begins.
func (e *clEvent) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	status := C.clWaitForEvents(1, &e.ev)
	C.clReleaseEvent(e.ev)
	if status != C.CL_SUCCESS {
		return clError("clWaitForEvents", status)
	}
	return nil
}

func clError(call string, status C.cl_int) error {
	return fmt.Errorf("%s failed with OpenCL status %d", call, int(status))
}
