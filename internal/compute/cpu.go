package compute

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// cpuRuntime is the pure-Go reference implementation of Runtime. It
// exposes a single platform with a single CPU device and executes the
// benchmark kernels with native Go code, so the full driver path can run
// on hosts without an accelerator runtime installed.
type cpuRuntime struct {
	log *zap.Logger
}

// NewCPURuntime returns the reference runtime backed by the host CPU.
func NewCPURuntime(log *zap.Logger) Runtime {
	return &cpuRuntime{log: log.Named("reference")}
}

func (r *cpuRuntime) Name() string { return "reference" }

func (r *cpuRuntime) Platforms() ([]Platform, error) {
	p := &cpuPlatform{rt: r}
	p.dev = &cpuDevice{platform: p, units: runtime.NumCPU()}
	return []Platform{p}, nil
}

type cpuPlatform struct {
	rt  *cpuRuntime
	dev *cpuDevice
}

func (p *cpuPlatform) Vendor() string { return "Function Labs" }
func (p *cpuPlatform) Name() string   { return "Go Reference Runtime" }

func (p *cpuPlatform) Devices() ([]Device, error) {
	return []Device{p.dev}, nil
}

type cpuDevice struct {
	platform *cpuPlatform
	units    int
}

func (d *cpuDevice) Name() string {
	return fmt.Sprintf("CPU (%s, %d threads)", runtime.GOARCH, d.units)
}

func (d *cpuDevice) Platform() Platform   { return d.platform }
func (d *cpuDevice) MaxComputeUnits() int { return d.units }

func (d *cpuDevice) NewContext() (Context, error) {
	return &cpuContext{dev: d, log: d.platform.rt.log}, nil
}

type cpuContext struct {
	dev *cpuDevice
	log *zap.Logger
}

var kernelDecl = regexp.MustCompile(`__kernel\s+void\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

// BuildProgram parses the source for __kernel entry point declarations and
// binds each to its native implementation. An entry point without a native
// implementation fails the build, mirroring a real compiler rejecting
// unsupported source, and the "log" names the offending kernel.
func (c *cpuContext) BuildProgram(source string) (Program, error) {
	matches := kernelDecl.FindAllStringSubmatch(source, -1)
	if len(matches) == 0 {
		return nil, &BuildError{
			Device: c.dev.Name(),
			Log:    "no __kernel entry points found in source",
		}
	}
	entries := make(map[string]kernelFunc, len(matches))
	var unknown []string
	for _, m := range matches {
		name := m[1]
		impl, ok := nativeKernels[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		entries[name] = impl
	}
	if len(unknown) > 0 {
		return nil, &BuildError{
			Device: c.dev.Name(),
			Log: fmt.Sprintf("reference runtime has no native implementation for kernel(s): %s",
				strings.Join(unknown, ", ")),
		}
	}
	c.log.Debug("program built", zap.Int("entry_points", len(entries)))
	return &cpuProgram{ctx: c, entries: entries}, nil
}

func (c *cpuContext) NewBuffer(n int) (Buffer, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative buffer length %d", n)
	}
	return &cpuBuffer{data: make([]float32, n)}, nil
}

func (c *cpuContext) Release() error { return nil }

type cpuProgram struct {
	ctx     *cpuContext
	entries map[string]kernelFunc
}

func (p *cpuProgram) Kernel(name string) (Kernel, error) {
	impl, ok := p.entries[name]
	if !ok {
		return nil, fmt.Errorf("no kernel %q in program", name)
	}
	return &cpuKernel{ctx: p.ctx, impl: impl}, nil
}

type cpuBuffer struct {
	mu   sync.Mutex
	data []float32
}

func (b *cpuBuffer) Len() int { return len(b.data) }

func (b *cpuBuffer) Write(ctx context.Context, src []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(src) > len(b.data) {
		return fmt.Errorf("write of %d elements exceeds buffer length %d", len(src), len(b.data))
	}
	copy(b.data, src)
	return nil
}

func (b *cpuBuffer) Read(ctx context.Context, dst []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(dst) > len(b.data) {
		return fmt.Errorf("read of %d elements exceeds buffer length %d", len(dst), len(b.data))
	}
	copy(dst, b.data)
	return nil
}

func (b *cpuBuffer) Release() error {
	b.data = nil
	return nil
}

// kernelFunc executes one work-item. data is the full device buffer, n the
// bound element count argument, id the global work-item index and global
// the total work-item count.
type kernelFunc func(data []float32, n int32, id, global int)

// nativeKernels are the entry points the reference runtime can execute.
// Semantics match the shipped .cl sources element for element.
var nativeKernels = map[string]kernelFunc{
	// range_op: each work-item sweeps n/global contiguous elements,
	// replacing each with its square root. The final work-item also
	// covers the remainder.
	"range_op": func(data []float32, n int32, id, global int) {
		chunk := int(n) / global
		lo := id * chunk
		hi := lo + chunk
		if id == global-1 {
			hi = int(n)
		}
		for i := lo; i < hi; i++ {
			data[i] = float32(math.Sqrt(float64(data[i])))
		}
	},
	// element_op: one element per work-item.
	"element_op": func(data []float32, _ int32, id, global int) {
		data[id] = float32(math.Sqrt(float64(data[id])))
	},
	// four_ops: 64 iterations of add, mul, div, sub per element. The
	// constants are powers of two so the multiply and divide round
	// exactly; the net transform is an identity up to float32 rounding
	// of the adds.
	"four_ops": func(data []float32, _ int32, id, global int) {
		x := data[id]
		for i := 0; i < fourOpsIterations; i++ {
			x = x + 1.0
			x = x * 0.5
			x = x / 0.5
			x = x - 1.0
		}
		data[id] = x
	},
}

// fourOpsIterations is the loop trip count inside the four_ops kernel.
// Each iteration performs four floating-point operations.
const fourOpsIterations = 64

// FourOpsPerElement is the operation count four_ops performs per element,
// used for FLOPS reporting.
const FourOpsPerElement = 4 * fourOpsIterations

type cpuKernel struct {
	ctx  *cpuContext
	impl kernelFunc

	buf *cpuBuffer
	n   int32
}

func (k *cpuKernel) SetArgBuffer(index int, buf Buffer) error {
	if index != 0 {
		return fmt.Errorf("buffer argument index %d out of range", index)
	}
	cb, ok := buf.(*cpuBuffer)
	if !ok {
		return fmt.Errorf("buffer does not belong to the reference runtime")
	}
	k.buf = cb
	return nil
}

func (k *cpuKernel) SetArgInt32(index int, v int32) error {
	if index != 1 {
		return fmt.Errorf("scalar argument index %d out of range", index)
	}
	k.n = v
	return nil
}

// EnqueueRange fans the global work-items out over one worker goroutine
// per compute unit. The host observes the dispatch as a single blocking
// unit of work through the returned event.
func (k *cpuKernel) EnqueueRange(ctx context.Context, global, local int) (Event, error) {
	if k.buf == nil {
		return nil, fmt.Errorf("kernel buffer argument not set")
	}
	if global <= 0 {
		return nil, fmt.Errorf("global work size must be positive, got %d", global)
	}
	if local <= 0 {
		return nil, fmt.Errorf("local work size must be positive, got %d", local)
	}

	done := make(chan error, 1)
	go func() {
		defer close(done)
		k.buf.mu.Lock()
		defer k.buf.mu.Unlock()

		workers := k.ctx.dev.units
		if workers > global {
			workers = global
		}
		var wg sync.WaitGroup
		next := make(chan int, workers)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for id := range next {
					k.impl(k.buf.data, k.n, id, global)
				}
			}()
		}
		for id := 0; id < global; id++ {
			if ctx.Err() != nil {
				break
			}
			next <- id
		}
		close(next)
		wg.Wait()
		done <- ctx.Err()
	}()
	return &cpuEvent{done: done}, nil
}

type cpuEvent struct {
	done chan error
}

func (e *cpuEvent) Wait(ctx context.Context) error {
	select {
	case err := <-e.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
