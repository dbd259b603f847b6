package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fxnlabs/clbench/internal/compute"
	"github.com/fxnlabs/clbench/internal/metrics"
)

// DefaultSampleFraction is the share of the buffer read back for
// verification after each variant.
const DefaultSampleFraction = 0.01

// Runner drives one benchmark pass per device: context and program
// setup, data upload, timed dispatch per variant, readback verification
// and throughput computation. Devices run strictly one at a time; the
// host buffer is owned by the runner for the duration of a device pass.
type Runner struct {
	log            *zap.Logger
	verifier       Verifier
	sampleFraction float64
}

// Option tunes a Runner.
type Option func(*Runner)

// WithTolerance overrides the verification tolerance.
func WithTolerance(tol float64) Option {
	return func(r *Runner) { r.verifier.Tolerance = tol }
}

// WithSampleFraction overrides the share of elements read back for
// verification.
func WithSampleFraction(f float64) Option {
	return func(r *Runner) { r.sampleFraction = f }
}

func NewRunner(log *zap.Logger, opts ...Option) *Runner {
	r := &Runner{
		log:            log.Named("runner"),
		verifier:       Verifier{Tolerance: DefaultTolerance},
		sampleFraction: DefaultSampleFraction,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunDevice executes every variant of bm on dev against a private copy
// of data on the device. A kernel compile failure surfaces as
// *compute.BuildError so the driver can print the build log and decide
// whether to continue with other devices. A verification failure is
// recorded in that variant's result and the pass continues.
func (r *Runner) RunDevice(ctx context.Context, dev compute.Device, bm Benchmark, data []float32) (DeviceResult, error) {
	res := DeviceResult{Device: dev.Name()}
	log := r.log.With(zap.String("device", dev.Name()), zap.String("benchmark", bm.Name))

	cctx, err := dev.NewContext()
	if err != nil {
		return res, fmt.Errorf("create context on %s: %w", dev.Name(), err)
	}
	defer cctx.Release()

	program, err := cctx.BuildProgram(bm.Source)
	if err != nil {
		return res, err
	}

	buf, err := cctx.NewBuffer(len(data))
	if err != nil {
		return res, fmt.Errorf("allocate %d-element buffer: %w", len(data), err)
	}
	defer buf.Release()

	if err := buf.Write(ctx, data); err != nil {
		return res, fmt.Errorf("upload data: %w", err)
	}

	for i, v := range bm.Variants {
		if i > 0 {
			// Previous variant mutated the buffer; restore the
			// original input so every variant starts from the
			// same state.
			if err := buf.Write(ctx, data); err != nil {
				return res, fmt.Errorf("re-upload data: %w", err)
			}
		}
		vr, err := r.runVariant(ctx, log, dev, program, buf, v, data)
		if err != nil {
			return res, err
		}
		res.Variants = append(res.Variants, vr)
	}
	metrics.DevicesBenchmarked.Inc()
	return res, nil
}

func (r *Runner) runVariant(ctx context.Context, log *zap.Logger, dev compute.Device, program compute.Program, buf compute.Buffer, v Variant, data []float32) (VariantResult, error) {
	vr := VariantResult{Variant: v.Name, Elements: len(data)}
	if len(data) == 0 {
		return vr, nil
	}

	kernel, err := program.Kernel(v.EntryPoint)
	if err != nil {
		return vr, fmt.Errorf("bind kernel %s: %w", v.EntryPoint, err)
	}
	if err := kernel.SetArgBuffer(0, buf); err != nil {
		return vr, fmt.Errorf("bind buffer argument: %w", err)
	}
	if v.NeedsLength {
		if err := kernel.SetArgInt32(1, int32(len(data))); err != nil {
			return vr, fmt.Errorf("bind length argument: %w", err)
		}
	}

	global := len(data)
	if v.Sizing == SizeByComputeUnits {
		global = dev.MaxComputeUnits()
		if global > len(data) {
			global = len(data)
		}
	}

	// The dispatch is the timed window: timestamp immediately before
	// enqueue, wait on the completion event, timestamp after.
	start := time.Now()
	event, err := kernel.EnqueueRange(ctx, global, 1)
	if err != nil {
		return vr, fmt.Errorf("enqueue %s: %w", v.EntryPoint, err)
	}
	if err := event.Wait(ctx); err != nil {
		return vr, fmt.Errorf("wait for %s: %w", v.EntryPoint, err)
	}
	vr.Elapsed = time.Since(start)
	vr.Flops = int64(v.FlopsPerElement) * int64(len(data))

	sample := make([]float32, r.sampleSize(len(data)))
	if err := buf.Read(ctx, sample); err != nil {
		return vr, fmt.Errorf("read verification sample: %w", err)
	}
	if err := r.verifier.Verify(sample, data, v.Expected); err != nil {
		if !errors.Is(err, ErrVerification) {
			return vr, err
		}
		log.Warn("verification failed",
			zap.String("variant", v.Name), zap.Error(err))
		metrics.VerificationFailures.WithLabelValues(dev.Name(), v.Name).Inc()
		vr.Err = err
		return vr, nil
	}

	log.Debug("variant complete",
		zap.String("variant", v.Name),
		zap.Duration("elapsed", vr.Elapsed),
		zap.Int("global_work_items", global))
	metrics.VariantDuration.WithLabelValues(dev.Name(), v.Name).Observe(vr.Elapsed.Seconds())
	if secs := vr.Elapsed.Seconds(); secs > 0 {
		rate := float64(vr.Elements) / secs
		if vr.Flops > 0 {
			rate = float64(vr.Flops) / secs
		}
		metrics.VariantThroughput.WithLabelValues(dev.Name(), v.Name).Set(rate)
	}
	return vr, nil
}

// sampleSize is the verification readback length: a fixed fraction of
// the buffer, at least one element for non-empty data.
func (r *Runner) sampleSize(n int) int {
	s := int(float64(n) * r.sampleFraction)
	if s == 0 && n > 0 {
		s = 1
	}
	if s > n {
		s = n
	}
	return s
}
