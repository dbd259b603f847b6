//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/fxnlabs/clbench/internal/bench"
	"github.com/fxnlabs/clbench/internal/compute"
	"github.com/fxnlabs/clbench/internal/config"
	"github.com/fxnlabs/clbench/internal/datagen"
	"github.com/fxnlabs/clbench/internal/logger"
)

func TestBenchmark_EndToEnd(t *testing.T) {
	var (
		rt     compute.Runtime
		runner *bench.Runner
	)

	app := fxtest.New(t,
		fx.Provide(
			func() *config.Config {
				cfg := config.Default()
				cfg.Logger.Verbosity = "debug"
				return cfg
			},
			func(cfg *config.Config) (*zap.Logger, error) {
				return logger.New(cfg.Logger.Verbosity)
			},
			compute.NewRuntime,
			func(cfg *config.Config, log *zap.Logger) *bench.Runner {
				return bench.NewRunner(log,
					bench.WithTolerance(cfg.Benchmark.Tolerance),
					bench.WithSampleFraction(cfg.Benchmark.SampleFraction))
			},
		),
		fx.Populate(&rt, &runner),
	)

	app.RequireStart()
	defer app.RequireStop()

	platforms, devices, err := compute.AllDevices(rt)
	require.NoError(t, err)
	require.NotEmpty(t, platforms, "at least one platform must exist")
	require.NotEmpty(t, devices)

	data := datagen.NewDefault().Floats(50_000)
	var out bytes.Buffer
	reporter := bench.NewReporter(&out)

	for _, bm := range []bench.Benchmark{bench.VectorOps(), bench.FourOps()} {
		for _, dev := range devices {
			res, err := runner.RunDevice(context.Background(), dev, bm, data)
			require.NoError(t, err, "benchmark %s on %s", bm.Name, dev.Name())
			for _, vr := range res.Variants {
				assert.NoError(t, vr.Err, "%s/%s", bm.Name, vr.Variant)
				assert.Positive(t, vr.Elapsed.Nanoseconds(), "%s/%s", bm.Name, vr.Variant)
			}
			reporter.Device(res)
		}
	}

	report := out.String()
	assert.Contains(t, report, "Range Based:")
	assert.Contains(t, report, "Element Based:")
	assert.Contains(t, report, "Four Ops:")
	assert.Contains(t, report, "Elements Per Second")
}
