// clbench measures sustained floating-point throughput of compute
// devices exposed through a vendor-neutral runtime: it enumerates
// devices, uploads random data, times kernel dispatches and reports
// throughput per device and kernel variant.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/common-nighthawk/go-figure"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/fxnlabs/clbench/internal/bench"
	"github.com/fxnlabs/clbench/internal/compute"
	"github.com/fxnlabs/clbench/internal/config"
	"github.com/fxnlabs/clbench/internal/datagen"
	"github.com/fxnlabs/clbench/internal/logger"
	"github.com/fxnlabs/clbench/internal/metrics"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	var (
		cfg *config.Config
		log *zap.Logger
	)
	return &cli.App{
		Name:      "clbench",
		Usage:     "benchmark floating-point throughput of compute devices",
		ArgsUsage: "[device-index]",
		Before: func(c *cli.Context) error {
			var err error
			cfg, err = config.LoadConfig(c.String("config"))
			if err != nil {
				return cli.Exit(fmt.Sprintf("load config: %v", err), 1)
			}
			log, err = logger.New(cfg.Logger.Verbosity)
			if err != nil {
				return cli.Exit(fmt.Sprintf("build logger: %v", err), 1)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if log != nil {
				_ = log.Sync()
			}
			return nil
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "list",
				Aliases: []string{"l"},
				Usage:   "list platforms and devices, then exit",
			},
			&cli.StringFlag{
				Name:    "size",
				Aliases: []string{"s"},
				Usage:   "memory test size in bytes, with optional M or G suffix",
			},
			&cli.StringFlag{
				Name:  "bench",
				Usage: "benchmark to run: vector or fourops",
			},
			&cli.StringFlag{
				Name:  "kernel",
				Usage: "load kernel source from `FILE` instead of the embedded default",
			},
			&cli.Uint64Flag{
				Name:  "seed",
				Usage: "random data generator seed",
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "load defaults from YAML `FILE`",
				EnvVars: []string{"CLBENCH_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "push",
				Usage: "push run metrics to the Prometheus Pushgateway at `URL`",
			},
		},
		Action: func(c *cli.Context) error {
			return run(c, cfg, log)
		},
	}
}

func run(c *cli.Context, cfg *config.Config, log *zap.Logger) error {
	rt := compute.NewRuntime(log)
	platforms, devices, err := compute.AllDevices(rt)
	if err != nil {
		return cli.Exit(fmt.Sprintf("device enumeration failed: %v", err), 1)
	}
	if len(platforms) == 0 {
		return cli.Exit("no platforms found, verify runtime installation", 1)
	}

	// Listing short-circuits benchmarking; repeated -l flags are a
	// single listing.
	if c.Bool("list") {
		if err := compute.ListDevices(c.App.Writer, rt); err != nil {
			return cli.Exit(fmt.Sprintf("list devices: %v", err), 1)
		}
		return nil
	}

	sizeArg := cfg.Benchmark.Size
	if c.IsSet("size") {
		sizeArg = c.String("size")
	}
	sizeBytes, err := bench.ParseTestSize(sizeArg)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	benchName := cfg.Benchmark.Name
	if c.IsSet("bench") {
		benchName = c.String("bench")
	}
	bm, err := bench.ByName(benchName)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if kernelFile := pick(c, "kernel", cfg.Benchmark.KernelFile); kernelFile != "" {
		source, err := os.ReadFile(kernelFile)
		if err != nil {
			return cli.Exit(fmt.Sprintf("error opening %s for reading", kernelFile), 1)
		}
		bm.Source = string(source)
	}

	selected := devices
	if c.Args().Present() {
		index, err := strconv.Atoi(c.Args().First())
		if err != nil || index < 0 || index >= len(devices) {
			return cli.Exit(fmt.Sprintf("no device %s found", c.Args().First()), 1)
		}
		selected = devices[index : index+1]
	}

	seed := cfg.Benchmark.Seed
	if c.IsSet("seed") {
		seed = c.Uint64("seed")
	}
	elements := int(sizeBytes / 4)
	log.Info("generating benchmark data",
		zap.Int64("size_bytes", sizeBytes),
		zap.Int("elements", elements),
		zap.Uint64("seed", seed))
	data := datagen.New(seed, 0, 1).Floats(elements)

	banner := figure.NewFigure("clbench", "", true)
	banner.Print()
	fmt.Fprintln(c.App.Writer)

	runner := bench.NewRunner(log,
		bench.WithTolerance(cfg.Benchmark.Tolerance),
		bench.WithSampleFraction(cfg.Benchmark.SampleFraction))
	reporter := bench.NewReporter(c.App.Writer)

	for _, dev := range selected {
		res, err := runner.RunDevice(context.Background(), dev, bm, data)
		if err != nil {
			var buildErr *compute.BuildError
			if errors.As(err, &buildErr) {
				// Surface the build log and move on; other
				// devices may still compile the program.
				fmt.Fprintf(c.App.ErrWriter, "error building on %s, verify runtime installation\n", dev.Name())
				buildErr.WriteLog(c.App.ErrWriter)
				continue
			}
			return cli.Exit(fmt.Sprintf("benchmark failed on %s: %v", dev.Name(), err), 1)
		}
		reporter.Device(res)
	}

	if gateway := pick(c, "push", cfg.Metrics.PushGateway); gateway != "" {
		if err := metrics.Push(gateway, cfg.Metrics.Job); err != nil {
			log.Warn("metrics push failed", zap.String("gateway", gateway), zap.Error(err))
		}
	}
	return nil
}

// pick returns the flag value when set, otherwise the config fallback.
func pick(c *cli.Context, flag, fallback string) string {
	if c.IsSet(flag) {
		return c.String(flag)
	}
	return fallback
}
