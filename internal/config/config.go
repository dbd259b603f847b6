// Package config loads optional YAML defaults for the benchmark CLI.
// Command-line flags override anything set here.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Logger struct {
		Verbosity string `yaml:"verbosity"`
	} `yaml:"logger"`
	Benchmark struct {
		// Size uses the same syntax as the -s flag: bytes with an
		// optional M or G suffix.
		Size           string  `yaml:"size"`
		Name           string  `yaml:"name"`
		Seed           uint64  `yaml:"seed"`
		Tolerance      float64 `yaml:"tolerance"`
		SampleFraction float64 `yaml:"sampleFraction"`
		KernelFile     string  `yaml:"kernelFile"`
	} `yaml:"benchmark"`
	Metrics struct {
		PushGateway string `yaml:"pushGateway"`
		Job         string `yaml:"job"`
	} `yaml:"metrics"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Logger.Verbosity = "warn"
	cfg.Benchmark.Size = "512000000"
	cfg.Benchmark.Name = "vector"
	cfg.Benchmark.Seed = 1
	cfg.Benchmark.Tolerance = 1.0e-6
	cfg.Benchmark.SampleFraction = 0.01
	cfg.Metrics.Job = "clbench"
	return cfg
}

// LoadConfig reads path over the defaults. An empty path returns the
// defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}
