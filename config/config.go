// Package config loads the tunables the scheduler core otherwise
// treats as constants, following the same load-with-fallback shape as
// the wider example corpus.
package config

import (
	"os"

	yaml "github.com/goccy/go-yaml"
)

// Config mirrors a scheduler's YAML config file.
type Config struct {
	Workers         int `yaml:"workers"`
	SpinIterations  int `yaml:"spin_iterations"`
	BatchSliceHint  int `yaml:"batch_slice_hint"`
}

// defaultConfig returns the scheduler's built-in defaults, used when no
// config file is given or it can't be read.
func defaultConfig() Config {
	return Config{
		Workers:        8,
		SpinIterations: 1000,
		BatchSliceHint: 4,
	}
}

// Load reads YAML from path and overrides defaults; an empty path or a
// missing/malformed file yields defaults only, followed by sanity
// clamps on whatever survived.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	_ = yaml.Unmarshal(data, &cfg)

	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.SpinIterations <= 0 {
		cfg.SpinIterations = 1000
	}
	if cfg.BatchSliceHint <= 0 {
		cfg.BatchSliceHint = 4
	}

	return cfg
}
