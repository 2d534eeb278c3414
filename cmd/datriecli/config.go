package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration file named by the global
// -config flag. Only the serve subcommand reads it, letting a host pin
// cachelru sizing and serve defaults without repeating flags
// (SPEC_FULL.md §A.3).
type Config struct {
	// CacheSize bounds the CommonPrefixPredict memoization cache.
	CacheSize int `yaml:"cacheSize"`

	// FixedGrowthCells is parsed but not applied by any subcommand; build
	// takes its fixed growth size from --fixed-growth instead (§9 "Growth").
	FixedGrowthCells int `yaml:"fixedGrowthCells"`

	// ServeAddr is the default bind address for the serve subcommand.
	ServeAddr string `yaml:"serveAddr"`

	// MetricsEnabled turns on the prometheus registry passed to
	// datrie.WithMetrics.
	MetricsEnabled bool `yaml:"metricsEnabled"`
}

func defaultConfig() Config {
	return Config{
		CacheSize: 4096,
		ServeAddr: ":8732",
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrap(err, "parse config")
	}
	return cfg, nil
}
