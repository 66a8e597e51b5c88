// Package shimconfig configures the preloaded shim. A preloaded library
// cannot take flags, so settings come from the environment, optionally
// seeded from a YAML file named by NCCLSPY_CONFIG.
package shimconfig

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultLibrary is the well-known file name of the genuine library.
const DefaultLibrary = "libnccl.so.2"

// Environment variables understood by the shim.
const (
	EnvConfig      = "NCCLSPY_CONFIG"
	EnvLibrary     = "NCCLSPY_LIBRARY"
	EnvTraceDir    = "NCCLSPY_TRACE_DIR"
	EnvMetricsAddr = "NCCLSPY_METRICS_ADDR"
	EnvLogLevel    = "NCCLSPY_LOG_LEVEL"
	EnvLogJSON     = "NCCLSPY_LOG_JSON"
	EnvRank        = "NCCLSPY_RANK"
)

// rankEnvFallbacks are the launcher-provided rank variables, in the order
// they are consulted when NCCLSPY_RANK is unset.
var rankEnvFallbacks = []string{"RANK", "OMPI_COMM_WORLD_RANK", "SLURM_PROCID"}

// Config holds the shim's runtime settings.
type Config struct {
	Library     string `yaml:"library"`
	TraceDir    string `yaml:"trace_dir"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	LogJSON     bool   `yaml:"log_json"`
	Rank        int    `yaml:"rank"`
}

// Default returns the zero-feature configuration: intercept and forward
// only, no tracing, no metrics.
func Default() Config {
	return Config{
		Library:  DefaultLibrary,
		LogLevel: "info",
	}
}

// FromEnv builds the shim configuration. Order of precedence:
// defaults, then the YAML file named by NCCLSPY_CONFIG, then environment
// variables. Errors never propagate out of the shim; a bad file or value
// falls back and is reported on the returned warning list.
func FromEnv() (Config, []string) {
	cfg := Default()
	var warnings []string

	if path := os.Getenv(EnvConfig); path != "" {
		if err := loadFile(&cfg, path); err != nil {
			warnings = append(warnings, fmt.Sprintf("config file ignored: %v", err))
		}
	}

	if v := os.Getenv(EnvLibrary); v != "" {
		cfg.Library = v
	}
	if v := os.Getenv(EnvTraceDir); v != "" {
		cfg.TraceDir = v
	}
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvLogJSON); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s=%q ignored: not a boolean", EnvLogJSON, v))
		} else {
			cfg.LogJSON = b
		}
	}

	if rank, warn := rankFromEnv(); warn != "" {
		warnings = append(warnings, warn)
	} else if rank >= 0 {
		cfg.Rank = rank
	}

	return cfg, warnings
}

// rankFromEnv reads the process rank. Returns -1 when no rank variable
// is set, leaving any file-provided rank in place.
func rankFromEnv() (int, string) {
	candidates := append([]string{EnvRank}, rankEnvFallbacks...)
	for _, key := range candidates {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		rank, err := strconv.Atoi(v)
		if err != nil || rank < 0 {
			return -1, fmt.Sprintf("%s=%q ignored: not a non-negative integer", key, v)
		}
		return rank, ""
	}
	return -1, ""
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if cfg.Library == "" {
		cfg.Library = DefaultLibrary
	}
	return nil
}
