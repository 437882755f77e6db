package config

import (
	"strings"
	"time"
)

// DefaultFetchRepo is the upstream repository `vendor fetch` clones.
const DefaultFetchRepo = "https://github.com/apache/hadoop.git"

// ApplyDefaults fills unset fields. Explicit values are kept; the log level
// is normalized to lower case.
func ApplyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	if cfg.CMake.BuildType == "" {
		cfg.CMake.BuildType = "Release"
	}
	if cfg.Fetch.Repo == "" {
		cfg.Fetch.Repo = DefaultFetchRepo
	}
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = 30 * time.Minute
	}

	features := cfg.Features[:0]
	for _, f := range cfg.Features {
		if f = strings.TrimSpace(f); f != "" {
			features = append(features, f)
		}
	}
	cfg.Features = features
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
