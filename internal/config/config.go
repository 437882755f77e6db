// Package config loads hdfs-sys settings from an optional YAML file and the
// environment.
//
// Every key can be set through an HDFS_SYS_ variable, with dots replaced by
// underscores (HDFS_SYS_CMAKE_GENERATOR=Ninja). The variables understood by
// earlier build scripts are honored as well: HDFS_LIB_DIR, HDFS_STATIC and
// HADOOP_HOME.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "HDFS_SYS"

// Config is the full hdfs-sys configuration.
type Config struct {
	// Features are the enabled version flags, e.g. hdfs_3_3.
	Features []string `mapstructure:"features"`
	Vendored bool     `mapstructure:"vendored"`
	Static   bool     `mapstructure:"static"`
	// Target is os/arch or a target triple; empty means the host.
	Target string `mapstructure:"target" validate:"omitempty,target"`

	LibDir     string `mapstructure:"lib_dir"`
	HadoopHome string `mapstructure:"hadoop_home"`
	JavaHome   string `mapstructure:"java_home"`

	VendorDir string `mapstructure:"vendor_dir"`
	WorkDir   string `mapstructure:"work_dir"`

	// SkipLink makes link print nothing, for documentation builds that
	// have neither Java nor libhdfs.
	SkipLink bool `mapstructure:"skip_link"`

	Log   LogConfig   `mapstructure:"log"`
	CMake CMakeConfig `mapstructure:"cmake"`
	Fetch FetchConfig `mapstructure:"fetch"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// CMakeConfig selects and tunes the native build tool.
type CMakeConfig struct {
	Bin       string `mapstructure:"bin"`
	Generator string `mapstructure:"generator"`
	BuildType string `mapstructure:"build_type" validate:"required,oneof=Debug Release RelWithDebInfo MinSizeRel"`
}

// FetchConfig controls `vendor fetch`.
type FetchConfig struct {
	Repo    string        `mapstructure:"repo" validate:"required"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// keys lists every configuration key so the environment can supply values
// for keys absent from the file.
var keys = []string{
	"features", "vendored", "static", "target",
	"lib_dir", "hadoop_home", "java_home",
	"vendor_dir", "work_dir", "skip_link",
	"log.level",
	"cmake.bin", "cmake.generator", "cmake.build_type",
	"fetch.repo", "fetch.timeout",
}

// legacyEnv maps keys to the variables older build scripts used.
var legacyEnv = map[string]string{
	"lib_dir":     "HDFS_LIB_DIR",
	"hadoop_home": "HADOOP_HOME",
}

// Load reads configPath (or hdfs-sys.yaml from the working directory and the
// user config directory when empty), overlays the environment, applies
// defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	if err := setupViper(v, configPath); err != nil {
		return nil, err
	}
	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	// HDFS_STATIC historically meant "static" whatever its value.
	if _, ok := os.LookupEnv("HDFS_STATIC"); ok {
		cfg.Static = true
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		names := []string{key}
		if legacy, ok := legacyEnv[key]; ok {
			names = append(names, EnvPrefix+"_"+strings.ToUpper(key), legacy)
		}
		if err := v.BindEnv(names...); err != nil {
			return err
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		return nil
	}
	v.SetConfigName("hdfs-sys")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(ConfigDir())
	return nil
}

func readConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to read config file: %w", err)
}

// ConfigDir returns $XDG_CONFIG_HOME/hdfs-sys, falling back to
// ~/.config/hdfs-sys and finally the working directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hdfs-sys")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "hdfs-sys")
}
