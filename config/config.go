// Package config loads dyntype settings from YAML files and DYNTYPE_*
// environment variables.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/dyntype/errors"
)

// Config holds all dyntype settings.
type Config struct {
	Nexus      NexusConfig   `yaml:"nexus"`
	Naming     NamingConfig  `yaml:"naming"`
	Resolution string        `yaml:"resolution"` // passive, active, active-required, lazy, disabled
	Persist    PersistConfig `yaml:"persist"`
	Logging    LoggingConfig `yaml:"logging"`
}

// NexusConfig configures initializer dispatch.
type NexusConfig struct {
	Disabled bool `yaml:"disabled"`
}

// NamingConfig configures names of unnamed types.
type NamingConfig struct {
	Suffix string `yaml:"suffix"`
}

// PersistConfig configures where built types are written.
type PersistConfig struct {
	Dir     string `yaml:"dir"`
	Archive bool   `yaml:"archive"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Naming:     NamingConfig{Suffix: "dyntype"},
		Resolution: "passive",
		Persist:    PersistConfig{Dir: "."},
		Logging:    LoggingConfig{Level: "warn", Format: "console"},
	}
}

// Load reads a YAML file over the defaults and applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			cfg.ApplyEnv()
			return cfg, cfg.Validate()
		}
		return nil, errors.IO(errors.PhaseConfig, "read "+path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "failed to parse config")
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.IO(errors.PhaseConfig, "mkdir "+filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "failed to marshal config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.IO(errors.PhaseConfig, "write "+path, err)
	}
	return nil
}

// ApplyEnv overrides settings from DYNTYPE_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("DYNTYPE_NEXUS_DISABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Nexus.Disabled = b
		}
	}
	if v := os.Getenv("DYNTYPE_NAMING_SUFFIX"); v != "" {
		c.Naming.Suffix = v
	}
	if v := os.Getenv("DYNTYPE_RESOLUTION"); v != "" {
		c.Resolution = v
	}
	if v := os.Getenv("DYNTYPE_PERSIST_DIR"); v != "" {
		c.Persist.Dir = v
	}
	if v := os.Getenv("DYNTYPE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DYNTYPE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

// Validate checks values that are otherwise only caught on use.
func (c *Config) Validate() error {
	switch c.Resolution {
	case "", "passive", "active", "active-required", "lazy", "disabled":
	default:
		return errors.InvalidInput(errors.PhaseConfig, "unknown resolution strategy "+strconv.Quote(c.Resolution))
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); c.Logging.Level != "" && err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "invalid log level")
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return errors.InvalidInput(errors.PhaseConfig, "unknown log format "+strconv.Quote(c.Logging.Format))
	}
	return nil
}

// Logger builds a zap logger writing to stderr at the configured level.
func (c *Config) Logger() (*zap.Logger, error) {
	level := zapcore.WarnLevel
	if c.Logging.Level != "" {
		l, err := zapcore.ParseLevel(c.Logging.Level)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "invalid log level")
		}
		level = l
	}
	zc := zap.NewProductionConfig()
	if c.Logging.Format != "json" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}
