// Package config loads crossbind settings from a YAML file, a .env file
// and CROSSBIND_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/crossbind/internal/ownership"
)

// DefaultFile is read when no config path is given and it exists.
const DefaultFile = "crossbind.yaml"

// Environment variables overriding file settings.
const (
	EnvCatalog              = "CROSSBIND_CATALOG"
	EnvLogLevel             = "CROSSBIND_LOG_LEVEL"
	EnvLogFormat            = "CROSSBIND_LOG_FORMAT"
	EnvParentArgument       = "CROSSBIND_PARENT_ARGUMENT"
	EnvReturnHeuristic      = "CROSSBIND_RETURN_HEURISTIC"
	EnvParentAccessorPrefix = "CROSSBIND_PARENT_ACCESSOR_PREFIX"
)

type Config struct {
	// Catalog is the SQLite database compiled builds are written to.
	Catalog string `yaml:"catalog"`

	Log struct {
		Level  string `yaml:"level"`  // debug | info | warn | error
		Format string `yaml:"format"` // text | json
	} `yaml:"log"`

	Heuristics struct {
		// An empty parent_argument disables the constructor parent rule,
		// so unset and empty are kept apart.
		ParentArgument       *string `yaml:"parent_argument"`
		ReturnValue          *bool   `yaml:"return_value"`
		ParentAccessorPrefix *string `yaml:"parent_accessor_prefix"`
	} `yaml:"heuristics"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{Catalog: "crossbind.db"}
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return cfg
}

// Load reads the config file at path. An empty path falls back to
// DefaultFile when present. A .env file in the working directory and the
// process environment override the file.
func Load(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	required := path != ""
	if !required {
		path = DefaultFile
	}
	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case !required && errors.Is(err, fs.ErrNotExist):
		// no config file, defaults apply
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	// 3. Override with Environment Variables if present
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvCatalog); v != "" {
		c.Catalog = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Log.Format = v
	}
	if v, ok := os.LookupEnv(EnvParentArgument); ok {
		c.Heuristics.ParentArgument = &v
	}
	if v, ok := os.LookupEnv(EnvParentAccessorPrefix); ok {
		c.Heuristics.ParentAccessorPrefix = &v
	}
	if v := os.Getenv(EnvReturnHeuristic); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvReturnHeuristic, err)
		}
		c.Heuristics.ReturnValue = &b
	}
	return nil
}

// Validate rejects settings the CLI cannot act on.
func (c *Config) Validate() error {
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", c.Log.Format)
	}
	if c.Catalog == "" {
		return errors.New("catalog path is empty")
	}
	return nil
}

// LogLevel parses the configured log level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return level, nil
}

// OwnershipHeuristics returns the default heuristics with the configured
// fields replaced.
func (c *Config) OwnershipHeuristics() ownership.Heuristics {
	h := ownership.DefaultHeuristics()
	if c.Heuristics.ParentArgument != nil {
		h.ParentArgument = *c.Heuristics.ParentArgument
	}
	if c.Heuristics.ReturnValue != nil {
		h.ReturnValue = *c.Heuristics.ReturnValue
	}
	if c.Heuristics.ParentAccessorPrefix != nil {
		h.ParentAccessorPrefix = *c.Heuristics.ParentAccessorPrefix
	}
	return h
}
