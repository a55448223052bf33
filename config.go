package vegascript

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/everydev1618/vegascript/interp"
)

// Default configuration values
const (
	// DefaultMaxTicks bounds one `run` invocation of the CLI.
	DefaultMaxTicks = 10000

	// DefaultStore is the store driver used when none is configured.
	DefaultStore = "sqlite"

	// DefaultLogLevel is the level of the CLI log handler.
	DefaultLogLevel = "info"
)

// Config is the YAML configuration of the vegascript CLI and of hosts that
// want the same knobs.
//
//	max_ticks: 5000
//	deadline: 30s
//	store: json
//	state_dir: ./agents
//	log:
//	  level: debug
//	tools:
//	  - ./tools/approval.yaml
//	settings:
//	  api_base: https://example.test
type Config struct {
	MaxTicks float64        `yaml:"max_ticks"`
	Deadline string         `yaml:"deadline"`
	Store    string         `yaml:"store"`
	DBPath   string         `yaml:"db_path"`
	StateDir string         `yaml:"state_dir"`
	Log      LogConfig      `yaml:"log"`
	Tools    []string       `yaml:"tools"`
	Settings map[string]any `yaml:"settings"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// LoadConfig reads a YAML config file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		base := filepath.Dir(path)
		for i, p := range cfg.Tools {
			if !filepath.IsAbs(p) {
				cfg.Tools[i] = filepath.Join(base, p)
			}
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.MaxTicks == 0 {
		c.MaxTicks = DefaultMaxTicks
	}
	if c.Store == "" {
		c.Store = DefaultStore
	}
	if c.DBPath == "" {
		c.DBPath = DefaultDBPath()
	}
	if c.StateDir == "" {
		c.StateDir = StatePath()
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.MaxTicks < 0 {
		return fmt.Errorf("%w: max_ticks must not be negative", ErrInvalidConfig)
	}
	if c.Deadline != "" {
		if d, err := time.ParseDuration(c.Deadline); err != nil || d <= 0 {
			return fmt.Errorf("%w: deadline %q is not a positive duration", ErrInvalidConfig, c.Deadline)
		}
	}
	switch c.Store {
	case "", "json", "sqlite":
	default:
		return fmt.Errorf("%w: unknown store %q (want json or sqlite)", ErrInvalidConfig, c.Store)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Log.Level)
}

// Controller builds a tick controller from MaxTicks and Deadline.
func (c *Config) Controller() *interp.RuntimeController {
	opts := []interp.ControllerOption{interp.WithQuota(c.MaxTicks)}
	if d, err := time.ParseDuration(c.Deadline); err == nil && d > 0 {
		opts = append(opts, interp.WithTimeout(d))
	}
	return interp.NewController(opts...)
}
