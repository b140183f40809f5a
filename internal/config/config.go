package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"xray-mike/internal/models"

	"gopkg.in/yaml.v3"
)

// EnvLogLevel overrides log.level when set.
const EnvLogLevel = "XRAY_LOG_LEVEL"

type Config struct {
	Log        LogConfig        `yaml:"log"`
	Processing ProcessingConfig `yaml:"processing"`
	Defaults   models.Params    `yaml:"defaults"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Human bool   `yaml:"human"`
}

type ProcessingConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	OutputDir string        `yaml:"output_dir"`
}

func Default() Config {
	return Config{
		Log: LogConfig{
			Level: "info",
			Human: false,
		},
		Processing: ProcessingConfig{
			Timeout:   60 * time.Second,
			OutputDir: os.TempDir(),
		},
		Defaults: models.DefaultParams(),
	}
}

// Load reads a YAML file over Default(). An empty path or a missing file
// yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Log.Level = level
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Processing.Timeout <= 0 {
		return fmt.Errorf("processing.timeout must be positive, got %v", c.Processing.Timeout)
	}

	if c.Processing.OutputDir == "" {
		return fmt.Errorf("processing.output_dir must not be empty")
	}

	if err := c.Defaults.Validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}

	return nil
}
