package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/ytget/ytgrab/internal/download"
	"github.com/ytget/ytgrab/internal/platform"
)

// EnvPrefix namespaces the environment variables read by Load
const EnvPrefix = "YTGRAB"

// Config is the headless configuration. Values come from Default, then the
// optional YAML file, then YTGRAB_* environment variables.
type Config struct {
	DownloadDir        string        `yaml:"download_dir" envconfig:"DOWNLOAD_DIR"`
	FFmpegLocation     string        `yaml:"ffmpeg_location" envconfig:"FFMPEG_LOCATION"`
	YTDLPPath          string        `yaml:"ytdlp_path" envconfig:"YTDLP_PATH"`
	LogLevel           string        `yaml:"log_level" envconfig:"LOG_LEVEL"`
	MaxStalledAttempts int           `yaml:"max_stalled_attempts" envconfig:"MAX_STALLED_ATTEMPTS"`
	MaxTotalAttempts   int           `yaml:"max_total_attempts" envconfig:"MAX_TOTAL_ATTEMPTS"`
	RetryDelay         time.Duration `yaml:"retry_delay" envconfig:"RETRY_DELAY"`
	CompatibilityPass  bool          `yaml:"compatibility_pass" envconfig:"COMPATIBILITY_PASS"`
	InstallYTDLP       bool          `yaml:"install_ytdlp" envconfig:"INSTALL_YTDLP"`
	ProgressInterval   time.Duration `yaml:"progress_interval" envconfig:"PROGRESS_INTERVAL"`
}

// Default returns the built-in configuration
func Default() *Config {
	dir, err := platform.GetHomeDownloadsDir()
	if err != nil {
		dir = fallbackDownloads
	}
	return &Config{
		DownloadDir:        dir,
		LogLevel:           "info",
		MaxStalledAttempts: download.DefaultMaxStalledAttempts,
		MaxTotalAttempts:   download.DefaultMaxTotalAttempts,
		RetryDelay:         download.DefaultRetryDelay,
		CompatibilityPass:  true,
		ProgressInterval:   download.DefaultProgressInterval,
	}
}

// Load reads configuration from an optional YAML file and the environment
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// only variables that are set override
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate rejects values the orchestrator cannot work with
func (c *Config) Validate() error {
	var errs []error
	if c.DownloadDir == "" {
		errs = append(errs, errors.New("download_dir is required"))
	}
	if c.MaxStalledAttempts <= 0 {
		errs = append(errs, fmt.Errorf("max_stalled_attempts must be positive, got %d", c.MaxStalledAttempts))
	}
	if c.MaxTotalAttempts <= 0 {
		errs = append(errs, fmt.Errorf("max_total_attempts must be positive, got %d", c.MaxTotalAttempts))
	}
	if c.MaxTotalAttempts > 0 && c.MaxTotalAttempts < c.MaxStalledAttempts {
		errs = append(errs, fmt.Errorf("max_total_attempts (%d) must not be below max_stalled_attempts (%d)", c.MaxTotalAttempts, c.MaxStalledAttempts))
	}
	if c.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("retry_delay must not be negative, got %s", c.RetryDelay))
	}
	if c.ProgressInterval <= 0 {
		errs = append(errs, fmt.Errorf("progress_interval must be positive, got %s", c.ProgressInterval))
	}
	return errors.Join(errs...)
}

// Options converts the configuration into orchestrator options
func (c *Config) Options() download.Options {
	return download.Options{
		MaxStalledAttempts: c.MaxStalledAttempts,
		MaxTotalAttempts:   c.MaxTotalAttempts,
		RetryDelay:         c.RetryDelay,
		CompatibilityPass:  c.CompatibilityPass,
		ProgressInterval:   c.ProgressInterval,
	}
}
