// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Cargo   CargoConfig   `mapstructure:"cargo" yaml:"cargo"`
	Scoring ScoringConfig `mapstructure:"scoring" yaml:"scoring"`
	Eval    EvalConfig    `mapstructure:"eval" yaml:"eval"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Results ResultsConfig `mapstructure:"results" yaml:"results"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// CargoConfig describes how cargo invocations are constructed.
type CargoConfig struct {
	// Bin is the cargo executable name or path.
	Bin string `mapstructure:"bin" yaml:"bin"`
	// ManifestPath points at a Cargo.toml; empty lets cargo search for it.
	ManifestPath string `mapstructure:"manifest_path" yaml:"manifest_path"`
	// Target is the target triple (e.g. x86_64-unknown-linux-gnu).
	Target string `mapstructure:"target" yaml:"target"`
	// Release selects the release profile instead of debug.
	Release bool `mapstructure:"release" yaml:"release"`
	// Nightly runs cargo through the nightly toolchain channel.
	Nightly bool `mapstructure:"nightly" yaml:"nightly"`
	// Timeout bounds a single cargo invocation. The process is killed and the
	// evaluation reported as timed out when it elapses.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ScoringConfig holds the penalty formula parameters.
type ScoringConfig struct {
	UseClippy      bool    `mapstructure:"use_clippy" yaml:"use_clippy"`
	AllowWarnings  bool    `mapstructure:"allow_warnings" yaml:"allow_warnings"`
	ErrorPenalty   float64 `mapstructure:"error_penalty" yaml:"error_penalty"`
	WarningPenalty float64 `mapstructure:"warning_penalty" yaml:"warning_penalty"`
	ClippyPenalty  float64 `mapstructure:"clippy_penalty" yaml:"clippy_penalty"`
}

// EvalConfig controls batch evaluation behavior.
type EvalConfig struct {
	// Concurrency bounds how many evaluations run in parallel. Each
	// evaluation owns a private workspace; they never share a tree.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
	// WorkDir is the parent directory for per-evaluation checkouts; empty
	// uses the system temp directory.
	WorkDir string `mapstructure:"work_dir" yaml:"work_dir"`
	// KeepWorkspaceOnFailure leaves a failed evaluation's checkout on disk
	// for inspection instead of deleting it.
	KeepWorkspaceOnFailure bool `mapstructure:"keep_workspace_on_failure" yaml:"keep_workspace_on_failure"`
}

// LLMConfig configures the model client used to generate candidate patches.
type LLMConfig struct {
	Model             string  `mapstructure:"model" yaml:"model"`
	APIKey            string  `mapstructure:"api_key" yaml:"api_key"`
	Temperature       float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens         int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `mapstructure:"burst" yaml:"burst"`
}

// ResultsConfig configures the optional Postgres result sink.
type ResultsConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	PostgresURL string `mapstructure:"postgres_url" yaml:"postgres_url"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "openzt-eval")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Cargo --
	v.SetDefault("cargo.bin", "cargo")
	v.SetDefault("cargo.release", false)
	v.SetDefault("cargo.nightly", false)
	v.SetDefault("cargo.timeout", "5m")

	// -- Scoring --
	v.SetDefault("scoring.use_clippy", true)
	v.SetDefault("scoring.allow_warnings", true)
	v.SetDefault("scoring.error_penalty", 1.0)
	v.SetDefault("scoring.warning_penalty", 0.1)
	v.SetDefault("scoring.clippy_penalty", 0.05)

	// -- Eval --
	v.SetDefault("eval.concurrency", 4)
	v.SetDefault("eval.work_dir", "")
	v.SetDefault("eval.keep_workspace_on_failure", false)

	// -- LLM --
	v.SetDefault("llm.model", "gemini-2.5-pro")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.requests_per_second", 1.0)
	v.SetDefault("llm.burst", 1)

	// -- Results --
	v.SetDefault("results.enabled", false)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	v.BindEnv("llm.api_key", "OPENZT_LLM_API_KEY")
	v.BindEnv("results.postgres_url", "OPENZT_RESULTS_POSTGRES_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Manually load the key if Unmarshal didn't pick it up.
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENZT_LLM_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Cargo.Bin == "" {
		return fmt.Errorf("cargo.bin must not be empty")
	}
	if c.Cargo.Timeout <= 0 {
		return fmt.Errorf("cargo.timeout must be a positive duration")
	}
	if c.Eval.Concurrency <= 0 {
		return fmt.Errorf("eval.concurrency must be a positive integer")
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring configuration invalid: %w", err)
	}
	if c.Results.Enabled && c.Results.PostgresURL == "" {
		return fmt.Errorf("results.postgres_url is required when results.enabled is set")
	}
	return nil
}

// Validate checks the penalty parameters.
func (s *ScoringConfig) Validate() error {
	if s.ErrorPenalty < 0 || s.WarningPenalty < 0 || s.ClippyPenalty < 0 {
		return fmt.Errorf("penalties must be non-negative")
	}
	return nil
}
