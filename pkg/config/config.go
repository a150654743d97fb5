// Package config loads the generation job configuration from a YAML
// file. Environment variables referenced as ${VAR} or $VAR are expanded
// before parsing, so API keys can live in the environment (for instance
// loaded from a .env file) instead of the config.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Load for fields left unset.
const (
	DefaultBaseURL   = "https://api.openai.com"
	DefaultModel     = "text-davinci-003"
	DefaultBatchSize = 5
	DefaultSleep     = "10s"
)

// Config is the top-level job configuration.
type Config struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
	Model   string `yaml:"model"`

	PromptTemplate string `yaml:"prompt_template"`
	SeedTasks      string `yaml:"seed_tasks"`
	Output         string `yaml:"output"`

	BatchSize    int    `yaml:"batch_size"`
	MaxInstances int    `yaml:"max_instances"` // 0 = no limit
	Sleep        string `yaml:"sleep"`         // pause before retrying a rate-limited batch, e.g. "10s"

	Retry    RetryConfig    `yaml:"retry"`
	Decoding DecodingConfig `yaml:"decoding"`
	Generate GenerateConfig `yaml:"generate"`
}

// RetryConfig bounds the per-batch retry loop.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"` // 0 = retry until success
	MinTokens   int `yaml:"min_tokens"`   // floor for context-window shrinking
}

// DecodingConfig overrides the default decoding parameters. Pointer
// fields distinguish "unset" from an explicit zero.
type DecodingConfig struct {
	MaxTokens   int      `yaml:"max_tokens"`
	Temperature *float64 `yaml:"temperature"`
	TopP        *float64 `yaml:"top_p"`
	N           int      `yaml:"n"`
	Stop        []string `yaml:"stop"`
}

// GenerateConfig shapes a generation run.
type GenerateConfig struct {
	Requests       int `yaml:"requests"`         // completion calls to issue
	SeedsPerPrompt int `yaml:"seeds_per_prompt"` // seed examples encoded into each prompt
}

// Load reads a YAML file, expands environment references, and returns a
// Config with defaults applied. An empty api_key falls back to the
// OPENAI_API_KEY environment variable.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("config: load: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Sleep == "" {
		cfg.Sleep = DefaultSleep
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return cfg, nil
}

// SleepDuration parses the configured retry pause.
func (c Config) SleepDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Sleep)
	if err != nil {
		return 0, fmt.Errorf("config: parse sleep: %w", err)
	}

	return d, nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("config: api_key is required (set it or OPENAI_API_KEY)")
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("config: batch_size must be positive, got %d", c.BatchSize)
	}

	if c.PromptTemplate == "" {
		return fmt.Errorf("config: prompt_template is required")
	}

	if c.SeedTasks == "" {
		return fmt.Errorf("config: seed_tasks is required")
	}

	if c.Output == "" {
		return fmt.Errorf("config: output is required")
	}

	if _, err := c.SleepDuration(); err != nil {
		return err
	}

	if c.Decoding.N < 0 {
		return fmt.Errorf("config: decoding.n must not be negative, got %d", c.Decoding.N)
	}

	return nil
}
