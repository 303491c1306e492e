// Package config loads and validates the relay configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/haasonsaas/relay/internal/usage"
)

// ValidationError reports a configuration field that is missing or invalid.
// Pipeline errors caused by it map to the misconfiguration notice rather than
// the generic failure notice.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Reason)
}

// Config is the top-level relay configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Model    ModelConfig    `yaml:"model"`
	Agent    AgentConfig    `yaml:"agent"`
	Tools    ToolsConfig    `yaml:"tools"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Pricing  usage.Pricing  `yaml:"pricing"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
}

type ModelConfig struct {
	APIKey         string        `yaml:"api_key"`
	BaseURL        string        `yaml:"base_url"`
	Model          string        `yaml:"model"`
	MaxTokens      int           `yaml:"max_tokens"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type AgentConfig struct {
	SystemPrompt      string `yaml:"system_prompt"`
	MaxToolIterations int    `yaml:"max_tool_iterations"`
}

type ToolsConfig struct {
	Workspace     string        `yaml:"workspace"`
	MaxReadBytes  int           `yaml:"max_read_bytes"`
	FetchMaxBytes int           `yaml:"fetch_max_bytes"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load reads and parses the configuration file. An empty path yields a
// configuration built from defaults and environment variables only.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables
		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

// applyEnv lets environment variables override secrets so they never need to
// live in the config file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Model.APIKey = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Model.Model == "" {
		cfg.Model.Model = "claude-sonnet-4-20250514"
	}
	if cfg.Model.MaxTokens == 0 {
		cfg.Model.MaxTokens = 4096
	}
	if cfg.Model.RequestTimeout == 0 {
		cfg.Model.RequestTimeout = 120 * time.Second
	}
	if cfg.Agent.MaxToolIterations == 0 {
		cfg.Agent.MaxToolIterations = 10
	}
	if cfg.Tools.Workspace == "" {
		cfg.Tools.Workspace = "."
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
}

// Validate checks that every required field is present.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return &ValidationError{Field: "telegram.bot_token", Reason: "is required"}
	}
	if c.Model.APIKey == "" {
		return &ValidationError{Field: "model.api_key", Reason: "is required"}
	}
	if c.Agent.MaxToolIterations < 1 {
		return &ValidationError{Field: "agent.max_tool_iterations", Reason: "must be at least 1"}
	}
	return nil
}
