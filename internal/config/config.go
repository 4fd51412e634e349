package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main QueryDesk configuration
type Config struct {
	// AI provider
	AI AIConfig `json:"ai" mapstructure:"ai"`

	// Ticket database
	Database DatabaseConfig `json:"database" mapstructure:"database"`

	// Outbound mail
	SMTP SMTPConfig `json:"smtp" mapstructure:"smtp"`

	// Manager approval links
	Approval ApprovalConfig `json:"approval" mapstructure:"approval"`

	// Background resolution sweeps
	Sweeper SweeperConfig `json:"sweeper" mapstructure:"sweeper"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Prometheus scrape endpoint for the sweep service
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// AIConfig holds the model provider settings
type AIConfig struct {
	Provider    string  `json:"provider" mapstructure:"provider"` // openai, anthropic
	APIKey      string  `json:"api_key" mapstructure:"api_key"`
	BaseURL     string  `json:"base_url" mapstructure:"base_url"`
	Model       string  `json:"model" mapstructure:"model"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens" mapstructure:"max_tokens"`
}

// DatabaseConfig holds the SQLite store location
type DatabaseConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// SMTPConfig holds outbound mail settings. Leave Host empty to log
// notifications instead of sending them.
type SMTPConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	From     string `json:"from" mapstructure:"from"`
}

// ApprovalConfig holds the approval token secret and the base URL
// embedded in approve/reject links
type ApprovalConfig struct {
	Secret  string `json:"secret" mapstructure:"secret"`
	BaseURL string `json:"base_url" mapstructure:"base_url"`
}

// SweeperConfig controls the periodic batch resolution run
type SweeperConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Schedule string `json:"schedule" mapstructure:"schedule"` // 5-field cron expression
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `json:"level" mapstructure:"level"`
	File  string `json:"file" mapstructure:"file"`
}

// MetricsConfig holds the metrics listen address. Leave Addr empty to
// disable the endpoint.
type MetricsConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		AI: AIConfig{
			Provider:    "openai",
			Model:       "gpt-4o",
			Temperature: 0.2,
			MaxTokens:   4096,
		},
		SMTP: SMTPConfig{
			Port: 587,
		},
		Approval: ApprovalConfig{
			BaseURL: "http://localhost:5000",
		},
		Sweeper: SweeperConfig{
			Enabled:  false,
			Schedule: "*/15 * * * *",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Addr: ":9091",
		},
	}
}

// String returns a JSON representation of the config with secrets masked
func (c *Config) String() string {
	masked := *c
	if masked.AI.APIKey != "" {
		masked.AI.APIKey = "***"
	}
	if masked.SMTP.Password != "" {
		masked.SMTP.Password = "***"
	}
	if masked.Approval.Secret != "" {
		masked.Approval.Secret = "***"
	}
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key is required")
	}
	if c.AI.Provider != "openai" && c.AI.Provider != "anthropic" {
		return fmt.Errorf("invalid ai.provider %q (must be: openai, anthropic)", c.AI.Provider)
	}
	if c.AI.Model == "" {
		return fmt.Errorf("ai.model is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Approval.Secret == "" {
		return fmt.Errorf("approval.secret is required")
	}
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		return fmt.Errorf("smtp.from is required when smtp.host is set")
	}
	return nil
}
