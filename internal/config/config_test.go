package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.AI.APIKey = "sk-test"
	cfg.Database.Path = "/tmp/test.db"
	cfg.Approval.Secret = "shh"
	return cfg
}

// TestDefaultConfig tests the shipped defaults
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "gpt-4o", cfg.AI.Model)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, "http://localhost:5000", cfg.Approval.BaseURL)
	assert.Equal(t, "*/15 * * * *", cfg.Sweeper.Schedule)
	assert.False(t, cfg.Sweeper.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

// TestConfig_Validate tests each validation rule
func TestConfig_Validate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	missingKey := validConfig()
	missingKey.AI.APIKey = ""
	assert.Error(t, missingKey.Validate())

	badProvider := validConfig()
	badProvider.AI.Provider = "gemini"
	assert.Error(t, badProvider.Validate())

	missingModel := validConfig()
	missingModel.AI.Model = ""
	assert.Error(t, missingModel.Validate())

	missingDB := validConfig()
	missingDB.Database.Path = ""
	assert.Error(t, missingDB.Validate())

	missingSecret := validConfig()
	missingSecret.Approval.Secret = ""
	assert.Error(t, missingSecret.Validate())

	smtpWithoutFrom := validConfig()
	smtpWithoutFrom.SMTP.Host = "mail.example.com"
	assert.Error(t, smtpWithoutFrom.Validate())

	smtpComplete := validConfig()
	smtpComplete.SMTP.Host = "mail.example.com"
	smtpComplete.SMTP.From = "desk@example.com"
	assert.NoError(t, smtpComplete.Validate())
}

// TestConfig_String_MasksSecrets tests that secrets never leak through String
func TestConfig_String_MasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.SMTP.Password = "hunter2"

	s := cfg.String()
	assert.NotContains(t, s, "sk-test")
	assert.NotContains(t, s, "hunter2")
	assert.NotContains(t, s, "shh")
	assert.Contains(t, s, "***")
}
