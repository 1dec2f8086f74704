package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Server.TokenTTL)
	assert.Equal(t, "data/user_data.json", cfg.Data.UsersFile)
	assert.Equal(t, map[string]int{"user14": 900}, cfg.Scoring.Overrides)
	assert.Equal(t, 30*time.Second, cfg.Scoring.ResolveTimeout)
	assert.Equal(t, 30*time.Second, cfg.Advisor.Timeout)
	assert.Equal(t, "0 0 6 * * *", cfg.Schedule.SweepCron)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())

	at, err := cfg.EvaluationTime()
	require.NoError(t, err)
	assert.True(t, at.IsZero())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  token_ttl: 2h
scoring:
  evaluation_date: "2025-12-15"
  overrides:
    user01: 850
  resolve_timeout: 5s
advisor:
  provider: gemini
  model: gemini-2.0-flash
log:
  level: debug
  format: text
`)
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "7000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Addr, "env wins over file")
	assert.Equal(t, 2*time.Hour, cfg.Server.TokenTTL)
	assert.Equal(t, "s3cret", cfg.Server.JWTSecret)
	assert.Equal(t, map[string]int{"user01": 850}, cfg.Scoring.Overrides, "configured table replaces the default")
	assert.Equal(t, 5*time.Second, cfg.Advisor.Timeout)
	assert.Equal(t, "g-key", cfg.Advisor.APIKey)
	require.NoError(t, cfg.Validate())

	at, err := cfg.EvaluationTime()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC), at)

	log := cfg.NewLogger()
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad date", func(c *Config) { c.Scoring.EvaluationDate = "15/12/2025" }, "evaluation_date"},
		{"override out of range", func(c *Config) { c.Scoring.Overrides["user02"] = 950 }, "outside [300, 900]"},
		{"unknown provider", func(c *Config) { c.Advisor.Provider = "palm" }, "not supported"},
		{"provider without key", func(c *Config) { c.Advisor.Provider = "openai" }, "api_key is required"},
		{"half telegram", func(c *Config) { c.Telegram.BotToken = "t" }, "must be set together"},
		{"email without recipients", func(c *Config) { c.Email.SMTPHost = "smtp.example.com"; c.Email.From = "a@b.c" }, "email.to"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
