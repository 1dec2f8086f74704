package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DateLayout is the format of scoring.evaluation_date.
const DateLayout = "2006-01-02"

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr      string        `yaml:"addr"`
		JWTSecret string        `yaml:"jwt_secret"`
		TokenTTL  time.Duration `yaml:"token_ttl"`
	} `yaml:"server"`
	Data struct {
		UsersFile string `yaml:"users_file"`
	} `yaml:"data"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Scoring struct {
		EvaluationDate string         `yaml:"evaluation_date"`
		Overrides      map[string]int `yaml:"overrides"`
		ResolveTimeout time.Duration  `yaml:"resolve_timeout"`
	} `yaml:"scoring"`
	Advisor struct {
		Provider    string        `yaml:"provider"`
		APIKey      string        `yaml:"api_key"`
		BaseURL     string        `yaml:"base_url"`
		Model       string        `yaml:"model"`
		Temperature float32       `yaml:"temperature"`
		Timeout     time.Duration `yaml:"timeout"`
		MaxRetries  int           `yaml:"max_retries"`
	} `yaml:"advisor"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Email struct {
		SMTPHost string   `yaml:"smtp_host"`
		SMTPPort int      `yaml:"smtp_port"`
		Username string   `yaml:"username"`
		Password string   `yaml:"password"`
		From     string   `yaml:"from"`
		To       []string `yaml:"to"`
	} `yaml:"email"`
	Schedule struct {
		SweepCron  string `yaml:"sweep_cron"`
		DigestCron string `yaml:"digest_cron"`
	} `yaml:"schedule"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Server.JWTSecret = v
	}
	if v := os.Getenv("USERS_FILE"); v != "" {
		c.Data.UsersFile = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("EVALUATION_DATE"); v != "" {
		c.Scoring.EvaluationDate = v
	}
	if v := os.Getenv("ADVISOR_PROVIDER"); v != "" {
		c.Advisor.Provider = v
	}
	switch {
	case os.Getenv("ADVISOR_API_KEY") != "":
		c.Advisor.APIKey = os.Getenv("ADVISOR_API_KEY")
	case c.Advisor.Provider == "gemini" && os.Getenv("GEMINI_API_KEY") != "":
		c.Advisor.APIKey = os.Getenv("GEMINI_API_KEY")
	case c.Advisor.Provider == "openai" && os.Getenv("NEBIUS_API_KEY") != "":
		c.Advisor.APIKey = os.Getenv("NEBIUS_API_KEY")
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Email.Password = v
	}
	if v := os.Getenv("CRON_SWEEP"); v != "" {
		c.Schedule.SweepCron = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("ADVISOR_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Advisor.MaxRetries = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.TokenTTL == 0 {
		c.Server.TokenTTL = 24 * time.Hour
	}
	if c.Data.UsersFile == "" {
		c.Data.UsersFile = "data/user_data.json"
	}
	if c.Scoring.Overrides == nil {
		c.Scoring.Overrides = map[string]int{"user14": 900}
	}
	if c.Scoring.ResolveTimeout == 0 {
		c.Scoring.ResolveTimeout = 30 * time.Second
	}
	if c.Advisor.Timeout == 0 {
		c.Advisor.Timeout = c.Scoring.ResolveTimeout
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Schedule.SweepCron == "" {
		c.Schedule.SweepCron = "0 0 6 * * *"
	}
	if c.Schedule.DigestCron == "" {
		c.Schedule.DigestCron = "0 0 9 * * 1"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate checks that all fields are consistent.
func (c *Config) Validate() error {
	if c.Data.UsersFile == "" {
		return fmt.Errorf("data.users_file is required")
	}
	if _, err := c.EvaluationTime(); err != nil {
		return err
	}
	for user, score := range c.Scoring.Overrides {
		if score < 300 || score > 900 {
			return fmt.Errorf("scoring.overrides.%s: %d is outside [300, 900]", user, score)
		}
	}
	switch c.Advisor.Provider {
	case "", "static":
	case "gemini", "openai":
		if c.Advisor.APIKey == "" {
			return fmt.Errorf("advisor.api_key is required for provider %q", c.Advisor.Provider)
		}
	default:
		return fmt.Errorf("advisor.provider %q is not supported", c.Advisor.Provider)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if c.Email.SMTPHost != "" && (c.Email.From == "" || len(c.Email.To) == 0) {
		return fmt.Errorf("email.from and email.to are required when email.smtp_host is set")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("log.format must be json or text")
	}
	return nil
}

// EvaluationTime returns the configured evaluation date, or the zero time
// when the clock should be used.
func (c *Config) EvaluationTime() (time.Time, error) {
	if c.Scoring.EvaluationDate == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, c.Scoring.EvaluationDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("scoring.evaluation_date: %w", err)
	}
	return t, nil
}

// NewLogger builds the process logger from the log section.
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	if c.Log.Format == "text" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	if lvl, err := logrus.ParseLevel(c.Log.Level); err == nil {
		log.SetLevel(lvl)
	}
	return log
}
