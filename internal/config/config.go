package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

type ServerConfig struct {
	Port            int           `yaml:"port" env:"PORT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-separator:","`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"DB_DRIVER"`
	DSN    string `yaml:"url" env:"DATABASE_URL"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"JWT_TTL"`
}

type TickTickConfig struct {
	ClientID         string        `yaml:"client_id" env:"TICKTICK_CLIENT_ID"`
	ClientSecret     string        `yaml:"client_secret" env:"TICKTICK_CLIENT_SECRET"`
	RedirectURI      string        `yaml:"redirect_uri" env:"TICKTICK_REDIRECT_URI"`
	APIBaseURL       string        `yaml:"api_base_url" env:"TICKTICK_API_URL"`
	AuthURL          string        `yaml:"auth_url" env:"TICKTICK_AUTH_URL"`
	TokenURL         string        `yaml:"token_url" env:"TICKTICK_TOKEN_URL"`
	Timeout          time.Duration `yaml:"timeout" env:"TICKTICK_TIMEOUT"`
	PushTimeout      time.Duration `yaml:"push_timeout" env:"TICKTICK_PUSH_TIMEOUT"`
	CacheMaxAge      time.Duration `yaml:"cache_max_age" env:"TICKTICK_CACHE_MAX_AGE"`
	AutoSyncInterval time.Duration `yaml:"auto_sync_interval" env:"TICKTICK_AUTO_SYNC_INTERVAL"`
	TokenSecret      string        `yaml:"token_secret" env:"TICKTICK_TOKEN_SECRET"`
}

type AnthropicConfig struct {
	APIKey    string        `yaml:"api_key" env:"ANTHROPIC_API_KEY"`
	Model     string        `yaml:"model" env:"ANTHROPIC_MODEL"`
	BaseURL   string        `yaml:"base_url" env:"ANTHROPIC_BASE_URL"`
	MaxTokens int           `yaml:"max_tokens" env:"ANTHROPIC_MAX_TOKENS"`
	Timeout   time.Duration `yaml:"timeout" env:"ANTHROPIC_TIMEOUT"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	Enabled  bool   `yaml:"enabled" env:"TELEGRAM_ENABLED"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host" env:"SMTP_HOST"`
	SMTPPort     int    `yaml:"smtp_port" env:"SMTP_PORT"`
	SMTPUser     string `yaml:"smtp_user" env:"SMTP_USER"`
	SMTPPassword string `yaml:"smtp_password" env:"SMTP_PASSWORD"`
	FromEmail    string `yaml:"from_email" env:"SMTP_FROM"`
}

type ReportsConfig struct {
	FontPath string `yaml:"font_path" env:"REPORT_FONT_PATH"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	TickTick  TickTickConfig  `yaml:"ticktick"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Email     EmailConfig     `yaml:"email"`
	Reports   ReportsConfig   `yaml:"reports"`
}

// Load reads the YAML file at path, applies environment overrides and fills
// defaults. A missing file is not an error; env and defaults still apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	var cfg Config

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		log.Printf("[config][load] %s not found, using environment and defaults", path)
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := cleanenv.UpdateEnv(&cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "file:tomanage.db"
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}

	t := &c.TickTick
	if t.APIBaseURL == "" {
		t.APIBaseURL = "https://api.ticktick.com/open/v1"
	}
	if t.AuthURL == "" {
		t.AuthURL = "https://ticktick.com/oauth/authorize"
	}
	if t.TokenURL == "" {
		t.TokenURL = "https://ticktick.com/oauth/token"
	}
	if t.Timeout <= 0 {
		t.Timeout = 30 * time.Second
	}
	if t.PushTimeout <= 0 {
		t.PushTimeout = 15 * time.Second
	}
	if t.CacheMaxAge <= 0 {
		t.CacheMaxAge = 60 * time.Second
	}
	if t.AutoSyncInterval <= 0 {
		t.AutoSyncInterval = 5 * time.Minute
	}
	if t.TokenSecret == "" {
		t.TokenSecret = c.Auth.JWTSecret
	}

	a := &c.Anthropic
	if a.Timeout <= 0 {
		a.Timeout = 60 * time.Second
	}
	if a.MaxTokens <= 0 {
		a.MaxTokens = 4096
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (JWT_SECRET) is required")
	}
	if c.TickTick.TokenSecret == "" {
		return errors.New("ticktick.token_secret (TICKTICK_TOKEN_SECRET) is required")
	}
	return nil
}
