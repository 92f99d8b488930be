// Package config loads server configuration from environment variables.
//
// Every tunable lives in one struct, processed once at startup with
// envconfig. Variables are grouped by prefix, e.g. SERVER_PORT,
// AUTH_SESSION_TTL, RATE_LIMIT_MARKET_PER_MIN.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server    ServerConfig    `envconfig:"SERVER"`
	DB        DBConfig        `envconfig:"DB"`
	Auth      AuthConfig      `envconfig:"AUTH"`
	RateLimit RateLimitConfig `envconfig:"RATE_LIMIT"`
	Chatbot   ChatbotConfig   `envconfig:"CHATBOT"`
	Upload    UploadConfig    `envconfig:"UPLOAD"`
	Log       LogConfig       `envconfig:"LOG"`
}

type ServerConfig struct {
	Port         int           `envconfig:"PORT" default:"5000"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout  time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
}

type DBConfig struct {
	Path string `envconfig:"PATH" default:"data/campushub.db"`
}

type AuthConfig struct {
	// SessionTTL bounds how long a bearer token stays valid after login.
	// Zero disables expiry entirely (tokens live until logout or restart).
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"72h"`
	// ResetTokenTTL bounds the single-use password-reset token.
	ResetTokenTTL time.Duration `envconfig:"RESET_TOKEN_TTL" default:"5m"`
	BcryptCost    int           `envconfig:"BCRYPT_COST" default:"10"`
}

// RateLimitConfig holds per-minute creation budgets, keyed by route group.
// The values mirror the limits the campus deployment has always run with.
type RateLimitConfig struct {
	LostPerMin   int `envconfig:"LOST_PER_MIN" default:"20"`
	PaperPerMin  int `envconfig:"PAPER_PER_MIN" default:"10"`
	MarketPerMin int `envconfig:"MARKET_PER_MIN" default:"15"`
}

type ChatbotConfig struct {
	APIKey  string        `envconfig:"API_KEY" default:""`
	BaseURL string        `envconfig:"BASE_URL" default:"https://api.groq.com/openai/v1"`
	Model   string        `envconfig:"MODEL" default:"llama-3.1-8b-instant"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"15s"`
}

type UploadConfig struct {
	Dir string `envconfig:"DIR" default:"data/uploads"`
}

type LogConfig struct {
	Level string `envconfig:"LEVEL" default:"info"`
}

// Load processes the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: processing environment: %w", err)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("config: invalid SERVER_PORT %d", cfg.Server.Port)
	}
	return &cfg, nil
}
