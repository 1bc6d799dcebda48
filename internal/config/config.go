package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config application configuration
type Config struct {
	// HTTP
	Port    int    `env:"PORT" envDefault:"8080"`
	BaseURL string `env:"BASE_URL"` // public base URL; defaults to the webhook URL

	// Credentials
	APIKey            string `env:"API_KEY,required,notEmpty"`
	DashboardPassword string `env:"DASHBOARD_PASSWORD,required,notEmpty"`

	// Telegram
	TelegramWebhookURL    string `env:"TELEGRAM_WEBHOOK_URL,required,notEmpty"` // public https base the bots call back to
	TelegramWebhookSecret string `env:"TELEGRAM_WEBHOOK_SECRET,required,notEmpty"`

	// Gmail OAuth application
	GmailClientID     string `env:"GMAIL_CLIENT_ID,required"`
	GmailClientSecret string `env:"GMAIL_CLIENT_SECRET,required"`
	GmailRedirectURI  string `env:"GMAIL_REDIRECT_URI,required"`

	// Database
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/mailgate.db"`

	// Timeouts
	SendTimeout    time.Duration `env:"SEND_TIMEOUT" envDefault:"60s"`
	WebhookTimeout time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"90s"`

	// Rate limiting for /api routes
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"100"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	// Dashboard sessions
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// Retention of resolved requests
	RequestRetention time.Duration `env:"REQUEST_RETENTION" envDefault:"720h"` // 30 days

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = cfg.TelegramWebhookURL
	}

	return cfg, nil
}
