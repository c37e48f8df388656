package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Debug bool   `env:"DEBUG" envDefault:"false"`
	Env   string `env:"ENV" envDefault:"development"`

	Port    string `env:"PORT" envDefault:"8080"`
	SiteURL string `env:"SITE_URL" envDefault:"http://localhost:8080"`

	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	FirebaseCredentialsPath string `env:"FIREBASE_CREDENTIALS_PATH" envDefault:"./firebase-service-account.json"`

	// Static key gating the admin control endpoints (x-admin-api-key header)
	AdminAPIKey string `env:"ADMIN_API_KEY"`

	Paystack struct {
		// SecretKey signs webhook bodies and authorizes outbound API calls.
		// Verification fails closed for every request while it is unset.
		SecretKey string `env:"PAYSTACK_SECRET_KEY"`
		BaseURL   string `env:"PAYSTACK_BASE_URL" envDefault:"https://api.paystack.co"`
	}

	SMTP struct {
		Host     string `env:"SMTP_HOST"`
		Port     string `env:"SMTP_PORT"`
		User     string `env:"SMTP_USER"`
		Password string `env:"SMTP_PASS"`
		From     string `env:"EMAIL_FROM"`
		// Operator mailbox for deferred-entitlement reports
		OpsEmail string `env:"OPS_EMAIL"`
	}
}

// Load reads .env (when present) and parses the environment into a Config.
func Load() (*Config, error) {
	// Missing .env is fine; production sets variables directly
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}
