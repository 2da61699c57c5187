package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the server's environment configuration. Values come from
// the process environment, with a .env file loaded first when present.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	JWTSecret        string `env:"JWT_SECRET,required"`
	StripeSecretKey  string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookKey string `env:"STRIPE_WEBHOOK_SECRET"`
	SendGridAPIKey   string `env:"SENDGRID_API_KEY"`
	SenderEmail      string `env:"SENDER_EMAIL" envDefault:"noreply@campuspark.edu"`

	// Chain gateway; when the URL is empty the in-process simulator is
	// used instead, which keeps local development self-contained.
	ChainGatewayURL    string        `env:"CHAIN_GATEWAY_URL"`
	ChainPollInterval  time.Duration `env:"CHAIN_POLL_INTERVAL" envDefault:"2s"`
	ChainConfirmWindow time.Duration `env:"CHAIN_CONFIRM_WINDOW" envDefault:"2m"`
}

// Load reads .env (if any) and parses the environment into a Config.
func Load() (*Config, error) {
	godotenv.Load()
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}
