package config

import (
	"os"

	// this will automatically load your .env file:
	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	DB          PostgresConfig
	Stripe      StripeConfig
	QueueURL    string
	FrontendURL string
}

type PostgresConfig struct {
	Username string
	Password string
	URL      string
	Port     string
	Name     string
	SSLMode  string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

func LoadConfig() (*Config, error) {
	sslMode := os.Getenv("POSTGRES_SSLMODE")
	if sslMode == "" {
		sslMode = "require"
	}

	cfg := &Config{
		QueueURL:    os.Getenv("QUEUE_URL"),
		FrontendURL: os.Getenv("FRONTEND_URL"),
		DB: PostgresConfig{
			Username: os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PWD"),
			URL:      os.Getenv("POSTGRES_URL"),
			Port:     os.Getenv("POSTGRES_PORT"),
			Name:     os.Getenv("POSTGRES_DB"),
			SSLMode:  sslMode,
		},
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		},
	}

	return cfg, nil
}
