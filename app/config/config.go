package config

import (
	"log"
	"os"
	"strconv"
	"time"

	// this will automatically load your .env file:
	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	DB       PostgresConfig
	Stripe   StripeConfig
	Gateway  GatewayConfig
	Limits   LimitConfig
	QueueURL string
}

type PostgresConfig struct {
	Username string
	Password string
	URL      string
	Port     string
}

type StripeConfig struct {
	SecretKey         string
	WebhookSecret     string
	PriceIDProMonthly string
	FrontendURL       string
}

type GatewayConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type LimitConfig struct {
	FreeDaily    int
	ProPerMinute int
}

const (
	defaultFreeDailyLimit    = 10
	defaultProPerMinuteLimit = 30
	defaultGatewayTimeout    = 60 * time.Second
)

func LoadConfig() (*Config, error) {
	cfg := &Config{
		QueueURL: os.Getenv("MAIL_QUEUE_URL"),
		DB: PostgresConfig{
			Username: os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PWD"),
			URL:      os.Getenv("POSTGRES_URL"),
			Port:     os.Getenv("POSTGRES_PORT"),
		},
		Stripe: StripeConfig{
			SecretKey:         os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret:     os.Getenv("STRIPE_WEBHOOK_SECRET"),
			PriceIDProMonthly: os.Getenv("STRIPE_PRICE_ID_PRO_MONTHLY"),
			FrontendURL:       os.Getenv("FRONTEND_URL"),
		},
		Gateway: GatewayConfig{
			BaseURL: os.Getenv("GATEWAY_BASE_URL"),
			APIKey:  os.Getenv("GATEWAY_API_KEY"),
			Timeout: envDuration("GATEWAY_TIMEOUT", defaultGatewayTimeout),
		},
		Limits: LimitConfig{
			FreeDaily:    envInt("FREE_DAILY_LIMIT", defaultFreeDailyLimit),
			ProPerMinute: envInt("PRO_PER_MINUTE_LIMIT", defaultProPerMinuteLimit),
		},
	}

	return cfg, nil
}

// envInt reads an integer env var, falling back to def when unset or invalid.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		log.Printf("invalid %s=%q, using default %d", key, v, def)
		return def
	}
	return parsed
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		log.Printf("invalid %s=%q, using default %s", key, v, def)
		return def
	}
	return parsed
}
