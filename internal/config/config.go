package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	// AuthJWTSecret is the shared secret of the external auth provider.
	// Session tokens presented by the frontend are verified against it.
	AuthJWTSecret string `env:"AUTH_JWT_SECRET,required" validate:"required,min=16"`

	InpostAPIURL        string `env:"INPOST_API_URL" validate:"omitempty,url"`
	InpostToken         string `env:"INPOST_TOKEN"`
	InpostOrgID         string `env:"INPOST_ORG_ID"`
	InpostWebhookSecret string `env:"INPOST_WEBHOOK_SECRET"`
	MockInpost          bool   `env:"MOCK_INPOST" envDefault:"false"`

	SenderName         string  `env:"INPOST_SENDER_NAME" envDefault:"ServiceLab"`
	SenderPhone        string  `env:"INPOST_SENDER_PHONE"`
	SenderEmail        string  `env:"INPOST_SENDER_EMAIL" validate:"omitempty,email"`
	SenderAddressLine1 string  `env:"INPOST_SENDER_ADDRESS_LINE1"`
	SenderAddressLine2 string  `env:"INPOST_SENDER_ADDRESS_LINE2"`
	SenderPostalCode   string  `env:"INPOST_SENDER_POSTAL_CODE"`
	SenderCity         string  `env:"INPOST_SENDER_CITY"`
	SenderCountry      string  `env:"INPOST_SENDER_COUNTRY" envDefault:"PL" validate:"len=2"`
	DefaultWeightKg    float64 `env:"INPOST_DEFAULT_WEIGHT" envDefault:"1"`
	DefaultLengthCm    float64 `env:"INPOST_DEFAULT_LENGTH" envDefault:"10"`
	DefaultWidthCm     float64 `env:"INPOST_DEFAULT_WIDTH" envDefault:"10"`
	DefaultHeightCm    float64 `env:"INPOST_DEFAULT_HEIGHT" envDefault:"10"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RateLimitProvider     string `env:"RATE_LIMIT_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis,required_if=RateLimitProvider redis"`

	RateLimitRequests int `env:"RATE_LIMIT_REQUESTS" envDefault:"30" validate:"gt=0"`
	RateLimitWindowS  int `env:"RATE_LIMIT_WINDOW_SECONDS" envDefault:"60" validate:"gt=0"`

	LabelStorageProvider string `env:"LABEL_STORAGE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory s3"`
	LabelBucket          string `env:"LABEL_BUCKET" validate:"required_if=LabelStorageProvider s3"`

	ResendAPIKey string `env:"RESEND_API_KEY"`
	EmailFrom    string `env:"EMAIL_FROM" envDefault:"ServiceLab <onboarding@resend.dev>"`

	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	BaseURL             string `env:"BASE_URL" validate:"omitempty,url"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	if !c.MockInpost {
		if strings.TrimSpace(c.InpostAPIURL) == "" || strings.TrimSpace(c.InpostToken) == "" {
			return fmt.Errorf("INPOST_API_URL and INPOST_TOKEN are required unless MOCK_INPOST is true")
		}
	}

	hasStripeKey := strings.TrimSpace(c.StripeSecretKey) != ""
	hasStripeWebhookSecret := strings.TrimSpace(c.StripeWebhookSecret) != ""
	if hasStripeKey != hasStripeWebhookSecret {
		return fmt.Errorf("STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET must be set together")
	}
	if hasStripeKey && strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("BASE_URL is required when Stripe payments are enabled")
	}

	if baseURL := strings.TrimSpace(c.BaseURL); baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil || parsed.Hostname() == "" {
			return fmt.Errorf("BASE_URL must be a valid absolute URL")
		}
	}

	return nil
}

// PaymentsEnabled reports whether the Stripe payment flow is configured.
func (c *Config) PaymentsEnabled() bool {
	return strings.TrimSpace(c.StripeSecretKey) != "" && strings.TrimSpace(c.StripeWebhookSecret) != ""
}
