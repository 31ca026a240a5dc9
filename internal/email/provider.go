// Package email provides email provider interface.
package email

import (
	"context"
	"fmt"
)

type Provider interface {
	SendEmail(ctx context.Context, email *Email) error
}

type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Config struct {
	APIKey string
	From   string
}

// NewProvider returns a Resend-backed provider when an API key is
// configured, and a no-op provider otherwise so the portal still runs
// in environments without outbound email.
func NewProvider(config Config) (Provider, error) {
	if config.APIKey == "" {
		return NewNoopProvider(), nil
	}
	if config.From == "" {
		return nil, fmt.Errorf("EMAIL_FROM is required when RESEND_API_KEY is set")
	}
	return NewResendProvider(config.APIKey, config.From), nil
}
