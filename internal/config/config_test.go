package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		DatabaseURL:       "postgres://localhost/portal",
		AuthJWTSecret:     strings.Repeat("s", 32),
		MockInpost:        true,
		SenderCountry:     "PL",
		CacheProvider:     "memory",
		RateLimitProvider: "memory",
		RateLimitRequests: 30,
		RateLimitWindowS:  60,
		LogFormat:         "text",
		Port:              "8080",
	}
}

func TestValidateMockModeSkipsCarrierCredentials(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if err := cfg.validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateLiveModeRequiresCarrierCredentials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		apiURL  string
		token   string
		wantErr bool
	}{
		{
			name:    "missing both",
			wantErr: true,
		},
		{
			name:    "missing token",
			apiURL:  "https://api.inpost.pl",
			wantErr: true,
		},
		{
			name:   "both set",
			apiURL: "https://api.inpost.pl",
			token:  "token",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			cfg.MockInpost = false
			cfg.InpostAPIURL = tt.apiURL
			cfg.InpostToken = tt.token

			err := cfg.validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidateStripeCredentialsMustBePaired(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.StripeSecretKey = "sk_test_123"

	if err := cfg.validate(); err == nil {
		t.Fatalf("expected error, got nil")
	}

	cfg.StripeWebhookSecret = "whsec_123"
	if err := cfg.validate(); err == nil {
		t.Fatalf("expected error for missing BASE_URL, got nil")
	}

	cfg.BaseURL = "https://portal.example.com"
	if err := cfg.validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateRejectsInvalidRateLimitProvider(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.RateLimitProvider = "dynamo"

	err := cfg.validate()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "RateLimitProvider") {
		t.Fatalf("unexpected error: %v", err)
	}
}
