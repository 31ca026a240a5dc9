package auth

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "unit-test-secret-key"

func signToken(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestVerifyValidToken(t *testing.T) {
	t.Parallel()

	verifier := NewVerifier(testSecret)
	token := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "user-123",
		"email": "jan@example.com",
		"role":  "admin",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	identity, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if identity.UserID != "user-123" {
		t.Fatalf("UserID = %q", identity.UserID)
	}
	if identity.Email != "jan@example.com" {
		t.Fatalf("Email = %q", identity.Email)
	}
	if !identity.Admin {
		t.Fatal("expected admin identity")
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	t.Parallel()

	verifier := NewVerifier(testSecret)

	tests := []struct {
		name  string
		token string
	}{
		{
			name: "expired",
			token: signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
				"sub": "user-123",
				"exp": time.Now().Add(-time.Hour).Unix(),
			}),
		},
		{
			name: "missing subject",
			token: signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
		},
		{
			name:  "garbage",
			token: "not.a.token",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := verifier.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestVerifyRejectsWrongSigningMethod(t *testing.T) {
	t.Parallel()

	verifier := NewVerifier(testSecret)
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "user-123"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := verifier.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestFromRequest(t *testing.T) {
	t.Parallel()

	verifier := NewVerifier(testSecret)
	token := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	r, _ := http.NewRequest(http.MethodGet, "/api/shipments", nil)
	if _, err := verifier.FromRequest(r); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}

	r.Header.Set("Authorization", token)
	if _, err := verifier.FromRequest(r); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken without Bearer prefix, got %v", err)
	}

	r.Header.Set("Authorization", "Bearer "+token)
	identity, err := verifier.FromRequest(r)
	if err != nil {
		t.Fatalf("FromRequest() error: %v", err)
	}
	if identity.UserID != "user-123" {
		t.Fatalf("UserID = %q", identity.UserID)
	}
}
