package validate

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		value     string
		maxLength int
		want      string
	}{
		{
			name:  "strips angle brackets",
			value: "<script>alert(1)</script>",
			want:  "scriptalert(1)/script",
		},
		{
			name:  "trims whitespace",
			value: "  ul. Marszałkowska 1  ",
			want:  "ul. Marszałkowska 1",
		},
		{
			name:      "truncates to max length",
			value:     strings.Repeat("a", 300),
			maxLength: 200,
			want:      strings.Repeat("a", 200),
		},
		{
			name:      "zero max length falls back to default",
			value:     strings.Repeat("b", 250),
			maxLength: 0,
			want:      strings.Repeat("b", 200),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := SanitizeText(tt.value, tt.maxLength)
			if got != tt.want {
				t.Fatalf("SanitizeText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		value  string
		want   float64
		wantOK bool
	}{
		{name: "valid latitude", value: "52.2297", want: 52.2297, wantOK: true},
		{name: "negative", value: "-21.01", want: -21.01, wantOK: true},
		{name: "empty", value: "", wantOK: false},
		{name: "garbage", value: "abc", wantOK: false},
		{name: "nan", value: "NaN", wantOK: false},
		{name: "infinity", value: "Inf", wantOK: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ParseNumber(tt.value)
			if ok != tt.wantOK {
				t.Fatalf("ParseNumber(%q) ok = %v, want %v", tt.value, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Fatalf("ParseNumber(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestRequireString(t *testing.T) {
	t.Parallel()

	if _, err := RequireString("   ", "receiver.name"); err == nil {
		t.Fatalf("expected error for blank value")
	} else {
		var fieldErr *FieldError
		if !errors.As(err, &fieldErr) {
			t.Fatalf("expected FieldError, got %T", err)
		}
		if fieldErr.Field != "receiver.name" {
			t.Fatalf("unexpected field: %q", fieldErr.Field)
		}
	}

	got, err := RequireString(" Jan <Kowalski> ", "receiver.name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Jan Kowalski" {
		t.Fatalf("RequireString() = %q", got)
	}
}

func TestOptionalString(t *testing.T) {
	t.Parallel()

	if got := OptionalString("", 200); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
	if got := OptionalString("<b>note</b>", 200); got != "bnote/b" {
		t.Fatalf("OptionalString() = %q", got)
	}
	if got := OptionalString("PLN", 2); got != "PL" {
		t.Fatalf("OptionalString() = %q", got)
	}
}
