// Package validate sanitizes externally supplied parameters before they
// reach the carrier adapter or the datastore.
package validate

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	DefaultMaxLength = 200
	QueryMaxLength   = 80
)

// SanitizeText strips angle brackets, trims whitespace and truncates the
// value to maxLength. Truncation counts runes, not bytes.
func SanitizeText(value string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	cleaned := strings.NewReplacer("<", "", ">", "").Replace(value)
	cleaned = strings.TrimSpace(cleaned)
	runes := []rune(cleaned)
	if len(runes) > maxLength {
		cleaned = string(runes[:maxLength])
	}
	return cleaned
}

// SanitizeQuery sanitizes a free-text search query. Empty input yields "".
func SanitizeQuery(value string) string {
	if value == "" {
		return ""
	}
	return SanitizeText(value, QueryMaxLength)
}

// ParseNumber converts a string to a finite float. The boolean is false for
// empty input, parse failures, NaN and infinities.
func ParseNumber(value string) (float64, bool) {
	if value == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, false
	}
	return parsed, true
}

// FieldError identifies the missing or malformed request field.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("missing field: %s", e.Field)
}

// RequireString returns the sanitized value or a FieldError when the value
// is absent or blank after trimming.
func RequireString(value, field string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", &FieldError{Field: field}
	}
	return SanitizeText(value, DefaultMaxLength), nil
}

// OptionalString returns the sanitized value, or "" for absent input.
func OptionalString(value string, maxLength int) string {
	if value == "" {
		return ""
	}
	return SanitizeText(value, maxLength)
}
