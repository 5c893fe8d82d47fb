// Package validate provides centralized input validation and sanitization
// utilities for the matching API. Profiles and assignments arrive from
// upstream services and the public API, so identifiers and free-text
// fields are checked before they reach the store.
package validate

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

// String validation errors
var (
	ErrStringTooShort    = errors.New("string is too short")
	ErrStringTooLong     = errors.New("string is too long")
	ErrInvalidCharacters = errors.New("string contains invalid characters")
	ErrSQLKeyword        = errors.New("string contains SQL keywords")
	ErrEmpty             = errors.New("string is empty")
)

// Common SQL keywords to detect potential SQL injection attempts
// This is a basic defense layer; parameterized queries are the primary defense
var sqlKeywords = []string{
	"SELECT", "INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER",
	"TRUNCATE", "EXEC", "EXECUTE", "UNION", "JOIN", "WHERE", "FROM",
	"--", "/*", "*/", ";--", "xp_", "sp_",
}

// StringConstraints defines validation constraints for a string.
type StringConstraints struct {
	MinLength        int            // Minimum length (0 = no minimum)
	MaxLength        int            // Maximum length (0 = no maximum)
	AllowedPattern   *regexp.Regexp // Optional regex pattern for allowed characters
	CheckSQLKeywords bool           // Whether to check for SQL keywords
	AllowEmpty       bool           // Whether empty strings are allowed
	TrimSpace        bool           // Whether to trim whitespace before validation
}

// String validates a string against the given constraints.
// Returns the validated (and optionally trimmed) string and an error if validation fails.
func String(s string, constraints StringConstraints) (string, error) {
	if constraints.TrimSpace {
		s = strings.TrimSpace(s)
	}

	if s == "" {
		if !constraints.AllowEmpty {
			return "", ErrEmpty
		}
		return s, nil
	}

	// Character count, not byte count
	length := utf8.RuneCountInString(s)

	if constraints.MinLength > 0 && length < constraints.MinLength {
		return "", fmt.Errorf("%w: got %d chars, need at least %d", ErrStringTooShort, length, constraints.MinLength)
	}
	if constraints.MaxLength > 0 && length > constraints.MaxLength {
		return "", fmt.Errorf("%w: got %d chars, maximum is %d", ErrStringTooLong, length, constraints.MaxLength)
	}

	if constraints.AllowedPattern != nil && !constraints.AllowedPattern.MatchString(s) {
		return "", fmt.Errorf("%w: does not match required pattern", ErrInvalidCharacters)
	}

	if constraints.CheckSQLKeywords {
		if err := checkSQLKeywords(s); err != nil {
			return "", err
		}
	}

	return s, nil
}

// checkSQLKeywords checks if the string contains common SQL keywords.
// This is a basic heuristic check; parameterized queries are the real defense.
func checkSQLKeywords(s string) error {
	upper := strings.ToUpper(s)
	for _, keyword := range sqlKeywords {
		if strings.Contains(upper, keyword) {
			return fmt.Errorf("%w: contains %q", ErrSQLKeyword, keyword)
		}
	}
	return nil
}

// SanitizeHTML escapes HTML special characters to prevent XSS attacks.
// This should be called on all user-generated text that will be displayed in HTML.
func SanitizeHTML(s string) string {
	return html.EscapeString(s)
}

// SanitizeString performs both validation and HTML sanitization.
// Returns the sanitized string and an error if validation fails.
func SanitizeString(s string, constraints StringConstraints) (string, error) {
	validated, err := String(s, constraints)
	if err != nil {
		return "", err
	}
	return SanitizeHTML(validated), nil
}

// entityIDPattern covers the identifier formats upstream services emit:
// UUIDs, prefixed IDs ("profile:abc"), and plain slugs.
var entityIDPattern = regexp.MustCompile(`^[A-Za-z0-9:_\-\.]+$`)

// EntityID validates a profile or assignment identifier:
// - 1-128 characters
// - Letters, numbers, colon, dash, underscore, period only
func EntityID(id string) (string, error) {
	return String(id, StringConstraints{
		MinLength:      1,
		MaxLength:      128,
		AllowedPattern: entityIDPattern,
		AllowEmpty:     false,
		TrimSpace:      true,
	})
}

// skillIDPattern allows lowercase skill slugs including forms like
// "c++", "c#", and "node.js".
var skillIDPattern = regexp.MustCompile(`^[a-z0-9+#\.\-]+$`)

// SkillID validates a skill identifier:
// - 1-64 characters
// - Lowercase letters, numbers, plus, sharp, dash, period only
func SkillID(id string) (string, error) {
	return String(id, StringConstraints{
		MinLength:      1,
		MaxLength:      64,
		AllowedPattern: skillIDPattern,
		AllowEmpty:     false,
		TrimSpace:      true,
	})
}

// AssignmentTitle validates an assignment title:
// - Optional (can be empty)
// - Max 200 characters
// - No SQL keywords
func AssignmentTitle(title string) (string, error) {
	return SanitizeString(title, StringConstraints{
		MaxLength:        200,
		CheckSQLKeywords: true,
		AllowEmpty:       true,
		TrimSpace:        true,
	})
}
