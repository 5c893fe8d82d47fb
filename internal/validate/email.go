package validate

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidEmail reports a malformed email address.
var ErrInvalidEmail = errors.New("invalid email format")

// emailPattern accepts the common mailbox shapes organizations register as
// assignment contacts. Deliverability is verified when mail is actually
// sent, not here.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Email validates a contact email address. The address is trimmed and
// lowercased before checking; the RFC 5321 length limits apply to the
// whole address (254), the local part (64), and the domain (255).
func Email(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if email == "" {
		return "", ErrEmpty
	}
	if len(email) > 254 {
		return "", ErrStringTooLong
	}

	local, domain, found := strings.Cut(email, "@")
	if !found {
		return "", ErrInvalidEmail
	}
	if len(local) > 64 || len(domain) > 255 {
		return "", ErrStringTooLong
	}
	if !strings.Contains(domain, ".") {
		return "", ErrInvalidEmail
	}

	// The pattern is anchored over the whole address, so a second "@" or
	// stray whitespace fails here even after the structural checks pass.
	if !emailPattern.MatchString(email) {
		return "", ErrInvalidEmail
	}

	return email, nil
}
