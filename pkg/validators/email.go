// Package validators contains validators found throughout the application
// that have been abstracted away from the main code
package validators

import (
	"errors"
	"strings"
)

var (
	ErrEmailEmpty   = errors.New("no email address provided")
	ErrEmailInvalid = errors.New("invalid email address provided")
	ErrEmailTooLong = errors.New("email address is too long")
)

// EmailValidator deliberately only requires an @ somewhere in the address.
// Anything stricter rejects addresses that are deliverable in practice,
// and the verification code flow proves ownership anyway
func EmailValidator(e string) error {
	if e == "" {
		return ErrEmailEmpty
	}

	if len(e) > 120 {
		return ErrEmailTooLong
	}

	if !strings.Contains(e, "@") {
		return ErrEmailInvalid
	}

	return nil
}

// NormalizeEmail lowercases and trims an address so lookups and uniqueness
// checks are case-insensitive
func NormalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
