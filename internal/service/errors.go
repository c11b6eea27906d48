// Package service contains the business logic of the app, kept separate
// from the HTTP handlers so it can be tested without a running server
package service

import (
	"errors"
	"fmt"
)

var (
	ErrUsernameTaken = errors.New("username is already taken")
	ErrEmailTaken    = errors.New("email is already registered")

	// ErrInvalidCredentials covers both unknown email and wrong password
	// so callers can't probe which accounts exist
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrAccountNotFound    = errors.New("account not found")

	ErrTokenInvalid = errors.New("token is invalid or expired")
	ErrTokenType    = errors.New("wrong token type")

	// ErrCodeNotFound also covers already consumed codes. Telling those
	// apart would let a caller check whether someone else verified
	ErrCodeNotFound        = errors.New("no active verification code")
	ErrCodeExpired         = errors.New("verification code expired")
	ErrCodeTooManyAttempts = errors.New("too many verification attempts")
	ErrCodeMismatch        = errors.New("verification code doesn't match")
	ErrCodeCooldown        = errors.New("a code was sent recently, wait before requesting another")

	ErrUnknownSettingKey = errors.New("unknown setting key")
)

// CodeMismatchError carries the number of attempts left so clients can
// show it. errors.Is(err, ErrCodeMismatch) still matches
type CodeMismatchError struct {
	AttemptsLeft int
}

func (e *CodeMismatchError) Error() string {
	return fmt.Sprintf("verification code doesn't match, %d attempts left", e.AttemptsLeft)
}

func (e *CodeMismatchError) Is(target error) bool {
	return target == ErrCodeMismatch
}
