package validators

import (
	"errors"
	"strings"
)

var (
	ErrUsernameEmpty    = errors.New("no username provided")
	ErrUsernameTooShort = errors.New("username must be at least 3 characters long")
	ErrUsernameTooLong  = errors.New("username is too long")
)

func UsernameValidator(u string) error {
	if strings.TrimSpace(u) == "" {
		return ErrUsernameEmpty
	}

	if len(u) < 3 {
		return ErrUsernameTooShort
	}

	if len(u) > 80 {
		return ErrUsernameTooLong
	}

	return nil
}
