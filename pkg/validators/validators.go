package validators

import "errors"

var all = []error{
	ErrEmailEmpty,
	ErrEmailInvalid,
	ErrEmailTooLong,
	ErrPasswordEmpty,
	ErrPasswordTooShort,
	ErrPasswordTooLong,
	ErrUsernameEmpty,
	ErrUsernameTooShort,
	ErrUsernameTooLong,
}

// IsValidationError reports whether err is one of the input validation
// errors, as opposed to something internal
func IsValidationError(err error) bool {
	for _, v := range all {
		if errors.Is(err, v) {
			return true
		}
	}

	return false
}
