package validators

import (
	"errors"
	"strconv"
	"strings"
)

var (
	ErrPasscodeTooLong = errors.New("passcode is too long")
	ErrExpiryInvalid   = errors.New("expiryDays must be a whole number")
	ErrExpiryTooLong   = errors.New("expiryDays is too large")
	ErrPrivateInvalid  = errors.New("isPrivate must be true or false")
)

const (
	maxPasscodeSize = 255
	// MaxExpiryDays keeps expiry timestamps far from int64 overflow
	MaxExpiryDays = 36500
)

func PasscodeValidator(p string) error {
	if len(p) > maxPasscodeSize {
		return ErrPasscodeTooLong
	}

	return nil
}

// ParseExpiryDays reads the expiryDays form field. Empty means 0 and any
// value <= 0 means the file never expires.
func ParseExpiryDays(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	days, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrExpiryInvalid
	}

	if days > MaxExpiryDays {
		return 0, ErrExpiryTooLong
	}

	return days, nil
}

// ParsePrivate reads the isPrivate form field. Empty means public.
func ParsePrivate(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, nil
	}

	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, ErrPrivateInvalid
	}

	return b, nil
}
