package service

import (
	"bitwise74/dropgate/internal/model"
	"bitwise74/dropgate/pkg/security"
	"time"
)

// Decision is the outcome of an access check
type Decision int

const (
	Granted Decision = iota
	Expired
	PasscodeRequired
	PasscodeInvalid
)

func (d Decision) String() string {
	switch d {
	case Granted:
		return "granted"
	case Expired:
		return "expired"
	case PasscodeRequired:
		return "passcode_required"
	case PasscodeInvalid:
		return "passcode_invalid"
	default:
		return "unknown"
	}
}

// Evaluate decides whether rec may be served at now. An empty passcode
// counts as no passcode. Expiry is checked first and wins over everything
// else. rec is never modified; expired rows are left to the sweeper.
func Evaluate(rec *model.FileRecord, now time.Time, passcode *string) Decision {
	if rec.IsExpired(now.UnixMilli()) {
		return Expired
	}

	if !rec.IsPrivate {
		return Granted
	}

	if passcode == nil || *passcode == "" {
		return PasscodeRequired
	}

	if rec.PasscodeHash == nil || !security.VerifyPasscode(*passcode, *rec.PasscodeHash) {
		return PasscodeInvalid
	}

	return Granted
}
