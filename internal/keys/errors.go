package keys

import "errors"

// Rejections returned by Reissue. They are expected outcomes, not faults.
var (
	ErrNoKey            = errors.New("keys: no key issued")
	ErrCorruptRecord    = errors.New("keys: record is missing key or expiration")
	ErrExpired          = errors.New("keys: key expired")
	ErrAlreadyForbidden = errors.New("keys: reissue already used")
)

// IsRejection reports whether err is one of the Reissue rejections.
func IsRejection(err error) bool {
	return errors.Is(err, ErrNoKey) ||
		errors.Is(err, ErrCorruptRecord) ||
		errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrAlreadyForbidden)
}

// RejectionReason returns a short log label for a rejection.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrNoKey):
		return "no_key"
	case errors.Is(err, ErrCorruptRecord):
		return "corrupt_record"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrAlreadyForbidden):
		return "already_forbidden"
	}
	return "unknown"
}
