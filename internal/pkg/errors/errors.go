package errors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalid           = errors.New("invalid")
	ErrConflict          = errors.New("conflict")
	ErrInternal          = errors.New("internal")
	ErrUnavailable       = errors.New("external service unavailable")
	ErrMalformedResponse = errors.New("malformed external response")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRecoverable reports whether err belongs to the class of failures that read
// paths absorb with a local fallback.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrMalformedResponse)
}
