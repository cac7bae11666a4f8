package rng

import "errors"

// RNG errors
var (
	// ErrInvalidQuality indicates an unknown generator quality.
	ErrInvalidQuality = errors.New("rng: invalid generator quality")

	// ErrZeroBound indicates a bounded draw with bound zero.
	ErrZeroBound = errors.New("rng: bound must be greater than zero")

	// ErrTooManyAttempts indicates a retry loop exhausted its attempt
	// budget. It is only ever reported wrapped in a FatalError.
	ErrTooManyAttempts = errors.New("rng: too many attempts")

	// ErrUnknownSource indicates an entropy source name Open does not
	// recognize, or one the platform cannot provide.
	ErrUnknownSource = errors.New("rng: unknown entropy source")
)

// FatalError marks conditions the boot flow cannot recover from: a
// noise source that keeps failing its statistical tests, or rejection
// sampling that never lands inside the bound. There is no safe degraded
// mode without entropy, so callers are expected to halt rather than
// retry when IsFatal reports true.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return "rng: fatal: " + e.Op + ": " + e.Err.Error()
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err carries an unrecoverable entropy failure.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
