package generation

import (
	"errors"
	"fmt"
)

// Precondition failures. Each rejects the whole batch before anything is
// charged or published.
var (
	ErrIncompatibleRequest = errors.New("incompatible request")
	ErrMissingCredential   = errors.New("missing credential")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// ErrRunNotFound is returned by Registry lookups for unknown ids.
var ErrRunNotFound = errors.New("generation: run not found")

// PreconditionError rejects a batch. Reason is one of the sentinels above.
type PreconditionError struct {
	Reason error
	Detail string
	Err    error
}

func (e *PreconditionError) Error() string {
	if e.Detail == "" {
		return "generation: " + e.Reason.Error()
	}
	return fmt.Sprintf("generation: %s: %s", e.Reason, e.Detail)
}

// Is matches the sentinel Reason.
func (e *PreconditionError) Is(target error) bool { return target == e.Reason }

func (e *PreconditionError) Unwrap() error { return e.Err }

func precondition(reason error, err error, format string, args ...any) *PreconditionError {
	return &PreconditionError{Reason: reason, Detail: fmt.Sprintf(format, args...), Err: err}
}
