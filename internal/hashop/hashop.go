// Package hashop wraps the backend hash implementation in a strict
// Idle/Active state machine, so a caller bug (updating an operation
// that was never set up, finishing twice) surfaces as a typed error
// instead of corrupting backend state.
//
// Lifecycle: Idle -(Setup)-> Active -(Update)*-> Finish or Abort ->
// Idle. Any backend failure aborts the operation, so an operation is
// never left half-initialized in Active.
package hashop

import (
	"errors"

	"bootcore/internal/backend"
)

// Hash operation errors
var (
	// ErrNotActive indicates Update or Finish on an operation that has
	// no active backend session.
	ErrNotActive = errors.New("hashop: operation is not active")

	// ErrAlreadyActive indicates Setup on an operation that was not
	// aborted or finished first.
	ErrAlreadyActive = errors.New("hashop: operation is already active")
)

// State is the lifecycle state of an Operation.
type State int

const (
	// Idle means no backend session exists; only Setup and Abort are valid.
	Idle State = iota
	// Active means a backend session is in progress.
	Active
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// Operation is one caller-allocated hash computation, scoped to a
// single verification.
type Operation struct {
	backend backend.Backend
	sess    backend.HashSession
	state   State
}

// New creates an idle operation bound to the given backend.
func New(b backend.Backend) *Operation {
	return &Operation{backend: b}
}

// State returns the current lifecycle state.
func (o *Operation) State() State { return o.state }

// Setup starts a digest for the given algorithm. The operation must be
// Idle. On backend failure the operation is aborted back to Idle, so
// the caller never holds a half-initialized Active operation.
func (o *Operation) Setup(alg backend.HashAlgorithm) error {
	if o.state != Idle {
		return ErrAlreadyActive
	}

	// Drop any context left over from an earlier run.
	o.sess = nil

	sess, err := o.backend.NewHash(alg)
	if err != nil {
		o.Abort()
		return err
	}
	o.sess = sess
	o.state = Active
	return nil
}

// Update absorbs input into the digest. A zero-length input is a no-op
// that never reaches the backend: backends are not required to handle
// empty buffers. Any backend failure aborts the operation.
func (o *Operation) Update(p []byte) error {
	if o.state != Active {
		return ErrNotActive
	}
	if len(p) == 0 {
		return nil
	}
	if err := o.sess.Update(p); err != nil {
		o.Abort()
		return err
	}
	return nil
}

// Finish writes the digest into out and returns its length. Finish
// consumes the operation: it always aborts afterward, success or not,
// so a finished operation can never be finished again.
func (o *Operation) Finish(out []byte) (int, error) {
	if o.state != Active {
		return 0, ErrNotActive
	}
	defer o.Abort()
	return o.sess.Finish(out)
}

// Abort releases the operation and returns it to Idle. It is
// idempotent: aborting an idle or never-set-up operation is a no-op.
func (o *Operation) Abort() {
	if o.state == Idle {
		return
	}
	o.sess.Abort()
	o.sess = nil
	o.state = Idle
}
