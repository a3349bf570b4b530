package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when neither schema contains the requested order.
// It is distinct from transition rejection and from persistence failures so
// callers can render the right message.
var ErrNotFound = errors.New("order not found")

// PersistenceError wraps a database failure on a write path. Callers must
// not assume the write happened; the transaction has been rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("order persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// TransitionRejectedError reports an illegal or unauthorized status change.
type TransitionRejectedError struct {
	From Status
	To   Status
	Role Role
}

func (e *TransitionRejectedError) Error() string {
	return fmt.Sprintf("status transition %s -> %s rejected for role %s", e.From, e.To, e.Role)
}
