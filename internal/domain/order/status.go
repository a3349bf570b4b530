package order

import (
	"github.com/go-faster/errors"
)

// Status enumerates the order lifecycle states.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusReceived   Status = "received"
	StatusCancelled  Status = "cancelled"
)

// ErrUnknownStatus is returned by ParseStatus for values outside the
// enumeration.
var ErrUnknownStatus = errors.New("unknown order status")

// ParseStatus validates a raw status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusProcessing, StatusShipped,
		StatusDelivered, StatusReceived, StatusCancelled:
		return Status(s), nil
	default:
		return "", errors.Wrapf(ErrUnknownStatus, "%q", s)
	}
}

// IsTerminal reports whether no further transitions leave this status
// through the regular lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusReceived || s == StatusCancelled
}

// Role identifies the actor requesting a status transition.
type Role string

const (
	// RoleCustomer is the order's own customer.
	RoleCustomer Role = "customer"
	// RoleManager is a privileged back-office actor.
	RoleManager Role = "manager"
)

// Lifecycle: pending -> processing -> shipped -> delivered -> received, with
// pending -> cancelled as the only cancellation edge.
//
// Transition decides whether the actor may move an order from one status to
// another. A manager may set any status from any status (administrative
// override). A customer may only confirm receipt (delivered -> received) or
// cancel before processing begins (pending -> cancelled); every other
// customer attempt is rejected with *TransitionRejectedError rather than
// silently ignored.
func Transition(from, to Status, role Role) error {
	if role == RoleManager {
		return nil
	}

	switch {
	case from == StatusDelivered && to == StatusReceived:
		return nil
	case from == StatusPending && to == StatusCancelled:
		return nil
	}

	return &TransitionRejectedError{From: from, To: to, Role: role}
}
