package order

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Service exposes order reads and role-gated status transitions on top of a
// Repository.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates an order Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Get returns a single order from either schema.
func (s *Service) Get(ctx context.Context, id int64) (Record, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByUser returns the user's orders across both schemas, newest first.
// Read failures degrade to an empty listing: a blank order history is less
// harmful than a broken page, so the error is logged and swallowed here.
func (s *Service) ListByUser(ctx context.Context, userID int64) []Record {
	recs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		zctx.From(ctx).Error("list orders",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return nil
	}
	return recs
}

// ApplyTransition moves an order to a new status on behalf of an actor.
//
// Customers may only act on their own orders; ownership violations surface
// as *TransitionRejectedError, the same as illegal edges, so the caller
// cannot distinguish foreign orders from forbidden transitions. Applying a
// transition updates status and the updated-at timestamp and never touches
// totals or items.
func (s *Service) ApplyTransition(ctx context.Context, orderID int64, to Status, actorID int64, role Role) (Record, error) {
	rec, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if role != RoleManager && rec.Owner() != actorID {
		return nil, &TransitionRejectedError{From: rec.CurrentStatus(), To: to, Role: role}
	}
	if err := Transition(rec.CurrentStatus(), to, role); err != nil {
		return nil, err
	}

	at := s.now().UTC()
	if err := s.repo.UpdateStatus(ctx, orderID, to, at); err != nil {
		return nil, err
	}

	switch r := rec.(type) {
	case *Order:
		r.Status = to
		r.UpdatedAt = at
	case *LegacyOrder:
		r.Status = to
	}
	return rec, nil
}
