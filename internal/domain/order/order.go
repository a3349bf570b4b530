// Package order holds persisted orders across the two coexisting schemas
// (modern multi-line, legacy single-line), the order status state machine,
// and the typed errors the persistence layer surfaces.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Item is a frozen copy of a cart line at order time. Name and price are
// snapshots: later catalog changes never alter historical orders.
type Item struct {
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Subtotal returns unit price times quantity for this item.
func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Record is either a modern *Order or a read-only *LegacyOrder. Read paths
// type-switch exhaustively instead of probing for field presence.
type Record interface {
	isRecord()

	// RecordID returns the order identifier within its schema.
	RecordID() int64
	// Owner returns the user the order belongs to.
	Owner() int64
	// CurrentStatus returns the order's status.
	CurrentStatus() Status
	// PlacedAt returns the order timestamp, comparable across schemas as a
	// calendar instant.
	PlacedAt() time.Time
}

// Order is a modern multi-line order. Immutable except for Status and
// UpdatedAt.
type Order struct {
	ID              int64
	UserID          int64
	Items           []Item
	Subtotal        decimal.Decimal
	ShippingFee     decimal.Decimal
	Total           decimal.Decimal
	ShippingAddress string
	PaymentMethod   string
	Status          Status
	OrderedAt       time.Time
	UpdatedAt       time.Time
}

func (*Order) isRecord() {}

func (o *Order) RecordID() int64       { return o.ID }
func (o *Order) Owner() int64          { return o.UserID }
func (o *Order) CurrentStatus() Status { return o.Status }
func (o *Order) PlacedAt() time.Time   { return o.OrderedAt }

// LegacyOrder is a historical single-line order. The legacy schema predates
// order_items and is never written for new checkouts; only its status may
// still change.
type LegacyOrder struct {
	ID              int64
	UserID          int64
	ProductName     string
	UnitPrice       decimal.Decimal
	Quantity        int
	Total           decimal.Decimal
	ShippingAddress string
	PaymentMethod   string
	Status          Status
	OrderedAt       time.Time
}

func (*LegacyOrder) isRecord() {}

func (o *LegacyOrder) RecordID() int64       { return o.ID }
func (o *LegacyOrder) Owner() int64          { return o.UserID }
func (o *LegacyOrder) CurrentStatus() Status { return o.Status }
func (o *LegacyOrder) PlacedAt() time.Time   { return o.OrderedAt }

// Draft is the input for creating a modern order. Status is always
// initialized to StatusPending by the repository.
type Draft struct {
	UserID          int64
	Items           []Item
	Subtotal        decimal.Decimal
	ShippingFee     decimal.Decimal
	Total           decimal.Decimal
	ShippingAddress string
	PaymentMethod   string
}

// Repository defines persistence operations for orders across both schemas.
type Repository interface {
	// Create persists a draft atomically (header plus one row per item) and
	// returns the new order ID. Partial orders are never visible: any
	// failure rolls back the whole insert.
	Create(ctx context.Context, d Draft) (int64, error)
	// GetByID looks up the modern schema first, then falls back to the
	// legacy schema. Returns ErrNotFound when neither has the ID.
	GetByID(ctx context.Context, id int64) (Record, error)
	// ListByUser returns the union of modern and legacy orders for the
	// user, sorted by order timestamp descending.
	ListByUser(ctx context.Context, userID int64) ([]Record, error)
	// UpdateStatus sets status and the updated-at timestamp, touching
	// nothing else.
	UpdateStatus(ctx context.Context, id int64, s Status, at time.Time) error
}
