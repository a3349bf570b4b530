// Package checkout orchestrates the single path from "place order" to
// "order persisted and cart cleared": repair the live cart, apply the bundle
// promotion, price shipping, persist atomically, then clear the session.
package checkout

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/freshmart/storefront/internal/domain/cart"
	"github.com/freshmart/storefront/internal/domain/order"
	"github.com/freshmart/storefront/internal/domain/promotion"
	"github.com/freshmart/storefront/internal/session"
)

// Sentinel errors for checkout preconditions.
var (
	// ErrEmptyCart is returned when checkout is attempted with no lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrAnonymous is returned when the session has no authenticated user.
	ErrAnonymous = errors.New("checkout requires a signed-in user")
)

// ValidationError reports malformed checkout form input. It is raised before
// the cart or database is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PaymentMethods are the accepted payment method identifiers.
var PaymentMethods = map[string]struct{}{
	"cash_on_delivery": {},
	"card":             {},
	"bank_transfer":    {},
}

// Form carries the checkout form fields.
type Form struct {
	ShippingAddress string
	PaymentMethod   string
}

func (f Form) validate() error {
	if f.ShippingAddress == "" {
		return &ValidationError{Field: "shipping_address", Reason: "must not be empty"}
	}
	if _, ok := PaymentMethods[f.PaymentMethod]; !ok {
		return &ValidationError{Field: "payment_method", Reason: "unknown payment method"}
	}
	return nil
}

// Config holds shipping pricing.
type Config struct {
	// FlatShippingFee is charged when the subtotal is below FreeShippingAt.
	FlatShippingFee decimal.Decimal
	// FreeShippingAt is the subtotal threshold for free shipping.
	FreeShippingAt decimal.Decimal
}

// Coordinator runs checkout against the session store and order repository.
type Coordinator struct {
	sessions session.Store
	orders   order.Repository
	cfg      Config
}

// NewCoordinator creates a checkout Coordinator.
func NewCoordinator(sessions session.Store, orders order.Repository, cfg Config) *Coordinator {
	return &Coordinator{sessions: sessions, orders: orders, cfg: cfg}
}

// Checkout places an order for the session's live cart and returns the new
// order ID.
//
// The cart is always re-fetched and repaired here; snapshots passed from
// earlier requests are never trusted. The session cart is cleared only
// after the order transaction has committed: if persistence fails, the cart
// stays intact so the user can retry without re-adding items.
func (c *Coordinator) Checkout(ctx context.Context, sessionID string, form Form) (int64, error) {
	if err := form.validate(); err != nil {
		return 0, err
	}

	u, ok, err := c.sessions.User(ctx, sessionID)
	if err != nil {
		return 0, errors.Wrap(err, "read session user")
	}
	if !ok || u.ID <= 0 {
		return 0, ErrAnonymous
	}

	raw, err := c.sessions.Cart(ctx, sessionID)
	if err != nil {
		return 0, errors.Wrap(err, "read session cart")
	}
	ct := cart.Repair(raw)
	if ct.IsEmpty() {
		return 0, ErrEmptyCart
	}

	res := promotion.Evaluate(ct)
	subtotal := res.AdjustedTotal(ct).Round(2)

	fee := decimal.Zero
	if subtotal.LessThan(c.cfg.FreeShippingAt) {
		fee = c.cfg.FlatShippingFee
	}

	items := make([]order.Item, len(ct.Lines))
	for i, l := range ct.Lines {
		items[i] = order.Item{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
		}
	}

	id, err := c.orders.Create(ctx, order.Draft{
		UserID:          u.ID,
		Items:           items,
		Subtotal:        subtotal,
		ShippingFee:     fee,
		Total:           subtotal.Add(fee),
		ShippingAddress: form.ShippingAddress,
		PaymentMethod:   form.PaymentMethod,
	})
	if err != nil {
		// The transaction rolled back; the session cart is untouched.
		return 0, err
	}

	if err := c.sessions.ClearCart(ctx, sessionID); err != nil {
		// The order is committed; a stale cart is an annoyance, not a loss.
		zctx.From(ctx).Warn("clear cart after checkout",
			zap.Int64("order_id", id),
			zap.Error(err),
		)
	}
	return id, nil
}
