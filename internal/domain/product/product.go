// Package product defines the catalog lookup contract. The catalog is
// consulted only when a line is added to the cart: name, price and category
// are snapshotted at add time and never re-queried at checkout.
package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/freshmart/storefront/internal/domain/cart"
)

// ErrNotFound is returned when no product exists with the requested ID.
var ErrNotFound = errors.New("product not found")

// Product is a catalog entry.
type Product struct {
	ID       int64
	Name     string
	Price    decimal.Decimal
	Category cart.Category
}

// Repository provides catalog lookups.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
}
