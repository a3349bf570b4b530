// Package promotion implements the fixed bundle promotion: 1 Meat + 2 Fruits
// + 2 Vegetables for a flat bundle price. Evaluation is a pure function of
// the cart's current lines; nothing is cached between calls.
package promotion

import (
	"github.com/shopspring/decimal"

	"github.com/freshmart/storefront/internal/domain/cart"
)

// bundlePrice is the flat price charged for a complete bundle. Decimals
// cannot be declared const, so the value stays unexported to keep it fixed.
var bundlePrice = decimal.NewFromInt(10)

// BundlePrice returns the flat price charged for a complete bundle.
func BundlePrice() decimal.Decimal {
	return bundlePrice
}

// Units required per category for a complete bundle.
const (
	meatUnits      = 1
	fruitUnits     = 2
	vegetableUnits = 2
)

// Result describes the outcome of evaluating a cart against the bundle.
type Result struct {
	// Applied is true only when the bundle is strictly cheaper than buying
	// the consumed units at their normal prices.
	Applied bool
	// Discount is the amount subtracted from the cart total when applied,
	// zero otherwise.
	Discount decimal.Decimal
	// BundlePrice echoes the flat bundle price for display.
	BundlePrice decimal.Decimal
	// MarkedLineIDs lists the product IDs that contributed consumed units,
	// in cart order.
	MarkedLineIDs []int64
}

// Evaluate checks bundle eligibility and computes the discount.
//
// Quantities are summed per category; eligibility requires at least 1 Meat,
// 2 Fruits and 2 Vegetables unit in total. Units are then consumed greedily
// in cart order (earlier lines win ties, never cheapest-first), and the
// discount is the consumed units' normal price minus the bundle price. A
// discount of zero or less means the customer gains nothing from the bundle:
// the promotion is not applied and the cart is charged at normal pricing.
func Evaluate(c cart.Cart) Result {
	res := Result{
		Discount:    decimal.Zero,
		BundlePrice: bundlePrice,
	}

	var meat, fruit, veg int
	for _, l := range c.Lines {
		switch l.Category {
		case cart.CategoryMeat:
			meat += l.Quantity
		case cart.CategoryFruits:
			fruit += l.Quantity
		case cart.CategoryVegetables:
			veg += l.Quantity
		}
	}
	if meat < meatUnits || fruit < fruitUnits || veg < vegetableUnits {
		return res
	}

	remaining := map[cart.Category]int{
		cart.CategoryMeat:       meatUnits,
		cart.CategoryFruits:     fruitUnits,
		cart.CategoryVegetables: vegetableUnits,
	}

	originalTotal := decimal.Zero
	var marked []int64
	for _, l := range c.Lines {
		need, ok := remaining[l.Category]
		if !ok || need == 0 {
			continue
		}
		consumed := min(l.Quantity, need)
		remaining[l.Category] = need - consumed
		originalTotal = originalTotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(consumed))))
		marked = append(marked, l.ProductID)
	}

	discount := originalTotal.Sub(bundlePrice)
	if !discount.IsPositive() {
		return res
	}

	res.Applied = true
	res.Discount = discount.Round(2)
	res.MarkedLineIDs = marked
	return res
}

// Mark returns a copy of the cart with InPromotion set on participating
// lines. Stored cart state is never mutated; the flag is display-only.
func Mark(c cart.Cart, res Result) cart.Cart {
	if !res.Applied {
		return c
	}

	ids := make(map[int64]struct{}, len(res.MarkedLineIDs))
	for _, id := range res.MarkedLineIDs {
		ids[id] = struct{}{}
	}

	lines := make([]cart.Line, len(c.Lines))
	copy(lines, c.Lines)
	for i := range lines {
		_, lines[i].InPromotion = ids[lines[i].ProductID]
	}
	return cart.Cart{Lines: lines, Total: c.Total}
}

// AdjustedTotal returns the cart total after the discount, or the unchanged
// total when the promotion is not applied.
func (r Result) AdjustedTotal(c cart.Cart) decimal.Decimal {
	if !r.Applied {
		return c.Total
	}
	return c.Total.Sub(r.Discount)
}
