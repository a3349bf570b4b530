// Package cart holds the session-scoped shopping cart: a typed, always-valid
// sequence of line items with a derived total. Carts live in untrusted session
// storage, so the only way to build one from raw bytes is Repair, and every
// mutation recomputes the total from scratch.
package cart

import (
	"github.com/shopspring/decimal"
)

// Category classifies a product for promotion eligibility.
type Category string

const (
	CategoryVegetables Category = "Vegetables"
	CategoryFruits     Category = "Fruits"
	CategoryMeat       Category = "Meat"
	CategoryBakery     Category = "Bakery"
	CategoryDairy      Category = "Dairy"
	CategoryBeverages  Category = "Beverages"
	CategoryOther      Category = "Other"
)

// ParseCategory maps a raw string to a known Category. Anything outside the
// fixed enumeration becomes CategoryOther.
func ParseCategory(s string) Category {
	switch Category(s) {
	case CategoryVegetables, CategoryFruits, CategoryMeat,
		CategoryBakery, CategoryDairy, CategoryBeverages:
		return Category(s)
	default:
		return CategoryOther
	}
}

// Quantity bounds for a single line.
const (
	MinQuantity = 1
	MaxQuantity = 99
)

// Line is one product entry in a cart. InPromotion is transient display
// state set by the promotion engine and is never encoded or persisted.
type Line struct {
	ProductID   int64
	Name        string
	UnitPrice   decimal.Decimal
	Quantity    int
	Category    Category
	InPromotion bool
}

// Subtotal returns unit price times quantity for this line.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is an ordered sequence of lines plus the derived total. Insertion
// order is display order. The zero value is not valid; use Empty or Repair.
type Cart struct {
	Lines []Line
	Total decimal.Decimal
}

// Empty returns a cart with no lines and a zero total.
func Empty() Cart {
	return Cart{Total: decimal.Zero}
}

// AddLine merges quantity into an existing line with the same product ID, or
// appends a new line. Quantities clamp to [MinQuantity, MaxQuantity]; excess
// is silently capped. The total is recomputed.
func (c Cart) AddLine(productID int64, name string, unitPrice decimal.Decimal, category Category, quantity int) Cart {
	lines := cloneLines(c.Lines)
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity = clampQuantity(lines[i].Quantity + clampQuantity(quantity))
			return rebuild(lines)
		}
	}

	lines = append(lines, Line{
		ProductID: productID,
		Name:      name,
		UnitPrice: floorAtZero(unitPrice),
		Quantity:  clampQuantity(quantity),
		Category:  category,
	})
	return rebuild(lines)
}

// UpdateQuantity sets the quantity of the line with the given product ID.
// A quantity of zero or less removes the line. An absent product ID is a
// no-op. The total is recomputed either way.
func (c Cart) UpdateQuantity(productID int64, quantity int) Cart {
	if quantity <= 0 {
		return c.RemoveLine(productID)
	}

	lines := cloneLines(c.Lines)
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity = clampQuantity(quantity)
			break
		}
	}
	return rebuild(lines)
}

// RemoveLine drops the line with the given product ID. Removing an absent
// ID is not an error. The total is recomputed.
func (c Cart) RemoveLine(productID int64) Cart {
	lines := make([]Line, 0, len(c.Lines))
	for _, l := range c.Lines {
		if l.ProductID != productID {
			lines = append(lines, l)
		}
	}
	return rebuild(lines)
}

// Len returns the number of lines.
func (c Cart) Len() int {
	return len(c.Lines)
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// rebuild constructs a cart from lines, recomputing the total. Externally
// supplied totals are never trusted.
func rebuild(lines []Line) Cart {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return Cart{Lines: lines, Total: total}
}

func cloneLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}

func clampQuantity(q int) int {
	if q < MinQuantity {
		return MinQuantity
	}
	if q > MaxQuantity {
		return MaxQuantity
	}
	return q
}

func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
