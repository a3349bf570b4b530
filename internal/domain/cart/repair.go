package cart

import (
	"strconv"
	"strings"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// DefaultName replaces a missing or non-string product name during repair.
const DefaultName = "Unknown Product"

// Repair rebuilds a valid cart from an arbitrary session blob. The blob is
// untrusted: it may have been written by a crashed request, truncated, or
// mutated client-side. Candidate lines that are not JSON objects are dropped;
// every field of a kept line is coerced to its valid domain:
//
//   - id: integer, positive; absent or unusable values fall back to the
//     line's 1-based position in the rebuilt cart
//   - name: string, DefaultName when absent or not a string
//   - price: non-negative decimal, zero when absent or non-numeric
//   - quantity: integer clamped to [MinQuantity, MaxQuantity], default 1
//   - category: first element when multi-valued; CategoryOther when the
//     result is not a known category string
//
// The total is always recomputed; an externally supplied total is ignored.
// Repair never fails: unparsable input yields an empty cart, and
// Repair(Encode(Repair(x))) equals Repair(x) for any x.
func Repair(raw []byte) Cart {
	if len(raw) == 0 {
		return Empty()
	}

	d := jx.DecodeBytes(raw)

	var lines []Line
	switch d.Next() {
	case jx.Array:
		lines = repairLines(d)
	case jx.Object:
		// Canonical blob shape: {"lines": [...], "total": n}.
		_ = d.Obj(func(d *jx.Decoder, key string) error {
			if key == "lines" && d.Next() == jx.Array {
				lines = repairLines(d)
				return nil
			}
			return d.Skip()
		})
	}

	return rebuild(lines)
}

// Encode serializes a cart into the canonical session blob. InPromotion is
// display-only state and is never encoded.
func Encode(c Cart) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("lines")
	e.ArrStart()
	for _, l := range c.Lines {
		e.ObjStart()
		e.FieldStart("id")
		e.Int64(l.ProductID)
		e.FieldStart("name")
		e.Str(l.Name)
		e.FieldStart("price")
		e.Num(jx.Num(l.UnitPrice.String()))
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("category")
		e.Str(string(l.Category))
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("total")
	e.Num(jx.Num(c.Total.String()))
	e.ObjEnd()
	return e.Bytes()
}

func repairLines(d *jx.Decoder) []Line {
	var lines []Line
	_ = d.Arr(func(d *jx.Decoder) error {
		if d.Next() != jx.Object {
			// Not a structured record: drop the candidate.
			return d.Skip()
		}
		lines = append(lines, repairLine(d, int64(len(lines)+1)))
		return nil
	})
	return lines
}

func repairLine(d *jx.Decoder, fallbackID int64) Line {
	l := Line{
		Name:      DefaultName,
		UnitPrice: decimal.Zero,
		Quantity:  MinQuantity,
		Category:  CategoryOther,
	}

	var id int64
	_ = d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			if v, ok := coerceInt(d); ok && v > 0 {
				id = v
			}
			return nil
		case "name":
			if d.Next() != jx.String {
				return d.Skip()
			}
			s, err := d.Str()
			if err != nil {
				return err
			}
			if s != "" {
				l.Name = s
			}
			return nil
		case "price":
			if v, ok := coerceDecimal(d); ok {
				l.UnitPrice = floorAtZero(v)
			}
			return nil
		case "quantity":
			if v, ok := coerceInt(d); ok {
				l.Quantity = clampQuantity(int(v))
			}
			return nil
		case "category":
			l.Category = coerceCategory(d)
			return nil
		default:
			return d.Skip()
		}
	})

	if id <= 0 {
		id = fallbackID
	}
	l.ProductID = id
	return l
}

// coerceInt reads the next value as an integer, accepting numbers (floats
// truncate) and numeric strings. The value is always consumed.
func coerceInt(d *jx.Decoder) (int64, bool) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return 0, false
		}
		if v, err := n.Int64(); err == nil {
			return v, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
		return 0, false
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return 0, false
		}
		s = strings.TrimSpace(s)
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return v, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), true
		}
		return 0, false
	default:
		_ = d.Skip()
		return 0, false
	}
}

// coerceDecimal reads the next value as a decimal, accepting numbers and
// numeric strings. The value is always consumed.
func coerceDecimal(d *jx.Decoder) (decimal.Decimal, bool) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, false
		}
		v, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, false
		}
		return v, true
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, false
		}
		v, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return decimal.Zero, false
		}
		return v, true
	default:
		_ = d.Skip()
		return decimal.Zero, false
	}
}

// coerceCategory reads the next value as a category. Multi-valued input
// takes its first element; anything that does not resolve to a plain string
// becomes CategoryOther.
func coerceCategory(d *jx.Decoder) Category {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return CategoryOther
		}
		return ParseCategory(s)
	case jx.Array:
		cat := CategoryOther
		first := true
		_ = d.Arr(func(d *jx.Decoder) error {
			if first && d.Next() == jx.String {
				first = false
				s, err := d.Str()
				if err != nil {
					return err
				}
				cat = ParseCategory(s)
				return nil
			}
			first = false
			return d.Skip()
		})
		return cat
	default:
		_ = d.Skip()
		return CategoryOther
	}
}
