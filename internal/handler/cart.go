package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/freshmart/storefront/internal/domain/cart"
	"github.com/freshmart/storefront/internal/domain/promotion"
)

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	sid := h.sessionID(w, r)

	ct, err := h.loadCart(r, sid)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	respondCart(w, ct)
}

type addItemRequest struct {
	ProductID int64
	Quantity  int
}

func decodeAddItem(data []byte) (addItemRequest, error) {
	req := addItemRequest{Quantity: 1}
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "product_id":
			req.ProductID, err = d.Int64()
		case "quantity":
			req.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	sid := h.sessionID(w, r)

	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}
	req, err := decodeAddItem(body)
	if err != nil || req.ProductID <= 0 {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	// Snapshot name, price and category now; checkout never re-queries the
	// catalog.
	p, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	ct, err := h.loadCart(r, sid)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	ct = ct.AddLine(p.ID, p.Name, p.Price, p.Category, req.Quantity)

	if err := h.sessions.SetCart(r.Context(), sid, cart.Encode(ct)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	respondCart(w, ct)
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	sid := h.sessionID(w, r)

	productID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}
	quantity, ok := decodeQuantity(body)
	if !ok {
		writeError(w, http.StatusBadRequest, "quantity is required")
		return
	}

	ct, err := h.loadCart(r, sid)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	ct = ct.UpdateQuantity(productID, quantity)

	if err := h.sessions.SetCart(r.Context(), sid, cart.Encode(ct)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	respondCart(w, ct)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	sid := h.sessionID(w, r)

	productID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	ct, err := h.loadCart(r, sid)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	ct = ct.RemoveLine(productID)

	if err := h.sessions.SetCart(r.Context(), sid, cart.Encode(ct)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	respondCart(w, ct)
}

// loadCart fetches and repairs the session cart. Malformed stored state never
// fails a cart request; it is normalized away.
func (h *Handler) loadCart(r *http.Request, sid string) (cart.Cart, error) {
	raw, err := h.sessions.Cart(r.Context(), sid)
	if err != nil {
		return cart.Empty(), err
	}
	return cart.Repair(raw), nil
}

func decodeQuantity(data []byte) (int, bool) {
	var (
		quantity int
		found    bool
	)
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		v, err := d.Int()
		if err != nil {
			return err
		}
		quantity = v
		found = true
		return nil
	})
	return quantity, err == nil && found
}

// respondCart renders the cart with a fresh promotion evaluation. The result
// is always recomputed; any mutation can change eligibility.
func respondCart(w http.ResponseWriter, ct cart.Cart) {
	res := promotion.Evaluate(ct)
	marked := promotion.Mark(ct, res)

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("lines")
		e.ArrStart()
		for _, l := range marked.Lines {
			e.ObjStart()
			e.FieldStart("product_id")
			e.Int64(l.ProductID)
			e.FieldStart("name")
			e.Str(l.Name)
			e.FieldStart("unit_price")
			encodeMoney(e, l.UnitPrice)
			e.FieldStart("quantity")
			e.Int(l.Quantity)
			e.FieldStart("category")
			e.Str(string(l.Category))
			e.FieldStart("in_promotion")
			e.Bool(l.InPromotion)
			e.ObjEnd()
		}
		e.ArrEnd()
		e.FieldStart("total")
		encodeMoney(e, res.AdjustedTotal(ct))
		e.FieldStart("promotion")
		e.ObjStart()
		e.FieldStart("applied")
		e.Bool(res.Applied)
		e.FieldStart("discount")
		encodeMoney(e, res.Discount)
		e.FieldStart("bundle_price")
		encodeMoney(e, res.BundlePrice)
		e.ObjEnd()
		e.ObjEnd()
	})
}
