package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/jx"

	"github.com/freshmart/storefront/internal/domain/order"
	"github.com/freshmart/storefront/internal/session"
)

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	sid := h.sessionID(w, r)

	u, _, ok := h.actor(r, sid)
	if !ok {
		writeError(w, http.StatusUnauthorized, "sign in to view orders")
		return
	}

	recs := h.orders.ListByUser(r.Context(), u.ID)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, rec := range recs {
			encodeRecord(e, rec)
		}
		e.ArrEnd()
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	sid := h.sessionID(w, r)

	u, role, ok := h.actor(r, sid)
	if !ok {
		writeError(w, http.StatusUnauthorized, "sign in to view orders")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	rec, err := h.orders.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	// Customers only see their own orders. A foreign order reads as absent
	// rather than forbidden, so order IDs cannot be probed.
	if role != order.RoleManager && rec.Owner() != u.ID {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeRecord(e, rec)
	})
}

func (h *Handler) postOrderStatus(w http.ResponseWriter, r *http.Request) {
	sid := h.sessionID(w, r)

	u, role, ok := h.actor(r, sid)
	if !ok {
		writeError(w, http.StatusUnauthorized, "sign in to manage orders")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}
	raw, ok := decodeStatus(body)
	if !ok {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}
	status, err := order.ParseStatus(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.orders.ApplyTransition(r.Context(), id, status, u.ID, role)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeRecord(e, rec)
	})
}

// postSession is a development stand-in for the real authentication
// collaborator: it binds a user ID and role to the current session.
func (h *Handler) postSession(w http.ResponseWriter, r *http.Request) {
	sid := h.sessionID(w, r)

	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	var u session.User
	d := jx.DecodeBytes(body)
	decErr := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "user_id":
			u.ID, err = d.Int64()
		case "role":
			u.Role, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if decErr != nil || u.ID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if u.Role != string(order.RoleManager) {
		u.Role = string(order.RoleCustomer)
	}

	if err := h.sessions.SetUser(r.Context(), sid, u); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeStatus(data []byte) (string, bool) {
	var (
		status string
		found  bool
	)
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		v, err := d.Str()
		if err != nil {
			return err
		}
		status = v
		found = true
		return nil
	})
	return status, err == nil && found
}

// encodeRecord renders either order schema. The "legacy" discriminator tells
// clients which shape they are looking at.
func encodeRecord(e *jx.Encoder, rec order.Record) {
	switch o := rec.(type) {
	case *order.Order:
		e.ObjStart()
		e.FieldStart("id")
		e.Int64(o.ID)
		e.FieldStart("legacy")
		e.Bool(false)
		e.FieldStart("items")
		e.ArrStart()
		for _, it := range o.Items {
			e.ObjStart()
			e.FieldStart("product_id")
			e.Int64(it.ProductID)
			e.FieldStart("name")
			e.Str(it.Name)
			e.FieldStart("unit_price")
			encodeMoney(e, it.UnitPrice)
			e.FieldStart("quantity")
			e.Int(it.Quantity)
			e.ObjEnd()
		}
		e.ArrEnd()
		e.FieldStart("subtotal")
		encodeMoney(e, o.Subtotal)
		e.FieldStart("shipping_fee")
		encodeMoney(e, o.ShippingFee)
		e.FieldStart("total")
		encodeMoney(e, o.Total)
		e.FieldStart("shipping_address")
		e.Str(o.ShippingAddress)
		e.FieldStart("payment_method")
		e.Str(o.PaymentMethod)
		e.FieldStart("status")
		e.Str(string(o.Status))
		e.FieldStart("ordered_at")
		e.Str(o.OrderedAt.Format(time.RFC3339))
		e.FieldStart("updated_at")
		e.Str(o.UpdatedAt.Format(time.RFC3339))
		e.ObjEnd()
	case *order.LegacyOrder:
		e.ObjStart()
		e.FieldStart("id")
		e.Int64(o.ID)
		e.FieldStart("legacy")
		e.Bool(true)
		e.FieldStart("product_name")
		e.Str(o.ProductName)
		e.FieldStart("unit_price")
		encodeMoney(e, o.UnitPrice)
		e.FieldStart("quantity")
		e.Int(o.Quantity)
		e.FieldStart("total")
		encodeMoney(e, o.Total)
		e.FieldStart("shipping_address")
		e.Str(o.ShippingAddress)
		e.FieldStart("payment_method")
		e.Str(o.PaymentMethod)
		e.FieldStart("status")
		e.Str(string(o.Status))
		e.FieldStart("ordered_at")
		e.Str(o.OrderedAt.Format(time.RFC3339))
		e.ObjEnd()
	}
}
