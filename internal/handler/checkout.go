package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/freshmart/storefront/internal/domain/checkout"
)

func decodeCheckoutForm(data []byte) (checkout.Form, error) {
	var form checkout.Form
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "shipping_address":
			form.ShippingAddress, err = d.Str()
		case "payment_method":
			form.PaymentMethod, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return form, err
}

func (h *Handler) postCheckout(w http.ResponseWriter, r *http.Request) {
	sid := h.sessionID(w, r)

	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}
	form, err := decodeCheckoutForm(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed checkout form")
		return
	}

	orderID, err := h.checkout.Checkout(r.Context(), sid, form)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("order_id")
		e.Int64(orderID)
		e.ObjEnd()
	})
}
