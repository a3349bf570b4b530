package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/freshmart/storefront/internal/domain/checkout"
	"github.com/freshmart/storefront/internal/domain/order"
	"github.com/freshmart/storefront/internal/domain/product"
)

// maxBodyBytes caps request bodies; the API only ever receives small JSON
// documents.
const maxBodyBytes = 1 << 20

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(msg)
		e.ObjEnd()
	})
}

// writeDomainError maps typed domain errors onto responses. Each error kind
// translates exactly one way so users can tell a rejected transition from a
// missing order from a storage failure.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *checkout.ValidationError
	if errors.As(err, &vErr) {
		writeError(w, http.StatusBadRequest, vErr.Error())
		return
	}
	if errors.Is(err, checkout.ErrAnonymous) {
		writeError(w, http.StatusUnauthorized, "sign in to check out")
		return
	}

	var tErr *order.TransitionRejectedError
	if errors.As(err, &tErr) {
		writeError(w, http.StatusForbidden, tErr.Error())
		return
	}
	if errors.Is(err, order.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if errors.Is(err, checkout.ErrEmptyCart) {
		writeError(w, http.StatusConflict, "cart is empty")
		return
	}
	if errors.Is(err, product.ErrNotFound) {
		writeError(w, http.StatusUnprocessableEntity, "product not found")
		return
	}

	var pErr *order.PersistenceError
	if errors.As(err, &pErr) {
		zctx.From(r.Context()).Error("order persistence failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "could not save your order, please retry")
		return
	}

	zctx.From(r.Context()).Error("unhandled error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(2)))
}
