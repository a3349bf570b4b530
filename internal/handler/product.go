package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, p := range products {
			e.ObjStart()
			e.FieldStart("id")
			e.Int64(p.ID)
			e.FieldStart("name")
			e.Str(p.Name)
			e.FieldStart("price")
			encodeMoney(e, p.Price)
			e.FieldStart("category")
			e.Str(string(p.Category))
			e.ObjEnd()
		}
		e.ArrEnd()
	})
}
