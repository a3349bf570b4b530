package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshmart/storefront/internal/session"
)

func TestAddCartItem(t *testing.T) {
	e := newEnv(t)
	sid := session.NewID()

	rec := e.do("POST", "/api/cart/items", sid, `{"product_id": 11, "quantity": 2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeObj(t, rec)
	lines := body["lines"].([]any)
	require.Len(t, lines, 1)
	line := lines[0].(map[string]any)
	assert.EqualValues(t, 11, line["product_id"])
	assert.Equal(t, "Whole Milk", line["name"])
	assert.EqualValues(t, 2.6, line["unit_price"])
	assert.EqualValues(t, 2, line["quantity"])
	assert.Equal(t, "Dairy", line["category"])
	assert.Equal(t, false, line["in_promotion"])
	assert.EqualValues(t, 5.2, body["total"])

	// The cart blob is persisted in the session store.
	raw, err := e.sessions.Cart(context.Background(), sid)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
}

func TestAddCartItem_DefaultsQuantityToOne(t *testing.T) {
	e := newEnv(t)
	sid := session.NewID()

	rec := e.do("POST", "/api/cart/items", sid, `{"product_id": 4}`)
	require.Equal(t, http.StatusOK, rec.Code)

	line := decodeObj(t, rec)["lines"].([]any)[0].(map[string]any)
	assert.EqualValues(t, 1, line["quantity"])
}

func TestAddCartItem_MergesSameProduct(t *testing.T) {
	e := newEnv(t)
	sid := session.NewID()

	e.do("POST", "/api/cart/items", sid, `{"product_id": 4, "quantity": 2}`)
	rec := e.do("POST", "/api/cart/items", sid, `{"product_id": 4, "quantity": 3}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeObj(t, rec)
	lines := body["lines"].([]any)
	require.Len(t, lines, 1)
	assert.EqualValues(t, 5, lines[0].(map[string]any)["quantity"])
}

func TestAddCartItem_Rejections(t *testing.T) {
	e := newEnv(t)
	sid := session.NewID()

	tests := []struct {
		name string
		body string
		code int
	}{
		{"unknown product", `{"product_id": 9999}`, http.StatusUnprocessableEntity},
		{"missing product_id", `{"quantity": 2}`, http.StatusBadRequest},
		{"negative product_id", `{"product_id": -4}`, http.StatusBadRequest},
		{"malformed body", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do("POST", "/api/cart/items", sid, tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestUpdateCartItem(t *testing.T) {
	e := newEnv(t)
	sid := session.NewID()
	e.do("POST", "/api/cart/items", sid, `{"product_id": 4, "quantity": 2}`)

	rec := e.do("PATCH", "/api/cart/items/4", sid, `{"quantity": 7}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeObj(t, rec)
	assert.EqualValues(t, 7, body["lines"].([]any)[0].(map[string]any)["quantity"])
	assert.EqualValues(t, 14, body["total"])

	// Zero removes the line.
	rec = e.do("PATCH", "/api/cart/items/4", sid, `{"quantity": 0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeObj(t, rec)["lines"])
}

func TestUpdateCartItem_AbsentIDIsNoop(t *testing.T) {
	e := newEnv(t)
	sid := session.NewID()
	e.do("POST", "/api/cart/items", sid, `{"product_id": 4, "quantity": 2}`)

	rec := e.do("PATCH", "/api/cart/items/999", sid, `{"quantity": 5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeObj(t, rec)
	require.Len(t, body["lines"].([]any), 1)
	assert.EqualValues(t, 2, body["lines"].([]any)[0].(map[string]any)["quantity"])
}

func TestUpdateCartItem_Rejections(t *testing.T) {
	e := newEnv(t)
	sid := session.NewID()

	rec := e.do("PATCH", "/api/cart/items/abc", sid, `{"quantity": 5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do("PATCH", "/api/cart/items/4", sid, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveCartItem(t *testing.T) {
	e := newEnv(t)
	sid := session.NewID()
	e.do("POST", "/api/cart/items", sid, `{"product_id": 4}`)
	e.do("POST", "/api/cart/items", sid, `{"product_id": 11}`)

	rec := e.do("DELETE", "/api/cart/items/4", sid, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeObj(t, rec)
	lines := body["lines"].([]any)
	require.Len(t, lines, 1)
	assert.EqualValues(t, 11, lines[0].(map[string]any)["product_id"])

	// Removing it again is not an error.
	rec = e.do("DELETE", "/api/cart/items/4", sid, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetCart_RepairsCorruptSessionBlob(t *testing.T) {
	e := newEnv(t)
	sid := session.NewID()
	blob := `{"lines":[{"id":"4","name":"Fuji Apples","price":"2.00","quantity":"3","category":"Fruits"},"junk"],"total":-1}`
	require.NoError(t, e.sessions.SetCart(context.Background(), sid, []byte(blob)))

	rec := e.do("GET", "/api/cart", sid, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeObj(t, rec)
	lines := body["lines"].([]any)
	require.Len(t, lines, 1)
	line := lines[0].(map[string]any)
	assert.EqualValues(t, 4, line["product_id"])
	assert.EqualValues(t, 3, line["quantity"])
	assert.EqualValues(t, 6, body["total"], "supplied total must be recomputed")
}

func TestCartResponse_PromotionApplied(t *testing.T) {
	e := newEnv(t)
	sid := session.NewID()
	e.do("POST", "/api/cart/items", sid, `{"product_id": 7}`)
	e.do("POST", "/api/cart/items", sid, `{"product_id": 4, "quantity": 2}`)
	e.do("POST", "/api/cart/items", sid, `{"product_id": 1, "quantity": 2}`)
	rec := e.do("POST", "/api/cart/items", sid, `{"product_id": 11}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeObj(t, rec)
	promo := body["promotion"].(map[string]any)
	assert.Equal(t, true, promo["applied"])
	assert.EqualValues(t, 3, promo["discount"])
	assert.EqualValues(t, 10, promo["bundle_price"])
	// 13 bundled to 10, plus 2.60 of milk.
	assert.EqualValues(t, 12.6, body["total"])

	for _, l := range body["lines"].([]any) {
		line := l.(map[string]any)
		inBundle := line["product_id"].(float64) != 11
		assert.Equal(t, inBundle, line["in_promotion"], "product %v", line["product_id"])
	}
}
