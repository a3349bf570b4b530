//go:build integration

package integration

import (
	"fmt"
	"math"
	"net/http"
	"testing"
)

func approx(got, want float64) bool {
	return math.Abs(got-want) < 0.001
}

func addItem(t *testing.T, client *http.Client, productID int64, quantity int) cartResponse {
	t.Helper()

	resp := do(t, client, http.MethodPost, "/api/cart/items", map[string]any{
		"product_id": productID,
		"quantity":   quantity,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add item %d: expected 200, got %d", productID, resp.StatusCode)
	}
	return decodeJSON[cartResponse](t, resp)
}

func TestProducts_List(t *testing.T) {
	client := newSession(t)
	resp := do(t, client, http.MethodGet, "/api/products", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 15 {
		t.Fatalf("expected 15 products, got %d", len(products))
	}
	if products[0].Name != "Roma Tomatoes" || !approx(products[0].Price, 1.50) {
		t.Errorf("unexpected first product: %+v", products[0])
	}
}

func TestCart_AddUpdateRemove(t *testing.T) {
	client := newSession(t)

	cart := addItem(t, client, 11, 2)
	if len(cart.Lines) != 1 || cart.Lines[0].Quantity != 2 {
		t.Fatalf("unexpected cart after add: %+v", cart)
	}
	if !approx(cart.Total, 5.20) {
		t.Errorf("total: got %v, want 5.20", cart.Total)
	}

	resp := do(t, client, http.MethodPatch, "/api/cart/items/11", map[string]any{"quantity": 5})
	cart = decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if cart.Lines[0].Quantity != 5 || !approx(cart.Total, 13.00) {
		t.Fatalf("unexpected cart after update: %+v", cart)
	}

	resp = do(t, client, http.MethodDelete, "/api/cart/items/11", nil)
	cart = decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if len(cart.Lines) != 0 || !approx(cart.Total, 0) {
		t.Fatalf("unexpected cart after remove: %+v", cart)
	}
}

func TestCart_BundlePromotion(t *testing.T) {
	client := newSession(t)

	// 1 Meat + 2 Fruits + 2 Vegetables: 6.00 + 4.00 + 3.00 = 13.00, bundled
	// at 10.00.
	addItem(t, client, 7, 1)
	addItem(t, client, 4, 2)
	cart := addItem(t, client, 1, 2)

	if !cart.Promotion.Applied {
		t.Fatalf("promotion not applied: %+v", cart)
	}
	if !approx(cart.Promotion.Discount, 3.00) {
		t.Errorf("discount: got %v, want 3.00", cart.Promotion.Discount)
	}
	if !approx(cart.Total, 10.00) {
		t.Errorf("total: got %v, want 10.00", cart.Total)
	}
	for _, l := range cart.Lines {
		if !l.InPromotion {
			t.Errorf("line %d not marked in promotion", l.ProductID)
		}
	}
}

func TestCheckout_FullFlow(t *testing.T) {
	client := newSession(t)
	signIn(t, client, 1001, "customer")
	addItem(t, client, 11, 2)

	resp := do(t, client, http.MethodPost, "/api/checkout", map[string]any{
		"shipping_address": "12 Market Lane",
		"payment_method":   "card",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d", resp.StatusCode)
	}
	placed := decodeJSON[checkoutResponse](t, resp)
	resp.Body.Close()
	if placed.OrderID <= 0 {
		t.Fatalf("invalid order id %d", placed.OrderID)
	}

	// The session cart is cleared.
	resp = do(t, client, http.MethodGet, "/api/cart", nil)
	cart := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if len(cart.Lines) != 0 {
		t.Fatalf("cart not cleared: %+v", cart)
	}

	// The order is visible with a pending status and the shipping fee applied.
	resp = do(t, client, http.MethodGet, fmt.Sprintf("/api/orders/%d", placed.OrderID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get order: expected 200, got %d", resp.StatusCode)
	}
	ord := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	if ord.Legacy {
		t.Error("new orders must use the modern schema")
	}
	if ord.Status != "pending" {
		t.Errorf("status: got %q, want pending", ord.Status)
	}
	if !approx(ord.Subtotal, 5.20) || !approx(ord.ShippingFee, 5.00) || !approx(ord.Total, 10.20) {
		t.Errorf("amounts: %+v", ord)
	}
	if len(ord.Items) != 1 || ord.Items[0].ProductID != 11 {
		t.Errorf("items: %+v", ord.Items)
	}

	// It also appears in the order listing.
	resp = do(t, client, http.MethodGet, "/api/orders", nil)
	orders := decodeJSON[[]orderResponse](t, resp)
	resp.Body.Close()

	found := false
	for _, o := range orders {
		if o.ID == placed.OrderID {
			found = true
		}
	}
	if !found {
		t.Errorf("order %d missing from listing", placed.OrderID)
	}
}

func TestCheckout_FreeShippingOverThreshold(t *testing.T) {
	client := newSession(t)
	signIn(t, client, 1002, "customer")
	addItem(t, client, 8, 7) // 7 * 7.50 = 52.50

	resp := do(t, client, http.MethodPost, "/api/checkout", map[string]any{
		"shipping_address": "12 Market Lane",
		"payment_method":   "cash_on_delivery",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d", resp.StatusCode)
	}
	placed := decodeJSON[checkoutResponse](t, resp)
	resp.Body.Close()

	resp = do(t, client, http.MethodGet, fmt.Sprintf("/api/orders/%d", placed.OrderID), nil)
	ord := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	if !approx(ord.ShippingFee, 0) {
		t.Errorf("shipping fee: got %v, want 0", ord.ShippingFee)
	}
	if !approx(ord.Total, 52.50) {
		t.Errorf("total: got %v, want 52.50", ord.Total)
	}
}

func TestCheckout_Preconditions(t *testing.T) {
	t.Run("anonymous gets 401", func(t *testing.T) {
		client := newSession(t)
		addItem(t, client, 11, 1)

		resp := do(t, client, http.MethodPost, "/api/checkout", map[string]any{
			"shipping_address": "12 Market Lane",
			"payment_method":   "card",
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("empty cart gets 409", func(t *testing.T) {
		client := newSession(t)
		signIn(t, client, 1003, "customer")

		resp := do(t, client, http.MethodPost, "/api/checkout", map[string]any{
			"shipping_address": "12 Market Lane",
			"payment_method":   "card",
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("expected 409, got %d", resp.StatusCode)
		}
	})

	t.Run("bad form gets 400", func(t *testing.T) {
		client := newSession(t)
		signIn(t, client, 1004, "customer")
		addItem(t, client, 11, 1)

		resp := do(t, client, http.MethodPost, "/api/checkout", map[string]any{
			"payment_method": "card",
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
		body := decodeJSON[errorResponse](t, resp)
		if body.Message == "" {
			t.Error("error response missing message")
		}
	})
}

func TestOrderStatus_Lifecycle(t *testing.T) {
	customer := newSession(t)
	signIn(t, customer, 1005, "customer")
	addItem(t, customer, 11, 1)

	resp := do(t, customer, http.MethodPost, "/api/checkout", map[string]any{
		"shipping_address": "12 Market Lane",
		"payment_method":   "card",
	})
	placed := decodeJSON[checkoutResponse](t, resp)
	resp.Body.Close()

	setStatus := func(client *http.Client, status string) *http.Response {
		return do(t, client, http.MethodPost,
			fmt.Sprintf("/api/orders/%d/status", placed.OrderID),
			map[string]any{"status": status})
	}

	// Customer cannot push the order forward.
	resp = setStatus(customer, "shipped")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("customer ship: expected 403, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// A manager walks it through the lifecycle.
	manager := newSession(t)
	signIn(t, manager, 1, "manager")
	for _, status := range []string{"processing", "shipped", "delivered"} {
		resp = setStatus(manager, status)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("manager %s: expected 200, got %d", status, resp.StatusCode)
		}
		ord := decodeJSON[orderResponse](t, resp)
		resp.Body.Close()
		if ord.Status != status {
			t.Fatalf("status: got %q, want %q", ord.Status, status)
		}
	}

	// The customer confirms receipt of the delivered order.
	resp = setStatus(customer, "received")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("customer receive: expected 200, got %d", resp.StatusCode)
	}
	ord := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()
	if ord.Status != "received" {
		t.Fatalf("status: got %q, want received", ord.Status)
	}
}

func TestOrderStatus_CustomerCancelsPending(t *testing.T) {
	client := newSession(t)
	signIn(t, client, 1006, "customer")
	addItem(t, client, 11, 1)

	resp := do(t, client, http.MethodPost, "/api/checkout", map[string]any{
		"shipping_address": "12 Market Lane",
		"payment_method":   "card",
	})
	placed := decodeJSON[checkoutResponse](t, resp)
	resp.Body.Close()

	resp = do(t, client, http.MethodPost,
		fmt.Sprintf("/api/orders/%d/status", placed.OrderID),
		map[string]any{"status": "cancelled"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel pending: expected 200, got %d", resp.StatusCode)
	}
	ord := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()
	if ord.Status != "cancelled" {
		t.Fatalf("status: got %q, want cancelled", ord.Status)
	}
}

func TestOrders_IsolatedBetweenUsers(t *testing.T) {
	owner := newSession(t)
	signIn(t, owner, 1007, "customer")
	addItem(t, owner, 11, 1)

	resp := do(t, owner, http.MethodPost, "/api/checkout", map[string]any{
		"shipping_address": "12 Market Lane",
		"payment_method":   "card",
	})
	placed := decodeJSON[checkoutResponse](t, resp)
	resp.Body.Close()

	// A different customer cannot read or move the order.
	other := newSession(t)
	signIn(t, other, 1008, "customer")

	resp = do(t, other, http.MethodGet, fmt.Sprintf("/api/orders/%d", placed.OrderID), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign get: expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = do(t, other, http.MethodPost,
		fmt.Sprintf("/api/orders/%d/status", placed.OrderID),
		map[string]any{"status": "cancelled"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign cancel: expected 403, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestOrders_UnknownID(t *testing.T) {
	client := newSession(t)
	signIn(t, client, 1009, "customer")

	resp := do(t, client, http.MethodGet, "/api/orders/999999999", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Code != http.StatusNotFound {
		t.Errorf("error code: got %d, want 404", body.Code)
	}
}
