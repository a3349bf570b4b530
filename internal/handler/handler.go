// Package handler exposes the cart-to-order pipeline over HTTP. It owns
// transport concerns only: session cookies, request decoding, and the
// translation of typed domain errors into responses.
package handler

import (
	"net/http"

	"github.com/freshmart/storefront/internal/domain/checkout"
	"github.com/freshmart/storefront/internal/domain/order"
	"github.com/freshmart/storefront/internal/domain/product"
	"github.com/freshmart/storefront/internal/session"
)

// SessionCookie is the name of the session identifier cookie.
const SessionCookie = "fm_session"

// Handler wires the HTTP surface to the domain services.
type Handler struct {
	sessions session.Store
	products product.Repository
	orders   *order.Service
	checkout *checkout.Coordinator
}

// New constructs a Handler with the required domain dependencies.
func New(
	sessions session.Store,
	products product.Repository,
	orders *order.Service,
	checkoutCoord *checkout.Coordinator,
) *Handler {
	return &Handler{
		sessions: sessions,
		products: products,
		orders:   orders,
		checkout: checkoutCoord,
	}
}

// Routes returns the API route table.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("POST /api/cart/items", h.addCartItem)
	mux.HandleFunc("PATCH /api/cart/items/{id}", h.updateCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.removeCartItem)
	mux.HandleFunc("POST /api/checkout", h.postCheckout)
	mux.HandleFunc("GET /api/orders", h.listOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("POST /api/orders/{id}/status", h.postOrderStatus)
	mux.HandleFunc("POST /api/session", h.postSession)
	return mux
}

// sessionID returns the request's session identifier, minting a new one and
// setting the cookie when the request carries none.
func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}

	id := session.NewID()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// actor resolves the session's user and role. Anonymous sessions report
// ok=false; an unknown role string degrades to customer.
func (h *Handler) actor(r *http.Request, sid string) (session.User, order.Role, bool) {
	u, ok, err := h.sessions.User(r.Context(), sid)
	if err != nil || !ok {
		return session.User{}, order.RoleCustomer, false
	}
	role := order.RoleCustomer
	if u.Role == string(order.RoleManager) {
		role = order.RoleManager
	}
	return u, role, true
}
