// Package handler exposes the storefront HTTP API.
package handler

import (
	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront-api/internal/domain/address"
	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/wishlist"
)

// Handler wires the domain services to the HTTP surface. All business rules
// live in the services; handlers do request decoding, ownership scoping via
// the session user, and error-to-status mapping.
type Handler struct {
	sessions  *SessionManager
	addresses *address.Service
	carts     *cart.Service
	wishlists *wishlist.Service
	orders    *order.Service
	products  product.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	sessions *SessionManager,
	addresses *address.Service,
	carts *cart.Service,
	wishlists *wishlist.Service,
	orders *order.Service,
	products product.Repository,
) *Handler {
	return &Handler{
		sessions:  sessions,
		addresses: addresses,
		carts:     carts,
		wishlists: wishlists,
		orders:    orders,
		products:  products,
	}
}

// Routes returns the API router. Everything except session issuance and
// search requires an authenticated session.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/auth/session", h.issueSession)

	r.Get("/search", h.search)
	r.Get("/search/suggestions", h.searchSuggestions)

	r.Group(func(r chi.Router) {
		r.Use(h.sessions.Middleware)

		r.Route("/account/addresses", func(r chi.Router) {
			r.Get("/", h.listAddresses)
			r.Post("/", h.createAddress)
			r.Get("/{id}", h.getAddress)
			r.Patch("/{id}", h.updateAddress)
			r.Delete("/{id}", h.deleteAddress)
		})

		r.Route("/account/order", func(r chi.Router) {
			r.Get("/", h.listOrders)
			r.Get("/{orderID}", h.getOrder)
			r.Get("/{orderID}/tracking", h.trackOrder)
			r.Post("/{orderID}/cancel", h.cancelOrder)
			r.Post("/{orderID}/return", h.returnOrder)
		})

		r.Post("/checkout", h.checkout)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.getCart)
			r.Post("/", h.addCartItem)
			r.Put("/{itemID}", h.updateCartItem)
			r.Post("/{itemID}/move", h.moveCartItem)
			r.Delete("/{itemID}", h.removeCartItem)
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", h.getWishlist)
			r.Post("/", h.addWishlistItem)
			r.Delete("/{itemID}", h.removeWishlistItem)
		})
	})

	return r
}
