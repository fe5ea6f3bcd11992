package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront-api/internal/domain/wishlist"
)

type wishlistItemResponse struct {
	ID          string    `json:"id"`
	VariantID   string    `json:"variant_id"`
	ProductName string    `json:"product_name"`
	SKU         string    `json:"sku"`
	Size        string    `json:"size,omitempty"`
	Color       string    `json:"color,omitempty"`
	UnitPrice   string    `json:"unit_price"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
}

type wishlistResponse struct {
	ID    string                 `json:"id"`
	Items []wishlistItemResponse `json:"items"`
}

func toWishlistItemResponse(i *wishlist.Item) wishlistItemResponse {
	return wishlistItemResponse{
		ID:          i.ID,
		VariantID:   i.VariantID,
		ProductName: i.ProductName,
		SKU:         i.SKU,
		Size:        i.Size,
		Color:       i.Color,
		UnitPrice:   i.UnitPrice.StringFixed(2),
		IsAvailable: i.IsAvailable,
		CreatedAt:   i.CreatedAt,
	}
}

func (h *Handler) getWishlist(w http.ResponseWriter, r *http.Request) {
	wl, items, err := h.wishlists.List(r.Context(), UserID(r.Context()))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := wishlistResponse{ID: wl.ID, Items: make([]wishlistItemResponse, len(items))}
	for i := range items {
		resp.Items[i] = toWishlistItemResponse(&items[i])
	}
	respond(w, http.StatusOK, resp)
}

type addWishlistItemRequest struct {
	VariantID string `json:"variant_id"`
}

func (h *Handler) addWishlistItem(w http.ResponseWriter, r *http.Request) {
	var req addWishlistItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.VariantID == "" {
		respondError(w, http.StatusBadRequest, "variant_id is required")
		return
	}

	item, err := h.wishlists.AddItem(r.Context(), UserID(r.Context()), req.VariantID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toWishlistItemResponse(item))
}

func (h *Handler) removeWishlistItem(w http.ResponseWriter, r *http.Request) {
	err := h.wishlists.RemoveItem(r.Context(), UserID(r.Context()), chi.URLParam(r, "itemID"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
