package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront-api/internal/domain/cart"
)

type cartItemResponse struct {
	ID          string `json:"id"`
	VariantID   string `json:"variant_id"`
	ItemType    string `json:"item_type"`
	Quantity    int    `json:"quantity"`
	ProductName string `json:"product_name"`
	SKU         string `json:"sku"`
	Size        string `json:"size,omitempty"`
	Color       string `json:"color,omitempty"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
	InStock     int    `json:"in_stock"`
	IsAvailable bool   `json:"is_available"`
}

type cartResponse struct {
	ID         string             `json:"id"`
	Items      []cartItemResponse `json:"items"`
	SavedItems []cartItemResponse `json:"saved_items"`
	Subtotal   string             `json:"subtotal"`
}

func toCartItemResponse(i *cart.Item) cartItemResponse {
	return cartItemResponse{
		ID:          i.ID,
		VariantID:   i.VariantID,
		ItemType:    string(i.Type),
		Quantity:    i.Quantity,
		ProductName: i.ProductName,
		SKU:         i.SKU,
		Size:        i.Size,
		Color:       i.Color,
		UnitPrice:   i.UnitPrice.StringFixed(2),
		LineTotal:   i.LineTotal().StringFixed(2),
		InStock:     i.InStock,
		IsAvailable: i.IsAvailable,
	}
}

func toCartResponse(v *cart.View) cartResponse {
	resp := cartResponse{
		ID:         v.Cart.ID,
		Items:      make([]cartItemResponse, len(v.Items)),
		SavedItems: make([]cartItemResponse, len(v.SavedItems)),
		Subtotal:   v.Subtotal.StringFixed(2),
	}
	for i := range v.Items {
		resp.Items[i] = toCartItemResponse(&v.Items[i])
	}
	for i := range v.SavedItems {
		resp.SavedItems[i] = toCartItemResponse(&v.SavedItems[i])
	}
	return resp
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.Get(r.Context(), UserID(r.Context()))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toCartResponse(view))
}

type addCartItemRequest struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	ItemType  string `json:"item_type"`
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.VariantID == "" {
		respondError(w, http.StatusBadRequest, "variant_id is required")
		return
	}

	item, err := h.carts.AddItem(r.Context(), UserID(r.Context()), req.VariantID, req.Quantity, cart.ItemType(req.ItemType))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, toCartItemResponse(item))
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.carts.UpdateQuantity(r.Context(), UserID(r.Context()), chi.URLParam(r, "itemID"), req.Quantity)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toCartItemResponse(item))
}

type moveCartItemRequest struct {
	To string `json:"to"`
}

func (h *Handler) moveCartItem(w http.ResponseWriter, r *http.Request) {
	var req moveCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.carts.MoveItem(r.Context(), UserID(r.Context()), chi.URLParam(r, "itemID"), cart.ItemType(req.To))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toCartItemResponse(item))
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	err := h.carts.RemoveItem(r.Context(), UserID(r.Context()), chi.URLParam(r, "itemID"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
