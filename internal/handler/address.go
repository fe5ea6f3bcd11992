package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront-api/internal/domain/address"
)

type addressPayload struct {
	Type          string `json:"address_type"`
	IsDefault     bool   `json:"is_default"`
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone"`
	Line1         string `json:"line1"`
	Line2         string `json:"line2"`
	City          string `json:"city"`
	State         string `json:"state"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
}

type addressResponse struct {
	ID string `json:"id"`
	addressPayload
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toAddressResponse(a *address.Address) addressResponse {
	return addressResponse{
		ID: a.ID,
		addressPayload: addressPayload{
			Type:          string(a.Type),
			IsDefault:     a.IsDefault,
			RecipientName: a.RecipientName,
			Phone:         a.Phone,
			Line1:         a.Line1,
			Line2:         a.Line2,
			City:          a.City,
			State:         a.State,
			PostalCode:    a.PostalCode,
			Country:       a.Country,
		},
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func (p *addressPayload) toDomain(userID, id string) *address.Address {
	t := address.Type(p.Type)
	if p.Type == "" {
		t = address.TypeBoth
	}
	return &address.Address{
		ID:            id,
		UserID:        userID,
		Type:          t,
		IsDefault:     p.IsDefault,
		RecipientName: p.RecipientName,
		Phone:         p.Phone,
		Line1:         p.Line1,
		Line2:         p.Line2,
		City:          p.City,
		State:         p.State,
		PostalCode:    p.PostalCode,
		Country:       p.Country,
	}
}

func (h *Handler) listAddresses(w http.ResponseWriter, r *http.Request) {
	addrs, err := h.addresses.List(r.Context(), UserID(r.Context()))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	out := make([]addressResponse, len(addrs))
	for i := range addrs {
		out[i] = toAddressResponse(&addrs[i])
	}
	respond(w, http.StatusOK, out)
}

func (h *Handler) getAddress(w http.ResponseWriter, r *http.Request) {
	a, err := h.addresses.Get(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toAddressResponse(a))
}

func (h *Handler) createAddress(w http.ResponseWriter, r *http.Request) {
	var req addressPayload
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.addresses.Create(r.Context(), req.toDomain(UserID(r.Context()), ""))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, toAddressResponse(a))
}

// updateAddress applies a partial update: absent fields keep their stored
// values.
func (h *Handler) updateAddress(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	id := chi.URLParam(r, "id")

	current, err := h.addresses.Get(r.Context(), userID, id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	req := addressPayload{
		Type:          string(current.Type),
		IsDefault:     current.IsDefault,
		RecipientName: current.RecipientName,
		Phone:         current.Phone,
		Line1:         current.Line1,
		Line2:         current.Line2,
		City:          current.City,
		State:         current.State,
		PostalCode:    current.PostalCode,
		Country:       current.Country,
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.addresses.Update(r.Context(), req.toDomain(userID, id))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toAddressResponse(a))
}

func (h *Handler) deleteAddress(w http.ResponseWriter, r *http.Request) {
	err := h.addresses.Delete(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
