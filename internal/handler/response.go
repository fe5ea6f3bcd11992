package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/address"
	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/coupon"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/wishlist"
)

// envelope is the uniform response shape: data on success, error (plus
// optional field messages) on failure.
type envelope struct {
	Data     any    `json:"data,omitempty"`
	Error    string `json:"error,omitempty"`
	Messages []any  `json:"messages,omitempty"`
}

func respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Data: data})
}

func respondError(w http.ResponseWriter, status int, message string, fieldMessages ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: message, Messages: fieldMessages})
}

// respondDomainError maps domain errors to the HTTP taxonomy: not-found,
// validation, business-rule violation, or a logged generic 500. Ownership
// failures arrive as not-found sentinels so resource existence does not leak.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, address.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, wishlist.ErrItemNotFound),
		errors.Is(err, product.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	var vErr *address.ValidationError
	if errors.As(err, &vErr) {
		msgs := make([]any, len(vErr.Fields))
		for i, f := range vErr.Fields {
			msgs[i] = f
		}
		respondError(w, http.StatusBadRequest, "validation failed", msgs...)
		return
	}

	if isBusinessError(err) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	zctx.From(r.Context()).Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal server error")
}

func isBusinessError(err error) bool {
	switch {
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrReturnWindowExpired),
		errors.Is(err, order.ErrReturnReasonMissing),
		errors.Is(err, order.ErrReturnItemsMissing),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrVariantUnavailable),
		errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrCouponUsageLimitReached),
		errors.Is(err, coupon.ErrMinSubtotalNotMet):
		return true
	}

	var (
		transitionErr *order.InvalidTransitionError
		stockErr      *order.OutOfStockError
		returnErr     *order.ReturnItemError
		cartStockErr  *cart.InsufficientStockError
	)
	return errors.As(err, &transitionErr) ||
		errors.As(err, &stockErr) ||
		errors.As(err, &returnErr) ||
		errors.As(err, &cartStockErr)
}

// decodeJSON decodes the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
