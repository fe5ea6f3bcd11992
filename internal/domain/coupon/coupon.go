package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage-based discount to the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed monetary discount capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
	// DiscountFreeLowest removes the cost of the cheapest line in the cart.
	DiscountFreeLowest DiscountType = "free_lowest"
)

// Coupon validation errors. All of them map to a business-rule violation at
// the HTTP layer.
var (
	ErrInvalidCoupon           = errors.New("invalid coupon code")
	ErrCouponExpired           = errors.New("coupon is not valid at this time")
	ErrCouponUsageLimitReached = errors.New("coupon usage limit reached")
	ErrMinSubtotalNotMet       = errors.New("order subtotal below coupon minimum")
)

// Rule defines a coupon's discount behaviour and eligibility constraints.
type Rule struct {
	Code         string
	DiscountType DiscountType
	Value        decimal.Decimal
	MinSubtotal  decimal.Decimal
	Description  string
	ValidFrom    *time.Time
	ValidUntil   *time.Time
	MaxUses      int64
	Uses         int64
}

// Discount holds the computed discount amount and a human-readable description.
type Discount struct {
	Amount      decimal.Decimal
	Description string
}

// Item represents a cart line for discount calculation purposes.
type Item struct {
	VariantID string
	Price     decimal.Decimal
	Quantity  int
}

// Repository provides lookup and usage accounting for coupon rules.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
	IncrementUses(ctx context.Context, code string) error
}
