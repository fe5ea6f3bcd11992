package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a product or variant does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog entry. Purchasable stock lives on its variants.
type Product struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Category    string
	BasePrice   decimal.Decimal
	CreatedAt   time.Time
}

// Variant is the stock-bearing unit under a product. Its effective price is
// the product base price plus the variant price adjustment.
type Variant struct {
	ID              string
	ProductID       string
	SKU             string
	Size            string
	Color           string
	PriceAdjustment decimal.Decimal
	StockQuantity   int
	IsAvailable     bool

	// ProductName and BasePrice are denormalized from the parent product on
	// read so callers can price a variant without a second lookup.
	ProductName string
	BasePrice   decimal.Decimal
}

// Price returns the effective unit price of the variant.
func (v *Variant) Price() decimal.Decimal {
	return v.BasePrice.Add(v.PriceAdjustment)
}

// SearchQuery holds the parameters for a catalog search.
type SearchQuery struct {
	Term     string
	Category string
	Limit    int
	Offset   int
}

// Suggestions groups prefix-completion results for the search box.
type Suggestions struct {
	Products   []string `json:"products"`
	Categories []string `json:"categories"`
}

// Repository defines catalog read operations.
type Repository interface {
	GetVariant(ctx context.Context, variantID string) (*Variant, error)
	GetVariants(ctx context.Context, variantIDs []string) ([]Variant, error)
	Search(ctx context.Context, q SearchQuery) ([]Product, int, error)
	SuggestProducts(ctx context.Context, prefix string, limit int) ([]string, error)
	SuggestCategories(ctx context.Context, prefix string, limit int) ([]string, error)
}
