package wishlist

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrItemNotFound is returned when a wishlist item does not exist for the
// user.
var ErrItemNotFound = errors.New("wishlist item not found")

// Wishlist is the per-user saved-products container, created lazily.
type Wishlist struct {
	ID        string
	UserID    string
	CreatedAt time.Time
}

// Item is a wishlist entry with variant details denormalized for display.
type Item struct {
	ID         string
	WishlistID string
	VariantID  string
	CreatedAt  time.Time

	ProductName string
	SKU         string
	Size        string
	Color       string
	UnitPrice   decimal.Decimal
	IsAvailable bool
}

// Repository defines persistence operations for wishlists.
//
// AddItem is idempotent: when the variant is already on the wishlist the
// existing row is returned unchanged.
type Repository interface {
	GetOrCreate(ctx context.Context, userID string) (*Wishlist, error)
	ListItems(ctx context.Context, wishlistID string) ([]Item, error)
	AddItem(ctx context.Context, item *Item) (*Item, error)
	DeleteItem(ctx context.Context, wishlistID, itemID string) error
}
