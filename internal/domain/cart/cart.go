package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ItemType separates the active cart from the save-for-later list. The same
// variant may appear once per type; adding it again merges quantities instead
// of duplicating the row.
type ItemType string

const (
	TypeCart  ItemType = "cart"
	TypeSaved ItemType = "saved"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	return t == TypeCart || t == TypeSaved
}

// Cart-level errors.
var (
	ErrItemNotFound       = errors.New("cart item not found")
	ErrVariantUnavailable = errors.New("product variant is not available")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
)

// InsufficientStockError indicates the requested quantity exceeds available
// stock.
type InsufficientStockError struct {
	VariantID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %s: requested %d, available %d",
		e.VariantID, e.Requested, e.Available)
}

// Cart is the per-user item container. One row per user, created lazily.
type Cart struct {
	ID        string
	UserID    string
	CreatedAt time.Time
}

// Item is a cart line with variant details denormalized for display and
// pricing.
type Item struct {
	ID        string
	CartID    string
	VariantID string
	Type      ItemType
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time

	ProductName string
	SKU         string
	Size        string
	Color       string
	UnitPrice   decimal.Decimal
	InStock     int
	IsAvailable bool
}

// LineTotal returns unit price times quantity.
func (i *Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// View is the cart as returned to clients: active and saved lines plus the
// subtotal over active lines only.
type View struct {
	Cart       *Cart
	Items      []Item
	SavedItems []Item
	Subtotal   decimal.Decimal
}

// Repository defines persistence operations for carts and their items.
//
// UpsertItem must be atomic: when a row for (cart, variant, type) already
// exists its quantity is incremented by the given amount, otherwise a new row
// is inserted. It returns the resulting row.
type Repository interface {
	GetOrCreate(ctx context.Context, userID string) (*Cart, error)
	ListItems(ctx context.Context, cartID string) ([]Item, error)
	GetItem(ctx context.Context, cartID, itemID string) (*Item, error)
	FindItem(ctx context.Context, cartID, variantID string, t ItemType) (*Item, error)
	UpsertItem(ctx context.Context, item *Item) (*Item, error)
	SetItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error
	DeleteItem(ctx context.Context, cartID, itemID string) error
	ClearActive(ctx context.Context, cartID string) error
}
