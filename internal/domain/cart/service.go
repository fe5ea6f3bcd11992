package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/product"
)

// Service implements cart business rules on top of the cart repository and
// the product catalog.
type Service struct {
	carts    Repository
	products product.Repository
}

// NewService creates a cart Service.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{carts: carts, products: products}
}

// Get returns the user's cart with items split by type and the subtotal of
// the active lines. The cart row is created on first access.
func (s *Service) Get(ctx context.Context, userID string) (*View, error) {
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}

	items, err := s.carts.ListItems(ctx, c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart items")
	}

	view := &View{Cart: c, Subtotal: decimal.Zero}
	for _, item := range items {
		switch item.Type {
		case TypeSaved:
			view.SavedItems = append(view.SavedItems, item)
		default:
			view.Items = append(view.Items, item)
			view.Subtotal = view.Subtotal.Add(item.LineTotal())
		}
	}
	return view, nil
}

// AddItem adds a variant to the user's cart. Adding a variant that is already
// present for the same item type increments its quantity; the combined
// quantity is validated against available stock before the write.
func (s *Service) AddItem(ctx context.Context, userID, variantID string, quantity int, t ItemType) (*Item, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if t == "" {
		t = TypeCart
	}
	if !t.Valid() {
		return nil, errors.Errorf("unknown item type %q", t)
	}

	v, err := s.products.GetVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if !v.IsAvailable {
		return nil, ErrVariantUnavailable
	}

	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}

	combined := quantity
	existing, err := s.carts.FindItem(ctx, c.ID, variantID, t)
	switch {
	case err == nil:
		combined += existing.Quantity
	case errors.Is(err, ErrItemNotFound):
	default:
		return nil, errors.Wrap(err, "find cart item")
	}

	if combined > v.StockQuantity {
		return nil, &InsufficientStockError{
			VariantID: variantID,
			Requested: combined,
			Available: v.StockQuantity,
		}
	}

	item, err := s.carts.UpsertItem(ctx, &Item{
		ID:        uuid.New().String(),
		CartID:    c.ID,
		VariantID: variantID,
		Type:      t,
		Quantity:  quantity,
	})
	if err != nil {
		return nil, errors.Wrap(err, "upsert cart item")
	}
	return item, nil
}

// UpdateQuantity sets the quantity of an existing cart line. Values below 1
// are rejected; callers should remove the line instead.
func (s *Service) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*Item, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}

	item, err := s.carts.GetItem(ctx, c.ID, itemID)
	if err != nil {
		return nil, err
	}

	v, err := s.products.GetVariant(ctx, item.VariantID)
	if err != nil {
		return nil, err
	}
	if quantity > v.StockQuantity {
		return nil, &InsufficientStockError{
			VariantID: item.VariantID,
			Requested: quantity,
			Available: v.StockQuantity,
		}
	}

	if err := s.carts.SetItemQuantity(ctx, c.ID, itemID, quantity); err != nil {
		return nil, errors.Wrap(err, "set quantity")
	}
	item.Quantity = quantity
	return item, nil
}

// MoveItem moves a line between the active cart and the save-for-later list.
// When the target type already holds the same variant, the quantities merge
// under the usual stock validation and the source line is removed.
func (s *Service) MoveItem(ctx context.Context, userID, itemID string, to ItemType) (*Item, error) {
	if !to.Valid() {
		return nil, errors.Errorf("unknown item type %q", to)
	}

	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}

	item, err := s.carts.GetItem(ctx, c.ID, itemID)
	if err != nil {
		return nil, err
	}
	if item.Type == to {
		return item, nil
	}

	moved, err := s.AddItem(ctx, userID, item.VariantID, item.Quantity, to)
	if err != nil {
		return nil, err
	}
	if err := s.carts.DeleteItem(ctx, c.ID, itemID); err != nil {
		return nil, errors.Wrap(err, "remove source item")
	}
	return moved, nil
}

// RemoveItem deletes a cart line owned by the user.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) error {
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "get cart")
	}
	return s.carts.DeleteItem(ctx, c.ID, itemID)
}
