package wishlist

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/storefront-api/internal/domain/product"
)

// Service implements wishlist operations. Unlike the cart there are no
// quantities and no stock checks: wishing for an out-of-stock variant is
// allowed, only nonexistent variants are rejected.
type Service struct {
	wishlists Repository
	products  product.Repository
}

// NewService creates a wishlist Service.
func NewService(wishlists Repository, products product.Repository) *Service {
	return &Service{wishlists: wishlists, products: products}
}

// List returns the user's wishlist and its items.
func (s *Service) List(ctx context.Context, userID string) (*Wishlist, []Item, error) {
	w, err := s.wishlists.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "get wishlist")
	}
	items, err := s.wishlists.ListItems(ctx, w.ID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "list wishlist items")
	}
	return w, items, nil
}

// AddItem puts a variant on the user's wishlist. Adding a variant that is
// already present is a no-op returning the existing item.
func (s *Service) AddItem(ctx context.Context, userID, variantID string) (*Item, error) {
	if _, err := s.products.GetVariant(ctx, variantID); err != nil {
		return nil, err
	}

	w, err := s.wishlists.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get wishlist")
	}

	item, err := s.wishlists.AddItem(ctx, &Item{
		ID:         uuid.New().String(),
		WishlistID: w.ID,
		VariantID:  variantID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "add wishlist item")
	}
	return item, nil
}

// RemoveItem deletes a wishlist entry owned by the user.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) error {
	w, err := s.wishlists.GetOrCreate(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "get wishlist")
	}
	return s.wishlists.DeleteItem(ctx, w.ID, itemID)
}
