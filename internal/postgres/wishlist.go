package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/wishlist"
)

const (
	getOrCreateWishlistSQL = `WITH ins AS (
			INSERT INTO wishlists (id, user_id) VALUES ($1, $2)
			ON CONFLICT (user_id) DO NOTHING
			RETURNING id, user_id, created_at
		)
		SELECT id, user_id, created_at FROM ins
		UNION ALL
		SELECT id, user_id, created_at FROM wishlists WHERE user_id = $2
		LIMIT 1`

	wishlistItemColumns = `wi.id, wi.wishlist_id, wi.variant_id, wi.created_at,
		p.name, v.sku, v.size, v.color, p.base_price + v.price_adjustment, v.is_available`

	wishlistItemFromSQL = ` FROM wishlist_items wi
		JOIN product_variants v ON v.id = wi.variant_id
		JOIN products p ON p.id = v.product_id`

	listWishlistItemsSQL = `SELECT ` + wishlistItemColumns + wishlistItemFromSQL + `
		WHERE wi.wishlist_id = $1 ORDER BY wi.created_at`

	addWishlistItemSQL = `INSERT INTO wishlist_items (id, wishlist_id, variant_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (wishlist_id, variant_id) DO NOTHING`

	findWishlistItemSQL = `SELECT ` + wishlistItemColumns + wishlistItemFromSQL + `
		WHERE wi.wishlist_id = $1 AND wi.variant_id = $2`

	deleteWishlistItemSQL = `DELETE FROM wishlist_items WHERE wishlist_id = $1 AND id = $2`
)

var _ wishlist.Repository = (*WishlistRepository)(nil)

// WishlistRepository implements wishlist.Repository backed by PostgreSQL.
type WishlistRepository struct {
	pool *pgxpool.Pool
}

// NewWishlistRepository returns a WishlistRepository that uses the given pool.
func NewWishlistRepository(pool *pgxpool.Pool) *WishlistRepository {
	return &WishlistRepository{pool: pool}
}

// GetOrCreate returns the user's wishlist, creating the row on first access.
func (r *WishlistRepository) GetOrCreate(ctx context.Context, userID string) (*wishlist.Wishlist, error) {
	var w wishlist.Wishlist
	err := r.pool.QueryRow(ctx, getOrCreateWishlistSQL, newID(), userID).
		Scan(&w.ID, &w.UserID, &w.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get or create wishlist: %w", err)
	}
	return &w, nil
}

// ListItems returns every wishlist entry with variant details joined in.
func (r *WishlistRepository) ListItems(ctx context.Context, wishlistID string) ([]wishlist.Item, error) {
	rows, err := r.pool.Query(ctx, listWishlistItemsSQL, wishlistID)
	if err != nil {
		return nil, fmt.Errorf("listing wishlist items: %w", err)
	}
	return pgx.CollectRows(rows, scanWishlistItem)
}

// AddItem inserts the entry unless the variant is already wished for, then
// returns the row either way — duplicate adds are a no-op.
func (r *WishlistRepository) AddItem(ctx context.Context, item *wishlist.Item) (*wishlist.Item, error) {
	if _, err := r.pool.Exec(ctx, addWishlistItemSQL, item.ID, item.WishlistID, item.VariantID); err != nil {
		return nil, fmt.Errorf("adding wishlist item: %w", err)
	}

	rows, err := r.pool.Query(ctx, findWishlistItemSQL, item.WishlistID, item.VariantID)
	if err != nil {
		return nil, fmt.Errorf("loading wishlist item: %w", err)
	}
	out, err := pgx.CollectExactlyOneRow(rows, scanWishlistItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wishlist.ErrItemNotFound
		}
		return nil, fmt.Errorf("loading wishlist item: %w", err)
	}
	return &out, nil
}

// DeleteItem removes a wishlist entry.
func (r *WishlistRepository) DeleteItem(ctx context.Context, wishlistID, itemID string) error {
	tag, err := r.pool.Exec(ctx, deleteWishlistItemSQL, wishlistID, itemID)
	if err != nil {
		return fmt.Errorf("deleting wishlist item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return wishlist.ErrItemNotFound
	}
	return nil
}

func scanWishlistItem(row pgx.CollectableRow) (wishlist.Item, error) {
	var i wishlist.Item
	err := row.Scan(
		&i.ID, &i.WishlistID, &i.VariantID, &i.CreatedAt,
		&i.ProductName, &i.SKU, &i.Size, &i.Color, &i.UnitPrice, &i.IsAvailable,
	)
	return i, err
}
