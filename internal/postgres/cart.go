package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/cart"
)

const (
	getOrCreateCartSQL = `WITH ins AS (
			INSERT INTO carts (id, user_id) VALUES ($1, $2)
			ON CONFLICT (user_id) DO NOTHING
			RETURNING id, user_id, created_at
		)
		SELECT id, user_id, created_at FROM ins
		UNION ALL
		SELECT id, user_id, created_at FROM carts WHERE user_id = $2
		LIMIT 1`

	cartItemColumns = `ci.id, ci.cart_id, ci.variant_id, ci.item_type, ci.quantity,
		ci.created_at, ci.updated_at,
		p.name, v.sku, v.size, v.color, p.base_price + v.price_adjustment,
		v.stock_quantity, v.is_available`

	cartItemFromSQL = ` FROM cart_items ci
		JOIN product_variants v ON v.id = ci.variant_id
		JOIN products p ON p.id = v.product_id`

	listCartItemsSQL = `SELECT ` + cartItemColumns + cartItemFromSQL + `
		WHERE ci.cart_id = $1 ORDER BY ci.created_at`

	getCartItemSQL = `SELECT ` + cartItemColumns + cartItemFromSQL + `
		WHERE ci.cart_id = $1 AND ci.id = $2`

	findCartItemSQL = `SELECT ` + cartItemColumns + cartItemFromSQL + `
		WHERE ci.cart_id = $1 AND ci.variant_id = $2 AND ci.item_type = $3`

	upsertCartItemSQL = `INSERT INTO cart_items (id, cart_id, variant_id, item_type, quantity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cart_id, variant_id, item_type) DO UPDATE SET
			quantity = cart_items.quantity + EXCLUDED.quantity,
			updated_at = now()
		RETURNING id`

	setCartItemQuantitySQL = `UPDATE cart_items SET quantity = $3, updated_at = now()
		WHERE cart_id = $1 AND id = $2`

	deleteCartItemSQL = `DELETE FROM cart_items WHERE cart_id = $1 AND id = $2`

	clearActiveItemsSQL = `DELETE FROM cart_items WHERE cart_id = $1 AND item_type = 'cart'`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// GetOrCreate returns the user's cart, creating the row on first access.
// The insert-or-select runs as one statement so concurrent first requests
// converge on a single row.
func (r *CartRepository) GetOrCreate(ctx context.Context, userID string) (*cart.Cart, error) {
	var c cart.Cart
	err := r.pool.QueryRow(ctx, getOrCreateCartSQL, newID(), userID).
		Scan(&c.ID, &c.UserID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}
	return &c, nil
}

// ListItems returns every line in the cart with variant pricing joined in.
func (r *CartRepository) ListItems(ctx context.Context, cartID string) ([]cart.Item, error) {
	rows, err := r.pool.Query(ctx, listCartItemsSQL, cartID)
	if err != nil {
		return nil, fmt.Errorf("listing cart items: %w", err)
	}
	return pgx.CollectRows(rows, scanCartItem)
}

// GetItem returns a single cart line scoped to the cart.
func (r *CartRepository) GetItem(ctx context.Context, cartID, itemID string) (*cart.Item, error) {
	return r.collectOne(ctx, getCartItemSQL, cartID, itemID)
}

// FindItem returns the line for a (variant, type) pair if present.
func (r *CartRepository) FindItem(ctx context.Context, cartID, variantID string, t cart.ItemType) (*cart.Item, error) {
	return r.collectOne(ctx, findCartItemSQL, cartID, variantID, t)
}

// UpsertItem inserts the line or atomically increments the quantity of the
// existing (cart, variant, type) row, then returns the resulting row.
func (r *CartRepository) UpsertItem(ctx context.Context, item *cart.Item) (*cart.Item, error) {
	var id string
	err := r.pool.QueryRow(ctx, upsertCartItemSQL,
		item.ID, item.CartID, item.VariantID, item.Type, item.Quantity,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("upserting cart item: %w", err)
	}
	return r.GetItem(ctx, item.CartID, id)
}

// SetItemQuantity overwrites the quantity of a cart line.
func (r *CartRepository) SetItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error {
	tag, err := r.pool.Exec(ctx, setCartItemQuantitySQL, cartID, itemID, quantity)
	if err != nil {
		return fmt.Errorf("setting quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}

// DeleteItem removes a cart line.
func (r *CartRepository) DeleteItem(ctx context.Context, cartID, itemID string) error {
	tag, err := r.pool.Exec(ctx, deleteCartItemSQL, cartID, itemID)
	if err != nil {
		return fmt.Errorf("deleting cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}

// ClearActive removes all active (non-saved) lines from the cart.
func (r *CartRepository) ClearActive(ctx context.Context, cartID string) error {
	if _, err := r.pool.Exec(ctx, clearActiveItemsSQL, cartID); err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}
	return nil
}

func (r *CartRepository) collectOne(ctx context.Context, sql string, args ...any) (*cart.Item, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying cart item: %w", err)
	}
	item, err := pgx.CollectExactlyOneRow(rows, scanCartItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrItemNotFound
		}
		return nil, fmt.Errorf("querying cart item: %w", err)
	}
	return &item, nil
}

func scanCartItem(row pgx.CollectableRow) (cart.Item, error) {
	var i cart.Item
	err := row.Scan(
		&i.ID, &i.CartID, &i.VariantID, &i.Type, &i.Quantity,
		&i.CreatedAt, &i.UpdatedAt,
		&i.ProductName, &i.SKU, &i.Size, &i.Color, &i.UnitPrice,
		&i.InStock, &i.IsAvailable,
	)
	return i, err
}
