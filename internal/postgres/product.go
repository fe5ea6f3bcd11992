package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/product"
)

const (
	variantColumns = `v.id, v.product_id, v.sku, v.size, v.color, v.price_adjustment,
		v.stock_quantity, v.is_available, p.name, p.base_price`

	getVariantSQL = `SELECT ` + variantColumns + `
		FROM product_variants v JOIN products p ON p.id = v.product_id
		WHERE v.id = $1`

	getVariantsSQL = `SELECT ` + variantColumns + `
		FROM product_variants v JOIN products p ON p.id = v.product_id
		WHERE v.id = ANY($1)`

	searchProductsSQL = `SELECT id, name, slug, description, category, base_price, created_at
		FROM products
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR category = $2)
		ORDER BY name
		LIMIT $3 OFFSET $4`

	countProductsSQL = `SELECT count(*) FROM products
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR category = $2)`

	suggestProductsSQL = `SELECT name FROM products
		WHERE name ILIKE $1 || '%' ORDER BY name LIMIT $2`

	suggestCategoriesSQL = `SELECT DISTINCT category FROM products
		WHERE category <> '' AND category ILIKE $1 || '%' ORDER BY category LIMIT $2`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetVariant returns a single variant with its parent product denormalized.
func (r *ProductRepository) GetVariant(ctx context.Context, variantID string) (*product.Variant, error) {
	rows, err := r.pool.Query(ctx, getVariantSQL, variantID)
	if err != nil {
		return nil, fmt.Errorf("getting variant %q: %w", variantID, err)
	}

	v, err := pgx.CollectExactlyOneRow(rows, scanVariant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting variant %q: %w", variantID, err)
	}
	return &v, nil
}

// GetVariants returns variants matching any of the given IDs.
func (r *ProductRepository) GetVariants(ctx context.Context, variantIDs []string) ([]product.Variant, error) {
	rows, err := r.pool.Query(ctx, getVariantsSQL, variantIDs)
	if err != nil {
		return nil, fmt.Errorf("getting variants: %w", err)
	}
	return pgx.CollectRows(rows, scanVariant)
}

// Search returns matching products and the total match count for pagination.
func (r *ProductRepository) Search(ctx context.Context, q product.SearchQuery) ([]product.Product, int, error) {
	if q.Limit <= 0 {
		q.Limit = 20
	}

	var total int
	if err := r.pool.QueryRow(ctx, countProductsSQL, q.Term, q.Category).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting products: %w", err)
	}

	rows, err := r.pool.Query(ctx, searchProductsSQL, q.Term, q.Category, q.Limit, q.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("searching products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// SuggestProducts returns product names starting with the given prefix.
func (r *ProductRepository) SuggestProducts(ctx context.Context, prefix string, limit int) ([]string, error) {
	return r.suggest(ctx, suggestProductsSQL, prefix, limit)
}

// SuggestCategories returns category names starting with the given prefix.
func (r *ProductRepository) SuggestCategories(ctx context.Context, prefix string, limit int) ([]string, error) {
	return r.suggest(ctx, suggestCategoriesSQL, prefix, limit)
}

func (r *ProductRepository) suggest(ctx context.Context, sql, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, sql, prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("suggesting: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var s string
		err := row.Scan(&s)
		return s, err
	})
}

func scanVariant(row pgx.CollectableRow) (product.Variant, error) {
	var v product.Variant
	err := row.Scan(
		&v.ID, &v.ProductID, &v.SKU, &v.Size, &v.Color, &v.PriceAdjustment,
		&v.StockQuantity, &v.IsAvailable, &v.ProductName, &v.BasePrice,
	)
	return v, err
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Category, &p.BasePrice, &p.CreatedAt)
	return p, err
}
