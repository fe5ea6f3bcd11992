package postgres

import (
	"context"
	"fmt"

	"github.com/xenking/storefront-api/internal/domain/product"
)

const (
	upsertProductSQL = `INSERT INTO products (id, name, slug, description, category, base_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			base_price = EXCLUDED.base_price`

	upsertVariantSQL = `INSERT INTO product_variants
			(id, product_id, sku, size, color, price_adjustment, stock_quantity, is_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			sku = EXCLUDED.sku,
			size = EXCLUDED.size,
			color = EXCLUDED.color,
			price_adjustment = EXCLUDED.price_adjustment,
			stock_quantity = EXCLUDED.stock_quantity,
			is_available = EXCLUDED.is_available`
)

// UpsertProduct inserts or replaces a catalog product. Used by the seed tool.
func (r *ProductRepository) UpsertProduct(ctx context.Context, p *product.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		p.ID, p.Name, p.Slug, p.Description, p.Category, p.BasePrice,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

// UpsertVariant inserts or replaces a product variant. Used by the seed tool.
func (r *ProductRepository) UpsertVariant(ctx context.Context, v *product.Variant) error {
	_, err := r.pool.Exec(ctx, upsertVariantSQL,
		v.ID, v.ProductID, v.SKU, v.Size, v.Color, v.PriceAdjustment,
		v.StockQuantity, v.IsAvailable,
	)
	if err != nil {
		return fmt.Errorf("upserting variant %q: %w", v.ID, err)
	}
	return nil
}
