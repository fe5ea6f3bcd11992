package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/coupon"
)

const (
	findCouponSQL = `SELECT code, discount_type, value, min_subtotal, description,
			valid_from, valid_until, max_uses, uses
		FROM coupons WHERE code = $1`

	incrementCouponUsesSQL = `UPDATE coupons SET uses = uses + 1 WHERE code = $1`

	upsertCouponSQL = `INSERT INTO coupons
			(code, discount_type, value, min_subtotal, description, valid_from, valid_until, max_uses)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (code) DO UPDATE SET
			discount_type = EXCLUDED.discount_type,
			value = EXCLUDED.value,
			min_subtotal = EXCLUDED.min_subtotal,
			description = EXCLUDED.description,
			valid_from = EXCLUDED.valid_from,
			valid_until = EXCLUDED.valid_until,
			max_uses = EXCLUDED.max_uses`

	listCouponCodesSQL = `SELECT code FROM coupons`

	countCouponsSQL = `SELECT count(*) FROM coupons`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode returns the rule for a coupon code, or ErrInvalidCoupon when no
// such code exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	var rule coupon.Rule
	err := r.pool.QueryRow(ctx, findCouponSQL, code).Scan(
		&rule.Code, &rule.DiscountType, &rule.Value, &rule.MinSubtotal,
		&rule.Description, &rule.ValidFrom, &rule.ValidUntil, &rule.MaxUses, &rule.Uses,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrInvalidCoupon
		}
		return nil, fmt.Errorf("finding coupon %q: %w", code, err)
	}
	return &rule, nil
}

// IncrementUses bumps the usage counter for a code.
func (r *CouponRepository) IncrementUses(ctx context.Context, code string) error {
	if _, err := r.pool.Exec(ctx, incrementCouponUsesSQL, code); err != nil {
		return fmt.Errorf("incrementing coupon uses: %w", err)
	}
	return nil
}

// UpsertRule inserts or replaces a coupon rule. Usage counters survive
// re-ingestion.
func (r *CouponRepository) UpsertRule(ctx context.Context, rule *coupon.Rule) error {
	_, err := r.pool.Exec(ctx, upsertCouponSQL,
		rule.Code, rule.DiscountType, rule.Value, rule.MinSubtotal,
		rule.Description, rule.ValidFrom, rule.ValidUntil, rule.MaxUses,
	)
	if err != nil {
		return fmt.Errorf("upserting coupon %q: %w", rule.Code, err)
	}
	return nil
}

// Codes streams every known coupon code into fn, and returns the total count
// first so callers can size a bloom filter before iterating.
func (r *CouponRepository) Codes(ctx context.Context, fn func(code string)) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, countCouponsSQL).Scan(&total); err != nil {
		return 0, fmt.Errorf("counting coupons: %w", err)
	}

	rows, err := r.pool.Query(ctx, listCouponCodesSQL)
	if err != nil {
		return 0, fmt.Errorf("listing coupon codes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return 0, err
		}
		fn(code)
	}
	return total, rows.Err()
}
