package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/address"
)

const (
	addressColumns = `id, user_id, address_type, is_default, recipient_name, phone,
		line1, line2, city, state, postal_code, country, created_at, updated_at`

	listAddressesSQL = `SELECT ` + addressColumns + ` FROM addresses
		WHERE user_id = $1 ORDER BY created_at`

	getAddressSQL = `SELECT ` + addressColumns + ` FROM addresses
		WHERE user_id = $1 AND id = $2`

	// Unsets every default whose type scope overlaps the given one.
	// 'both' overlaps everything; a specific type overlaps itself and 'both'.
	unsetDefaultsSQL = `UPDATE addresses SET is_default = false, updated_at = now()
		WHERE user_id = $1 AND id <> $2 AND is_default
		  AND (address_type = $3 OR address_type = 'both' OR $3 = 'both')`

	saveAddressSQL = `INSERT INTO addresses (` + addressColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			address_type = EXCLUDED.address_type,
			is_default = EXCLUDED.is_default,
			recipient_name = EXCLUDED.recipient_name,
			phone = EXCLUDED.phone,
			line1 = EXCLUDED.line1,
			line2 = EXCLUDED.line2,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			postal_code = EXCLUDED.postal_code,
			country = EXCLUDED.country,
			updated_at = EXCLUDED.updated_at
		WHERE addresses.user_id = EXCLUDED.user_id`

	deleteAddressSQL = `DELETE FROM addresses WHERE user_id = $1 AND id = $2
		RETURNING is_default, address_type`

	promoteOldestSQL = `UPDATE addresses SET is_default = true, updated_at = now()
		WHERE id = (
			SELECT id FROM addresses
			WHERE user_id = $1
			  AND (address_type = $2 OR address_type = 'both' OR $2 = 'both')
			ORDER BY created_at
			LIMIT 1
		)`
)

var _ address.Repository = (*AddressRepository)(nil)

// AddressRepository implements address.Repository backed by PostgreSQL.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// ListByUser returns all addresses owned by the user, oldest first.
func (r *AddressRepository) ListByUser(ctx context.Context, userID string) ([]address.Address, error) {
	rows, err := r.pool.Query(ctx, listAddressesSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing addresses: %w", err)
	}
	return pgx.CollectRows(rows, scanAddress)
}

// GetByID returns an address scoped to its owner.
func (r *AddressRepository) GetByID(ctx context.Context, userID, id string) (*address.Address, error) {
	rows, err := r.pool.Query(ctx, getAddressSQL, userID, id)
	if err != nil {
		return nil, fmt.Errorf("getting address %q: %w", id, err)
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanAddress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, address.ErrNotFound
		}
		return nil, fmt.Errorf("getting address %q: %w", id, err)
	}
	return &a, nil
}

// Save upserts the address. Setting is_default unsets every other default in
// the overlapping type scope first; both statements run in one transaction so
// concurrent writers cannot observe two defaults in a scope.
func (r *AddressRepository) Save(ctx context.Context, a *address.Address) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if a.IsDefault {
		if _, err := tx.Exec(ctx, unsetDefaultsSQL, a.UserID, a.ID, a.Type); err != nil {
			return fmt.Errorf("unsetting defaults: %w", err)
		}
	}

	_, err = tx.Exec(ctx, saveAddressSQL,
		a.ID, a.UserID, a.Type, a.IsDefault, a.RecipientName, a.Phone,
		a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving address %q: %w", a.ID, err)
	}

	return tx.Commit(ctx)
}

// Delete removes the address and, when it was the scope default, promotes the
// oldest remaining address in that scope — all in one transaction.
func (r *AddressRepository) Delete(ctx context.Context, userID, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		wasDefault bool
		addrType   address.Type
	)
	err = tx.QueryRow(ctx, deleteAddressSQL, userID, id).Scan(&wasDefault, &addrType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return address.ErrNotFound
		}
		return fmt.Errorf("deleting address %q: %w", id, err)
	}

	if wasDefault {
		if _, err := tx.Exec(ctx, promoteOldestSQL, userID, addrType); err != nil {
			return fmt.Errorf("promoting default: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func scanAddress(row pgx.CollectableRow) (address.Address, error) {
	var a address.Address
	err := row.Scan(
		&a.ID, &a.UserID, &a.Type, &a.IsDefault, &a.RecipientName, &a.Phone,
		&a.Line1, &a.Line2, &a.City, &a.State, &a.PostalCode, &a.Country,
		&a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}
