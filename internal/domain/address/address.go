package address

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Type scopes which checkout role an address can play. TypeBoth bridges the
// shipping and billing scopes: a default "both" address competes with
// defaults of either specific type.
type Type string

const (
	TypeShipping Type = "shipping"
	TypeBilling  Type = "billing"
	TypeBoth     Type = "both"
)

// Valid reports whether t is one of the known address types.
func (t Type) Valid() bool {
	switch t {
	case TypeShipping, TypeBilling, TypeBoth:
		return true
	}
	return false
}

// Overlaps reports whether two address types compete for the same default
// slot.
func (t Type) Overlaps(o Type) bool {
	return t == o || t == TypeBoth || o == TypeBoth
}

// ErrNotFound is returned when an address does not exist or belongs to a
// different user. Ownership failures are deliberately indistinguishable from
// missing rows so the API does not leak other users' address ids.
var ErrNotFound = errors.New("address not found")

// Address is a user-owned shipping or billing address.
type Address struct {
	ID            string
	UserID        string
	Type          Type
	IsDefault     bool
	RecipientName string
	Phone         string
	Line1         string
	Line2         string
	City          string
	State         string
	PostalCode    string
	Country       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Repository defines persistence operations for addresses.
//
// Save must atomically unset every other default in the address's overlapping
// type scope before persisting a default address: the one-default-per-scope
// invariant is enforced in a single transaction, never as separate calls.
// Delete must, in the same transaction, promote the oldest remaining address
// in the deleted address's scope when the deleted one was the default.
type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]Address, error)
	GetByID(ctx context.Context, userID, id string) (*Address, error)
	Save(ctx context.Context, a *Address) error
	Delete(ctx context.Context, userID, id string) error
}
