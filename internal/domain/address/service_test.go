package address

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	byUser map[string][]Address
	saved  *Address
}

func (m *mockRepo) ListByUser(_ context.Context, userID string) ([]Address, error) {
	return m.byUser[userID], nil
}

func (m *mockRepo) GetByID(_ context.Context, userID, id string) (*Address, error) {
	for _, a := range m.byUser[userID] {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Save(_ context.Context, a *Address) error {
	m.saved = a
	return nil
}

func (m *mockRepo) Delete(_ context.Context, userID, id string) error {
	for _, a := range m.byUser[userID] {
		if a.ID == id {
			return nil
		}
	}
	return ErrNotFound
}

func validAddress(t Type) *Address {
	return &Address{
		UserID:        "user-1",
		Type:          t,
		RecipientName: "Jo Bloggs",
		Line1:         "1 High Street",
		City:          "Springfield",
		PostalCode:    "12345",
		Country:       "US",
	}
}

func TestTypeOverlaps(t *testing.T) {
	assert.True(t, TypeShipping.Overlaps(TypeShipping))
	assert.True(t, TypeBoth.Overlaps(TypeShipping))
	assert.True(t, TypeBilling.Overlaps(TypeBoth))
	assert.False(t, TypeShipping.Overlaps(TypeBilling))
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(&mockRepo{byUser: map[string][]Address{}})

	a := &Address{UserID: "user-1", Type: Type("warehouse")}
	_, err := svc.Create(context.Background(), a)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	fields := make(map[string]string, len(vErr.Fields))
	for _, f := range vErr.Fields {
		fields[f.Field] = f.Message
	}
	assert.Contains(t, fields, "address_type")
	assert.Contains(t, fields, "recipient_name")
	assert.Contains(t, fields, "line1")
	assert.Contains(t, fields, "city")
	assert.Contains(t, fields, "postal_code")
	assert.Contains(t, fields, "country")
}

func TestCreate_FirstInScopeBecomesDefault(t *testing.T) {
	repo := &mockRepo{byUser: map[string][]Address{}}
	svc := NewService(repo)

	a, err := svc.Create(context.Background(), validAddress(TypeShipping))
	require.NoError(t, err)

	assert.True(t, a.IsDefault, "first address in scope is forced default")
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, repo.saved, a)
}

func TestCreate_SecondInScopeKeepsRequestedFlag(t *testing.T) {
	repo := &mockRepo{byUser: map[string][]Address{
		"user-1": {{ID: "a1", UserID: "user-1", Type: TypeShipping, IsDefault: true}},
	}}
	svc := NewService(repo)

	a, err := svc.Create(context.Background(), validAddress(TypeShipping))
	require.NoError(t, err)
	assert.False(t, a.IsDefault)
}

func TestCreate_BothScopeSeesExistingShipping(t *testing.T) {
	repo := &mockRepo{byUser: map[string][]Address{
		"user-1": {{ID: "a1", UserID: "user-1", Type: TypeShipping, IsDefault: true}},
	}}
	svc := NewService(repo)

	a, err := svc.Create(context.Background(), validAddress(TypeBoth))
	require.NoError(t, err)
	assert.False(t, a.IsDefault, "a both-scope address overlaps the existing shipping one")
}

func TestCreate_BillingScopeIndependentOfShipping(t *testing.T) {
	repo := &mockRepo{byUser: map[string][]Address{
		"user-1": {{ID: "a1", UserID: "user-1", Type: TypeShipping, IsDefault: true}},
	}}
	svc := NewService(repo)

	a, err := svc.Create(context.Background(), validAddress(TypeBilling))
	require.NoError(t, err)
	assert.True(t, a.IsDefault, "first billing address defaults even with shipping present")
}

func TestUpdate_PreservesCreatedAt(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	repo := &mockRepo{byUser: map[string][]Address{
		"user-1": {{ID: "a1", UserID: "user-1", Type: TypeShipping, CreatedAt: created}},
	}}
	svc := NewService(repo)

	a := validAddress(TypeShipping)
	a.ID = "a1"
	updated, err := svc.Update(context.Background(), a)
	require.NoError(t, err)

	assert.Equal(t, created, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(created))
}

func TestUpdate_NotFound(t *testing.T) {
	svc := NewService(&mockRepo{byUser: map[string][]Address{}})

	a := validAddress(TypeShipping)
	a.ID = "missing"
	_, err := svc.Update(context.Background(), a)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	repo := &mockRepo{byUser: map[string][]Address{
		"user-1": {{ID: "a1", UserID: "user-1", Type: TypeShipping}},
	}}
	svc := NewService(repo)

	require.NoError(t, svc.Delete(context.Background(), "user-1", "a1"))
	require.ErrorIs(t, svc.Delete(context.Background(), "user-2", "a1"), ErrNotFound)
}
