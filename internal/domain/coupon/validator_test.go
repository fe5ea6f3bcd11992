package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	rules      map[string]*Rule
	findCalls  int
	usageCalls []string
}

func (m *mockRepo) FindByCode(_ context.Context, code string) (*Rule, error) {
	m.findCalls++
	r, ok := m.rules[code]
	if !ok {
		return nil, ErrInvalidCoupon
	}
	cp := *r
	return &cp, nil
}

func (m *mockRepo) IncrementUses(_ context.Context, code string) error {
	m.usageCalls = append(m.usageCalls, code)
	return nil
}

func percentRule(code string, pct int64) *Rule {
	return &Rule{
		Code:         code,
		DiscountType: DiscountPercentage,
		Value:        decimal.NewFromInt(pct),
	}
}

func cartItems() []Item {
	return []Item{{VariantID: "v1", Price: decimal.RequireFromString("40.00"), Quantity: 1}}
}

func TestValidate_OK(t *testing.T) {
	repo := &mockRepo{rules: map[string]*Rule{"SAVE10": percentRule("SAVE10", 10)}}
	v := NewRepoValidator(repo)

	d, err := v.Validate(context.Background(), "SAVE10", cartItems())
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("4.00").Equal(d.Amount))
	assert.Equal(t, []string{"SAVE10"}, repo.usageCalls, "usage counted on success")
}

func TestValidate_UnknownCode(t *testing.T) {
	repo := &mockRepo{rules: map[string]*Rule{}}
	v := NewRepoValidator(repo)

	_, err := v.Validate(context.Background(), "BOGUS", cartItems())
	require.ErrorIs(t, err, ErrInvalidCoupon)
	assert.Empty(t, repo.usageCalls)
}

func TestValidate_FilterShortCircuits(t *testing.T) {
	repo := &mockRepo{rules: map[string]*Rule{"SAVE10": percentRule("SAVE10", 10)}}
	v := NewRepoValidator(repo)
	v.SetFilter(NewCodeFilter(10, []string{"SAVE10"}))

	_, err := v.Validate(context.Background(), "NOTINFILTER", cartItems())
	require.ErrorIs(t, err, ErrInvalidCoupon)
	assert.Zero(t, repo.findCalls, "filtered codes never reach the repository")

	_, err = v.Validate(context.Background(), "SAVE10", cartItems())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.findCalls)
}

func TestValidate_ValidityWindow(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	notYet := percentRule("NOTYET", 10)
	notYet.ValidFrom = &future

	over := percentRule("OVER", 10)
	over.ValidUntil = &past

	active := percentRule("ACTIVE", 10)
	active.ValidFrom = &past
	active.ValidUntil = &future

	repo := &mockRepo{rules: map[string]*Rule{"NOTYET": notYet, "OVER": over, "ACTIVE": active}}
	v := NewRepoValidator(repo)
	v.now = func() time.Time { return now }

	_, err := v.Validate(context.Background(), "NOTYET", cartItems())
	require.ErrorIs(t, err, ErrCouponExpired)

	_, err = v.Validate(context.Background(), "OVER", cartItems())
	require.ErrorIs(t, err, ErrCouponExpired)

	_, err = v.Validate(context.Background(), "ACTIVE", cartItems())
	require.NoError(t, err)
}

func TestValidate_UsageLimit(t *testing.T) {
	exhausted := percentRule("LIMITED", 10)
	exhausted.MaxUses = 5
	exhausted.Uses = 5

	repo := &mockRepo{rules: map[string]*Rule{"LIMITED": exhausted}}
	v := NewRepoValidator(repo)

	_, err := v.Validate(context.Background(), "LIMITED", cartItems())
	require.ErrorIs(t, err, ErrCouponUsageLimitReached)
	assert.Empty(t, repo.usageCalls)
}

func TestValidate_MinSubtotalPropagates(t *testing.T) {
	rule := percentRule("BIG", 10)
	rule.MinSubtotal = decimal.NewFromInt(100)

	repo := &mockRepo{rules: map[string]*Rule{"BIG": rule}}
	v := NewRepoValidator(repo)

	_, err := v.Validate(context.Background(), "BIG", cartItems())
	require.ErrorIs(t, err, ErrMinSubtotalNotMet)
	assert.Empty(t, repo.usageCalls, "no usage counted on failed application")
}

func TestNewCodeFilter_NoFalseNegatives(t *testing.T) {
	codes := []string{"ALPHA111", "BRAVO222", "CHARLIE3"}
	f := NewCodeFilter(uint(len(codes)), codes)

	for _, c := range codes {
		assert.True(t, f.TestString(c), "code %s must be present", c)
	}
}
