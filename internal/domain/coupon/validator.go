package coupon

import (
	"context"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

// Validator validates a coupon code against a set of cart items and returns
// the computed discount.
type Validator interface {
	Validate(ctx context.Context, code string, items []Item) (*Discount, error)
}

// RepoValidator implements Validator by looking up coupon rules from a
// Repository, checking temporal validity and usage limits, and applying the
// rule via Apply.
//
// An optional bloom filter pre-screens codes before any database round-trip.
// Bulk promo campaigns load tens of millions of codes; the filter rejects
// garbage input without touching the database. False positives fall through
// to the repository lookup, so the filter never admits an invalid code.
type RepoValidator struct {
	repo   Repository
	filter *bloom.BloomFilter
	now    func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// SetFilter installs a bloom filter of known-good codes. A nil filter
// disables pre-screening.
func (v *RepoValidator) SetFilter(f *bloom.BloomFilter) {
	v.filter = f
}

// Validate resolves the rule for code, checks its constraints against the
// current time and the cart items, and on success increments the usage
// counter.
func (v *RepoValidator) Validate(ctx context.Context, code string, items []Item) (*Discount, error) {
	if v.filter != nil && !v.filter.TestString(code) {
		return nil, ErrInvalidCoupon
	}

	rule, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, ErrInvalidCoupon
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	now := v.now()
	if rule.ValidFrom != nil && now.Before(*rule.ValidFrom) {
		return nil, ErrCouponExpired
	}
	if rule.ValidUntil != nil && now.After(*rule.ValidUntil) {
		return nil, ErrCouponExpired
	}
	if rule.MaxUses > 0 && rule.Uses >= rule.MaxUses {
		return nil, ErrCouponUsageLimitReached
	}

	d, err := Apply(rule, items)
	if err != nil {
		return nil, err
	}

	if err := v.repo.IncrementUses(ctx, code); err != nil {
		return nil, errors.Wrap(err, "increment coupon uses")
	}

	return &d, nil
}

// NewCodeFilter builds a bloom filter sized for the given expected code count
// and adds every provided code to it.
func NewCodeFilter(expected uint, codes []string) *bloom.BloomFilter {
	if expected == 0 {
		expected = 1
	}
	f := bloom.NewWithEstimates(expected, 0.001)
	for _, c := range codes {
		f.AddString(c)
	}
	return f
}
