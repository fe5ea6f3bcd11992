package address

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates per-field input problems.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid address"
	}
	return "invalid address: " + e.Fields[0].Field + " " + e.Fields[0].Message
}

// Service implements address management on top of a Repository.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates an address Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List returns all addresses owned by the user.
func (s *Service) List(ctx context.Context, userID string) ([]Address, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Get returns a single address owned by the user.
func (s *Service) Get(ctx context.Context, userID, id string) (*Address, error) {
	return s.repo.GetByID(ctx, userID, id)
}

// Create validates and persists a new address for the user. The first address
// a user creates becomes the default for its scope regardless of the request.
func (s *Service) Create(ctx context.Context, a *Address) (*Address, error) {
	if err := validate(a); err != nil {
		return nil, err
	}

	existing, err := s.repo.ListByUser(ctx, a.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "list addresses")
	}
	if !hasAddressInScope(existing, a.Type) {
		a.IsDefault = true
	}

	a.ID = uuid.New().String()
	a.CreatedAt = s.now()
	a.UpdatedAt = a.CreatedAt

	if err := s.repo.Save(ctx, a); err != nil {
		return nil, errors.Wrap(err, "save address")
	}
	return a, nil
}

// Update applies changes to an existing address owned by the user.
func (s *Service) Update(ctx context.Context, a *Address) (*Address, error) {
	if err := validate(a); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, a.UserID, a.ID)
	if err != nil {
		return nil, err
	}

	a.CreatedAt = current.CreatedAt
	a.UpdatedAt = s.now()

	if err := s.repo.Save(ctx, a); err != nil {
		return nil, errors.Wrap(err, "save address")
	}
	return a, nil
}

// Delete removes an address owned by the user. Default promotion for the
// vacated scope happens inside the repository transaction.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.repo.Delete(ctx, userID, id)
}

func validate(a *Address) error {
	var fields []FieldError
	add := func(field, msg string) {
		fields = append(fields, FieldError{Field: field, Message: msg})
	}

	if !a.Type.Valid() {
		add("address_type", "must be one of shipping, billing, both")
	}
	if a.RecipientName == "" {
		add("recipient_name", "is required")
	}
	if a.Line1 == "" {
		add("line1", "is required")
	}
	if a.City == "" {
		add("city", "is required")
	}
	if a.PostalCode == "" {
		add("postal_code", "is required")
	}
	if a.Country == "" {
		add("country", "is required")
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func hasAddressInScope(addrs []Address, t Type) bool {
	for i := range addrs {
		if addrs[i].Type.Overlaps(t) {
			return true
		}
	}
	return false
}
