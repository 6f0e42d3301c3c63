package user

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/rs/zerolog"
)

const minFieldLen = 3

type Store interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	UpdateUserAddress(ctx context.Context, id string, addr domain.ShippingAddress) error
	UpdateUserPaymentMethod(ctx context.Context, id, method string) error
	ListUsers(ctx context.Context, query string, limit, offset int) ([]*domain.User, int, error)
	UpdateUser(ctx context.Context, id, name, role string) error
	UpdateUserName(ctx context.Context, id, name string) error
	DeleteUser(ctx context.Context, id string) error
}

type Service struct {
	store    Store
	pageSize int
	log      zerolog.Logger
}

func NewService(store Store, pageSize int, log zerolog.Logger) *Service {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Service{
		store:    store,
		pageSize: pageSize,
		log:      log.With().Str("component", "user").Logger(),
	}
}

func (s *Service) Me(ctx context.Context, id domain.Identity) (*domain.User, error) {
	if !id.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	u, err := s.store.GetUserByID(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// UpdateAddress stores the shipping address used by the next order.
func (s *Service) UpdateAddress(ctx context.Context, id domain.Identity, addr domain.ShippingAddress) (domain.Result, error) {
	if !id.Authenticated() {
		return domain.Result{}, domain.ErrUnauthenticated
	}
	if err := ValidateAddress(addr); err != nil {
		return domain.Result{}, err
	}
	if err := s.store.UpdateUserAddress(ctx, id.UserID, addr); err != nil {
		return domain.Result{}, fmt.Errorf("update address: %w", err)
	}
	return domain.OK("User address updated successfully"), nil
}

func (s *Service) UpdatePaymentMethod(ctx context.Context, id domain.Identity, method string) (domain.Result, error) {
	if !id.Authenticated() {
		return domain.Result{}, domain.ErrUnauthenticated
	}
	if !slices.Contains(domain.PaymentMethods, method) {
		return domain.Result{}, domain.ValidationError("type", "must be one of "+strings.Join(domain.PaymentMethods, ", "))
	}
	if err := s.store.UpdateUserPaymentMethod(ctx, id.UserID, method); err != nil {
		return domain.Result{}, fmt.Errorf("update payment method: %w", err)
	}
	return domain.OK("User updated successfully"), nil
}

// UpdateProfile renames the signed-in user. Email and role are not editable here.
func (s *Service) UpdateProfile(ctx context.Context, id domain.Identity, name string) (domain.Result, error) {
	if !id.Authenticated() {
		return domain.Result{}, domain.ErrUnauthenticated
	}
	name = strings.TrimSpace(name)
	if len(name) < minFieldLen {
		return domain.Result{}, domain.ValidationError("name", "must be at least 3 characters")
	}
	if err := s.store.UpdateUserName(ctx, id.UserID, name); err != nil {
		return domain.Result{}, fmt.Errorf("update profile: %w", err)
	}
	return domain.OK("User has been updated successfully"), nil
}

// List pages through users whose name contains query. An empty query or
// "all" matches everyone.
func (s *Service) List(ctx context.Context, query string, page int) (domain.Page[*domain.User], error) {
	if query == "all" {
		query = ""
	}
	if page < 1 {
		page = 1
	}
	users, count, err := s.store.ListUsers(ctx, query, s.pageSize, (page-1)*s.pageSize)
	if err != nil {
		return domain.Page[*domain.User]{}, fmt.Errorf("list users: %w", err)
	}
	return domain.Page[*domain.User]{Data: users, TotalPages: domain.TotalPages(count, s.pageSize)}, nil
}

func (s *Service) Update(ctx context.Context, userID, name, role string) (domain.Result, error) {
	if len(strings.TrimSpace(name)) < minFieldLen {
		return domain.Result{}, domain.ValidationError("name", "must be at least 3 characters")
	}
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return domain.Result{}, domain.ValidationError("role", "must be user or admin")
	}
	if err := s.store.UpdateUser(ctx, userID, name, role); err != nil {
		return domain.Result{}, fmt.Errorf("update user: %w", err)
	}
	s.log.Info().Str("user_id", userID).Str("role", role).Msg("user updated")
	return domain.OK("User updated successfully"), nil
}

func (s *Service) Delete(ctx context.Context, userID string) (domain.Result, error) {
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return domain.Result{}, fmt.Errorf("delete user: %w", err)
	}
	s.log.Info().Str("user_id", userID).Msg("user deleted")
	return domain.OK("User deleted successfully"), nil
}

// ValidateAddress requires every address line to hold at least three characters.
func ValidateAddress(addr domain.ShippingAddress) error {
	fields := []struct{ name, value string }{
		{"fullName", addr.FullName},
		{"streetAddress", addr.StreetAddress},
		{"city", addr.City},
		{"postalCode", addr.PostalCode},
		{"country", addr.Country},
	}
	for _, f := range fields {
		if len(strings.TrimSpace(f.value)) < minFieldLen {
			return domain.ValidationError(f.name, "must be at least 3 characters")
		}
	}
	return nil
}
