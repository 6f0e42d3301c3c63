package order

import (
	"context"
	"fmt"

	"github.com/fjod/go_storefront/internal/domain"
)

// GetOrder returns the order if it belongs to the caller. Admins see every order.
func (s *Service) GetOrder(ctx context.Context, id domain.Identity, orderID string) (*domain.Order, error) {
	if !id.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.UserID != id.UserID && !id.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return order, nil
}

func (s *Service) ListMyOrders(ctx context.Context, id domain.Identity, page int) (domain.Page[*domain.Order], error) {
	if !id.Authenticated() {
		return domain.Page[*domain.Order]{}, domain.ErrUnauthenticated
	}
	limit, offset := pageBounds(page, s.cfg.PageSize)
	orders, count, err := s.store.ListOrdersByUser(ctx, id.UserID, limit, offset)
	if err != nil {
		return domain.Page[*domain.Order]{}, fmt.Errorf("list my orders: %w", err)
	}
	return domain.Page[*domain.Order]{Data: orders, TotalPages: domain.TotalPages(count, limit)}, nil
}

func (s *Service) ListAllOrders(ctx context.Context, page int) (domain.Page[*domain.Order], error) {
	limit, offset := pageBounds(page, s.cfg.AdminPageSize)
	orders, count, err := s.store.ListOrders(ctx, limit, offset)
	if err != nil {
		return domain.Page[*domain.Order]{}, fmt.Errorf("list orders: %w", err)
	}
	return domain.Page[*domain.Order]{Data: orders, TotalPages: domain.TotalPages(count, limit)}, nil
}

func (s *Service) Summary(ctx context.Context) (*domain.OrderSummary, error) {
	summary, err := s.store.GetOrderSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("order summary: %w", err)
	}
	return summary, nil
}

// Captures lists the journaled capture attempts for an order, oldest first.
func (s *Service) Captures(ctx context.Context, orderID string) ([]domain.CaptureRecord, error) {
	if s.journal == nil {
		return []domain.CaptureRecord{}, nil
	}
	recs, err := s.journal.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list captures: %w", err)
	}
	return recs, nil
}

func pageBounds(page, size int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	return size, (page - 1) * size
}
