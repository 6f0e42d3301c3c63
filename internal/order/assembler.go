package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/logger"
	"github.com/fjod/go_storefront/internal/repository"
)

// CreateOrder turns the user's cart into an order. Missing checkout steps are
// reported as a soft failure that points the user at the step to complete.
func (s *Service) CreateOrder(ctx context.Context, userID string) (domain.Result, error) {
	if userID == "" {
		return domain.Result{}, domain.ErrUnauthenticated
	}

	cart, err := s.store.GetCartByUserID(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrCartNotFound) {
		return domain.Result{}, fmt.Errorf("create order: %w", err)
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return domain.Result{}, fmt.Errorf("create order: %w", err)
	}

	switch {
	case cart.IsEmpty():
		return domain.SoftFail(domain.ReasonCartEmpty, "Your cart is empty", "/cart"), nil
	case user.PaymentMethod == "":
		return domain.SoftFail(domain.ReasonPaymentMethodMissing, "No payment method", "/payment-method"), nil
	case user.Address == nil:
		return domain.SoftFail(domain.ReasonShippingAddressMissing, "No shipping address", "/shipping-address"), nil
	}

	order := &domain.Order{
		UserID:          userID,
		PaymentMethod:   user.PaymentMethod,
		ShippingAddress: *user.Address,
		Prices:          cart.Prices,
	}

	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		for i, line := range cart.Items {
			item := domain.OrderItem{
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Name:      line.Name,
				Slug:      line.Slug,
				Image:     line.Image,
				Price:     line.Price,
				Qty:       line.Qty,
				Position:  i,
			}
			if err := tx.CreateOrderItem(ctx, item); err != nil {
				return err
			}
			order.Items = append(order.Items, item)
		}

		cart.Items = []domain.CartItem{}
		cart.Prices = domain.ZeroPrices
		if err := tx.UpdateCart(ctx, cart); err != nil {
			return err
		}

		payload, err := json.Marshal(domain.OrderCreatedEvent{
			OrderID:    order.ID,
			UserID:     userID,
			Items:      order.Items,
			TotalPrice: order.TotalPrice,
			CreatedAt:  order.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("marshal order created event: %w", err)
		}
		return tx.AddOutboxEvent(ctx, order.ID, domain.EventOrderCreated, payload)
	})
	if err != nil {
		return domain.Result{}, fmt.Errorf("create order: %w", err)
	}

	s.carts.Invalidate(ctx, userID)

	log := logger.WithTrace(ctx, s.log)
	log.Info().Str("order_id", order.ID).Str("user_id", userID).Str("total", order.TotalPrice).Msg("order created")

	return domain.Result{
		Success:    true,
		Message:    "Order created",
		RedirectTo: "/order/" + order.ID,
		Data:       order.ID,
	}, nil
}
