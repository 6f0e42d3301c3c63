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

// CreatePaymentIntent opens a provider order for the order total and remembers
// its id on the order, so the later capture can be matched against it.
func (s *Service) CreatePaymentIntent(ctx context.Context, id domain.Identity, orderID string) (string, error) {
	order, err := s.GetOrder(ctx, id, orderID)
	if err != nil {
		return "", err
	}
	if order.IsPaid {
		return "", domain.ErrAlreadyPaid
	}

	providerOrderID, err := s.gateway.CreateOrder(ctx, order.TotalPrice)
	if err != nil {
		s.logProviderError(ctx, err, orderID)
		return "", fmt.Errorf("create payment intent: %w", err)
	}

	intent := domain.PaymentResult{ID: providerOrderID, PricePaid: "0"}
	if err := s.store.SetPaymentResult(ctx, orderID, intent); err != nil {
		return "", fmt.Errorf("create payment intent: %w", err)
	}
	return providerOrderID, nil
}

// ApprovePayment captures the provider order and settles the order when the
// capture matches the stored intent and is complete.
func (s *Service) ApprovePayment(ctx context.Context, id domain.Identity, orderID, providerOrderRef string) (res domain.Result, err error) {
	order, err := s.GetOrder(ctx, id, orderID)
	if err != nil {
		return domain.Result{}, err
	}
	if order.IsPaid {
		return domain.Result{}, domain.ErrAlreadyPaid
	}

	rec := domain.CaptureRecord{OrderID: orderID, ProviderOrderID: providerOrderRef}
	defer func() {
		if err != nil {
			rec.Error = err.Error()
		}
		s.recordCapture(ctx, rec)
	}()

	capture, err := s.gateway.CapturePayment(ctx, providerOrderRef)
	if err != nil {
		rec.Outcome = domain.CaptureProviderError
		s.logProviderError(ctx, err, orderID)
		return domain.Result{}, fmt.Errorf("approve payment: %w", err)
	}
	rec.Status = capture.Status
	rec.PayerEmail = capture.PayerEmail
	rec.Amount = capture.AmountPaid

	if order.PaymentResult == nil || capture.ID != order.PaymentResult.ID || capture.Status != domain.PaymentStatusCompleted {
		rec.Outcome = domain.CaptureRejected
		return domain.Result{}, domain.ErrPaymentVerificationFailed
	}

	result := domain.PaymentResult{
		ID:           capture.ID,
		Status:       capture.Status,
		EmailAddress: capture.PayerEmail,
		PricePaid:    capture.AmountPaid,
	}
	if err := s.MarkOrderPaid(ctx, orderID, result); err != nil {
		rec.Outcome = domain.CaptureSettleFailed
		return domain.Result{}, err
	}

	rec.Outcome = domain.CaptureSettled
	return domain.OK("Your order has been paid"), nil
}

// MarkOrderPaid settles the order exactly once. Under the order row lock it
// decrements stock for every line, records the payment and queues an OrderPaid
// event. Stock is decremented even past zero.
func (s *Service) MarkOrderPaid(ctx context.Context, orderID string, result domain.PaymentResult) error {
	log := logger.WithTrace(ctx, s.log)

	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		order, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.IsPaid {
			return domain.ErrAlreadyPaid
		}

		for _, item := range order.Items {
			err := tx.AdjustStock(ctx, item.ProductID, -item.Qty)
			if errors.Is(err, domain.ErrProductNotFound) {
				log.Warn().Str("order_id", orderID).Str("product_id", item.ProductID).Msg("product gone, stock not adjusted")
				continue
			}
			if err != nil {
				return err
			}
		}

		paidAt := s.now().UTC()
		if err := tx.MarkOrderPaid(ctx, orderID, paidAt, result); err != nil {
			return err
		}

		payload, err := json.Marshal(domain.OrderPaidEvent{
			OrderID:       orderID,
			UserID:        order.UserID,
			PaymentResult: result,
			PaidAt:        paidAt,
		})
		if err != nil {
			return fmt.Errorf("marshal order paid event: %w", err)
		}
		return tx.AddOutboxEvent(ctx, orderID, domain.EventOrderPaid, payload)
	})
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}

	log.Info().Str("order_id", orderID).Str("payment_id", result.ID).Msg("order paid")
	return nil
}

func (s *Service) recordCapture(ctx context.Context, rec domain.CaptureRecord) {
	if s.journal == nil {
		return
	}
	rec.RecordedAt = s.now().UTC()
	if err := s.journal.Record(context.WithoutCancel(ctx), rec); err != nil {
		s.log.Warn().Err(err).Str("order_id", rec.OrderID).Msg("capture journal write failed")
	}
}

func (s *Service) logProviderError(ctx context.Context, err error, orderID string) {
	log := logger.WithTrace(ctx, s.log)
	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		log.Error().Err(err).
			Str("order_id", orderID).
			Str("op", pe.Op).
			Int("status", pe.StatusCode).
			Str("diagnostic", pe.Diagnostic).
			Bool("transient", pe.Transient()).
			Msg("payment provider call failed")
		return
	}
	log.Error().Err(err).Str("order_id", orderID).Msg("payment provider call failed")
}
