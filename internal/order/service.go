package order

import (
	"context"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/repository"
	"github.com/rs/zerolog"
)

// Store is the persistence the order service needs.
type Store interface {
	WithTx(ctx context.Context, fn func(tx repository.Tx) error) error
	GetCartByUserID(ctx context.Context, userID string) (*domain.Cart, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	SetPaymentResult(ctx context.Context, id string, result domain.PaymentResult) error
	ListOrdersByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Order, int, error)
	ListOrders(ctx context.Context, limit, offset int) ([]*domain.Order, int, error)
	GetOrderSummary(ctx context.Context) (*domain.OrderSummary, error)
}

// PaymentGateway talks to the external payment provider.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount string) (string, error)
	CapturePayment(ctx context.Context, providerOrderID string) (*domain.CaptureResult, error)
}

// CaptureJournal keeps a diagnostic trail of capture attempts.
type CaptureJournal interface {
	Record(ctx context.Context, rec domain.CaptureRecord) error
	ListByOrder(ctx context.Context, orderID string) ([]domain.CaptureRecord, error)
}

type CartInvalidator interface {
	Invalidate(ctx context.Context, userID string)
}

type Config struct {
	PageSize      int
	AdminPageSize int
}

type Service struct {
	store   Store
	carts   CartInvalidator
	gateway PaymentGateway
	journal CaptureJournal
	cfg     Config
	log     zerolog.Logger
	now     func() time.Time
}

func NewService(store Store, carts CartInvalidator, gateway PaymentGateway, journal CaptureJournal, cfg Config, log zerolog.Logger) *Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 6
	}
	if cfg.AdminPageSize <= 0 {
		cfg.AdminPageSize = 10
	}
	return &Service{
		store:   store,
		carts:   carts,
		gateway: gateway,
		journal: journal,
		cfg:     cfg,
		log:     log.With().Str("component", "order").Logger(),
		now:     time.Now,
	}
}
