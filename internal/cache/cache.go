package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_storefront/internal/domain"
)

// CartCache stores carts by owner key (see domain.Identity.CartKey).
type CartCache interface {
	Get(ctx context.Context, ownerKey string) (*domain.Cart, error)
	Set(ctx context.Context, ownerKey string, cart *domain.Cart) error
	Delete(ctx context.Context, ownerKey string) error
}

var ErrCacheMiss = errors.New("cache miss")
