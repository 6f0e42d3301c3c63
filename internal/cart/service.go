package cart

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync/atomic"
	"time"

	"github.com/fjod/go_storefront/internal/cache"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/pricing"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Store is the persistence the cart service needs.
type Store interface {
	GetCartByUserID(ctx context.Context, userID string) (*domain.Cart, error)
	GetCartBySessionID(ctx context.Context, sessionCartID string) (*domain.Cart, error)
	CreateCart(ctx context.Context, cart *domain.Cart) error
	UpdateCart(ctx context.Context, cart *domain.Cart) error
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
}

type Service struct {
	repo    Store
	cache   cache.CartCache
	pricing pricing.Config
	log     zerolog.Logger
	sfg     singleflight.Group // prevents cache stampede

	// bumped on every invalidation; a fill that saw an older value is dropped
	generations [256]atomic.Uint64
}

func NewService(repo Store, c cache.CartCache, pc pricing.Config, log zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		cache:   c,
		pricing: pc,
		log:     log.With().Str("component", "cart").Logger(),
	}
}

// GetCart returns the caller's cart, or nil when none exists yet.
func (s *Service) GetCart(ctx context.Context, id domain.Identity) (*domain.Cart, error) {
	key, err := id.CartKey()
	if err != nil {
		return nil, err
	}

	v, err, _ := s.sfg.Do(key, func() (any, error) {
		gen := s.generation(key).Load()
		cached, err := s.cache.Get(ctx, key)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		}

		cart, err := s.load(ctx, id)
		if err != nil || cart == nil {
			return cart, err
		}

		if s.generation(key).Load() != gen {
			return cart, nil
		}
		if err := s.cache.Set(context.WithoutCancel(ctx), key, cart); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
		}
		return cart, nil
	})
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	cart, _ := v.(*domain.Cart)
	return cart, nil
}

// AddItem puts one unit of item into the caller's cart, creating the cart on
// first use.
func (s *Service) AddItem(ctx context.Context, id domain.Identity, item domain.CartItem) (domain.Result, error) {
	key, err := id.CartKey()
	if err != nil {
		return domain.Result{}, err
	}
	if err := ValidateItem(&item); err != nil {
		return domain.Result{}, err
	}

	product, err := s.repo.GetProductByID(ctx, item.ProductID)
	if err != nil {
		return domain.Result{}, fmt.Errorf("add item: %w", err)
	}

	cart, err := s.load(ctx, id)
	if err != nil {
		return domain.Result{}, fmt.Errorf("add item: %w", err)
	}

	if cart == nil {
		cart = &domain.Cart{SessionCartID: id.SessionCartID, Items: []domain.CartItem{item}}
		if id.Authenticated() {
			cart.UserID = id.UserID
		}
		if cart.Prices, err = s.pricing.CalcPrice(cart.Items); err != nil {
			return domain.Result{}, err
		}
		if err := s.repo.CreateCart(ctx, cart); err != nil {
			return domain.Result{}, fmt.Errorf("add item: %w", err)
		}
		s.invalidate(ctx, key)
		return domain.OK(fmt.Sprintf("%s added to cart", product.Name)), nil
	}

	msg := fmt.Sprintf("%s added to cart", product.Name)
	if i := cart.FindItem(item.ProductID); i >= 0 {
		if product.Stock < cart.Items[i].Qty+1 {
			return domain.Result{}, domain.ErrInsufficientStock
		}
		cart.Items[i].Qty++
		msg = fmt.Sprintf("%s updated in cart", product.Name)
	} else {
		if product.Stock < 1 {
			return domain.Result{}, domain.ErrInsufficientStock
		}
		cart.Items = append(cart.Items, item)
	}

	if err := s.save(ctx, key, cart); err != nil {
		return domain.Result{}, fmt.Errorf("add item: %w", err)
	}
	return domain.OK(msg), nil
}

// RemoveItem takes one unit of productID out of the caller's cart. The line
// disappears when its last unit is removed.
func (s *Service) RemoveItem(ctx context.Context, id domain.Identity, productID string) (domain.Result, error) {
	key, err := id.CartKey()
	if err != nil {
		return domain.Result{}, err
	}

	cart, err := s.load(ctx, id)
	if err != nil {
		return domain.Result{}, fmt.Errorf("remove item: %w", err)
	}
	if cart == nil {
		return domain.Result{}, domain.ErrCartNotFound
	}

	i := cart.FindItem(productID)
	if i < 0 {
		return domain.Result{}, domain.ErrItemNotFound
	}
	name := cart.Items[i].Name
	if cart.Items[i].Qty <= 1 {
		cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
	} else {
		cart.Items[i].Qty--
	}

	if err := s.save(ctx, key, cart); err != nil {
		return domain.Result{}, fmt.Errorf("remove item: %w", err)
	}
	return domain.OK(fmt.Sprintf("%s was removed from cart", name)), nil
}

// Invalidate drops the cached copy of a signed-in user's cart.
func (s *Service) Invalidate(ctx context.Context, userID string) {
	s.invalidate(ctx, domain.UserCartKey(userID))
}

// load reads the cart from the store, bypassing the cache.
func (s *Service) load(ctx context.Context, id domain.Identity) (*domain.Cart, error) {
	var (
		cart *domain.Cart
		err  error
	)
	if id.Authenticated() {
		cart, err = s.repo.GetCartByUserID(ctx, id.UserID)
	} else {
		cart, err = s.repo.GetCartBySessionID(ctx, id.SessionCartID)
	}
	if errors.Is(err, domain.ErrCartNotFound) {
		return nil, nil
	}
	return cart, err
}

func (s *Service) save(ctx context.Context, key string, cart *domain.Cart) error {
	prices, err := s.pricing.CalcPrice(cart.Items)
	if err != nil {
		return err
	}
	cart.Prices = prices
	if err := s.repo.UpdateCart(ctx, cart); err != nil {
		return err
	}
	s.invalidate(ctx, key)
	return nil
}

func (s *Service) generation(key string) *atomic.Uint64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s.generations[h.Sum32()%uint32(len(s.generations))]
}

func (s *Service) invalidate(ctx context.Context, key string) {
	s.generation(key).Add(1)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache invalidate failed")
	}
}
