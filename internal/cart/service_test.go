package cart

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/cache"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/pricing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	m        sync.Mutex
	carts    map[string]*domain.Cart // by session or user id
	products map[string]*domain.Product
	getErr   error
	reads    atomic.Int32
	writes   int
	delay    time.Duration
	onRead   func() // runs after a successful read, outside the lock
}

func newMockStore(products ...*domain.Product) *mockStore {
	s := &mockStore{carts: map[string]*domain.Cart{}, products: map[string]*domain.Product{}}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (m *mockStore) get(key string) (*domain.Cart, error) {
	m.reads.Add(1)
	time.Sleep(m.delay)
	m.m.Lock()
	if m.getErr != nil {
		m.m.Unlock()
		return nil, m.getErr
	}
	c, ok := m.carts[key]
	if !ok {
		m.m.Unlock()
		return nil, domain.ErrCartNotFound
	}
	cp := *c
	cp.Items = append([]domain.CartItem(nil), c.Items...)
	hook := m.onRead
	m.m.Unlock()

	if hook != nil {
		hook()
	}
	return &cp, nil
}

func (m *mockStore) GetCartByUserID(_ context.Context, userID string) (*domain.Cart, error) {
	return m.get("user:" + userID)
}

func (m *mockStore) GetCartBySessionID(_ context.Context, sessionCartID string) (*domain.Cart, error) {
	return m.get("session:" + sessionCartID)
}

func (m *mockStore) put(cart *domain.Cart) {
	cp := *cart
	cp.Items = append([]domain.CartItem(nil), cart.Items...)
	if cart.UserID != "" {
		m.carts["user:"+cart.UserID] = &cp
	} else {
		m.carts["session:"+cart.SessionCartID] = &cp
	}
}

func (m *mockStore) CreateCart(_ context.Context, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	cart.ID = "cart-1"
	m.writes++
	m.put(cart)
	return nil
}

func (m *mockStore) UpdateCart(_ context.Context, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.writes++
	m.put(cart)
	return nil
}

func (m *mockStore) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	m.m.Lock()
	defer m.m.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

type mockCache struct {
	m       sync.Mutex
	entries map[string]*domain.Cart
	err     error
	deleted []string
}

func newMockCache() *mockCache {
	return &mockCache{entries: map[string]*domain.Cart{}}
}

func (m *mockCache) Get(_ context.Context, key string) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.entries[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return c, nil
}

func (m *mockCache) Set(_ context.Context, key string, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.entries[key] = cart
	return m.err
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.entries, key)
	m.deleted = append(m.deleted, key)
	return m.err
}

var (
	guest = domain.Identity{SessionCartID: "sess-1"}
	shirt = &domain.Product{ID: "p1", Name: "Shirt", Slug: "shirt", Price: "25.00", Stock: 2}
	socks = &domain.Product{ID: "p2", Name: "Socks", Slug: "socks", Price: "5.00", Stock: 0}
)

func itemOf(p *domain.Product) domain.CartItem {
	return domain.CartItem{ProductID: p.ID, Name: p.Name, Slug: p.Slug, Image: "/img.jpg", Price: p.Price, Qty: 1}
}

func newTestService(store *mockStore, c *mockCache) *Service {
	return NewService(store, c, pricing.DefaultConfig, zerolog.Nop())
}

func TestGetCart_SessionMissing(t *testing.T) {
	svc := newTestService(newMockStore(), newMockCache())

	_, err := svc.GetCart(context.Background(), domain.Identity{UserID: "u1"})
	assert.ErrorIs(t, err, domain.ErrSessionMissing)
}

func TestGetCart_Absent(t *testing.T) {
	c := newMockCache()
	svc := newTestService(newMockStore(), c)

	cart, err := svc.GetCart(context.Background(), guest)
	require.NoError(t, err)
	assert.Nil(t, cart)
	assert.Empty(t, c.entries)
}

func TestGetCart_FromCache(t *testing.T) {
	store := newMockStore()
	c := newMockCache()
	c.entries["session:sess-1"] = &domain.Cart{ID: "cached"}
	svc := newTestService(store, c)

	cart, err := svc.GetCart(context.Background(), guest)
	require.NoError(t, err)
	assert.Equal(t, "cached", cart.ID)
	assert.Zero(t, store.reads.Load())
}

func TestGetCart_MissPopulatesCache(t *testing.T) {
	store := newMockStore()
	store.carts["user:u1"] = &domain.Cart{ID: "c-u1", UserID: "u1"}
	c := newMockCache()
	svc := newTestService(store, c)

	cart, err := svc.GetCart(context.Background(), domain.Identity{SessionCartID: "s", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "c-u1", cart.ID)
	assert.Contains(t, c.entries, "user:u1")
}

func TestGetCart_CacheErrorFallsBackToStore(t *testing.T) {
	store := newMockStore()
	store.carts["session:sess-1"] = &domain.Cart{ID: "c1"}
	c := newMockCache()
	c.err = errors.New("redis down")
	svc := newTestService(store, c)

	cart, err := svc.GetCart(context.Background(), guest)
	require.NoError(t, err)
	assert.Equal(t, "c1", cart.ID)
}

func TestGetCart_StoreError(t *testing.T) {
	store := newMockStore()
	store.getErr = errors.New("db down")
	svc := newTestService(store, newMockCache())

	_, err := svc.GetCart(context.Background(), guest)
	assert.ErrorContains(t, err, "db down")
}

func TestGetCart_ConcurrentMissesShareOneLoad(t *testing.T) {
	store := newMockStore()
	store.carts["session:sess-1"] = &domain.Cart{ID: "c1"}
	store.delay = 50 * time.Millisecond
	svc := newTestService(store, newMockCache())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cart, err := svc.GetCart(context.Background(), guest)
			assert.NoError(t, err)
			assert.Equal(t, "c1", cart.ID)
		}()
	}
	wg.Wait()

	assert.Less(t, store.reads.Load(), int32(10))
}

func TestAddItem_CreatesCart(t *testing.T) {
	store := newMockStore(shirt)
	c := newMockCache()
	svc := newTestService(store, c)

	item := itemOf(shirt)
	item.Qty = 3
	res, err := svc.AddItem(context.Background(), guest, item)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Shirt added to cart", res.Message)

	cart := store.carts["session:sess-1"]
	require.NotNil(t, cart)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "75.00", cart.ItemsPrice)
	assert.Equal(t, "1.00", cart.ShippingPrice)
	assert.Equal(t, "16.50", cart.TaxPrice)
	assert.Equal(t, "92.50", cart.TotalPrice)
	assert.Contains(t, c.deleted, "session:sess-1")
}

func TestAddItem_UserCartOwnedByUser(t *testing.T) {
	store := newMockStore(shirt)
	svc := newTestService(store, newMockCache())
	id := domain.Identity{SessionCartID: "sess-1", UserID: "u1"}

	_, err := svc.AddItem(context.Background(), id, itemOf(shirt))
	require.NoError(t, err)

	cart := store.carts["user:u1"]
	require.NotNil(t, cart)
	assert.Equal(t, "u1", cart.UserID)
	assert.Equal(t, "sess-1", cart.SessionCartID)
}

func TestAddItem_SameProductIncrements(t *testing.T) {
	store := newMockStore(shirt)
	svc := newTestService(store, newMockCache())
	ctx := context.Background()

	_, err := svc.AddItem(ctx, guest, itemOf(shirt))
	require.NoError(t, err)
	res, err := svc.AddItem(ctx, guest, itemOf(shirt))
	require.NoError(t, err)

	assert.Equal(t, "Shirt updated in cart", res.Message)
	cart := store.carts["session:sess-1"]
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Qty)
	assert.Equal(t, "50.00", cart.ItemsPrice)
}

func TestAddItem_InsufficientStockLeavesCartUnchanged(t *testing.T) {
	store := newMockStore(shirt)
	store.carts["session:sess-1"] = &domain.Cart{
		ID: "c1", SessionCartID: "sess-1",
		Items:  []domain.CartItem{{ProductID: "p1", Name: "Shirt", Slug: "shirt", Image: "/img.jpg", Price: "25.00", Qty: 2}},
		Prices: domain.Prices{ItemsPrice: "50.00", ShippingPrice: "1.00", TaxPrice: "11.00", TotalPrice: "62.00"},
	}
	svc := newTestService(store, newMockCache())

	_, err := svc.AddItem(context.Background(), guest, itemOf(shirt))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	cart := store.carts["session:sess-1"]
	assert.Equal(t, 2, cart.Items[0].Qty)
	assert.Equal(t, "62.00", cart.TotalPrice)
	assert.Zero(t, store.writes)
}

func TestAddItem_NewLineNeedsStock(t *testing.T) {
	store := newMockStore(shirt, socks)
	store.carts["session:sess-1"] = &domain.Cart{ID: "c1", SessionCartID: "sess-1",
		Items: []domain.CartItem{itemOf(shirt)}}
	svc := newTestService(store, newMockCache())

	_, err := svc.AddItem(context.Background(), guest, itemOf(socks))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestAddItem_ProductNotFound(t *testing.T) {
	svc := newTestService(newMockStore(), newMockCache())

	_, err := svc.AddItem(context.Background(), guest, itemOf(shirt))
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestAddItem_Validation(t *testing.T) {
	svc := newTestService(newMockStore(shirt), newMockCache())

	bad := []func(*domain.CartItem){
		func(i *domain.CartItem) { i.ProductID = "" },
		func(i *domain.CartItem) { i.Name = " " },
		func(i *domain.CartItem) { i.Image = "" },
		func(i *domain.CartItem) { i.Price = "19.999" },
		func(i *domain.CartItem) { i.Qty = 0 },
	}
	for _, mutate := range bad {
		item := itemOf(shirt)
		mutate(&item)
		_, err := svc.AddItem(context.Background(), guest, item)
		assert.ErrorIs(t, err, domain.ErrValidation)
	}
}

func TestGetCart_FillRacingWriteIsDropped(t *testing.T) {
	store := newMockStore(shirt)
	c := newMockCache()
	svc := newTestService(store, c)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, guest, itemOf(shirt))
	require.NoError(t, err)

	readDone := make(chan struct{})
	proceed := make(chan struct{})
	store.m.Lock()
	store.onRead = func() {
		close(readDone)
		<-proceed
	}
	store.m.Unlock()

	type result struct {
		cart *domain.Cart
		err  error
	}
	got := make(chan result, 1)
	go func() {
		cart, err := svc.GetCart(ctx, guest)
		got <- result{cart, err}
	}()

	<-readDone
	store.m.Lock()
	store.onRead = nil
	store.m.Unlock()

	_, err = svc.AddItem(ctx, guest, itemOf(shirt))
	require.NoError(t, err)
	close(proceed)

	stale := <-got
	require.NoError(t, stale.err)
	assert.Equal(t, 1, stale.cart.Items[0].Qty)

	c.m.Lock()
	_, cached := c.entries["session:sess-1"]
	c.m.Unlock()
	assert.False(t, cached, "stale read must not be cached")

	fresh, err := svc.GetCart(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Items[0].Qty)
}

func TestAddItem_NormalizesPrice(t *testing.T) {
	store := newMockStore(shirt)
	svc := newTestService(store, newMockCache())

	item := itemOf(shirt)
	item.Price = "25.5"
	res, err := svc.AddItem(context.Background(), guest, item)
	require.NoError(t, err)
	assert.True(t, res.Success)

	cart := store.carts["session:sess-1"]
	assert.Equal(t, "25.50", cart.Items[0].Price)
	assert.Equal(t, "25.50", cart.ItemsPrice)
}

func TestRemoveItem_DecrementsThenDeletes(t *testing.T) {
	store := newMockStore(shirt)
	svc := newTestService(store, newMockCache())
	ctx := context.Background()

	item := itemOf(shirt)
	item.Qty = 2
	_, err := svc.AddItem(ctx, guest, item)
	require.NoError(t, err)

	res, err := svc.RemoveItem(ctx, guest, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Shirt was removed from cart", res.Message)
	assert.Equal(t, 1, store.carts["session:sess-1"].Items[0].Qty)
	assert.Equal(t, "25.00", store.carts["session:sess-1"].ItemsPrice)

	_, err = svc.RemoveItem(ctx, guest, "p1")
	require.NoError(t, err)
	cart := store.carts["session:sess-1"]
	assert.Empty(t, cart.Items)
	assert.Equal(t, "0.00", cart.ItemsPrice)
	assert.Equal(t, "1.00", cart.ShippingPrice)
}

func TestRemoveItem_NotFound(t *testing.T) {
	store := newMockStore(shirt)
	svc := newTestService(store, newMockCache())
	ctx := context.Background()

	_, err := svc.RemoveItem(ctx, guest, "p1")
	assert.ErrorIs(t, err, domain.ErrCartNotFound)

	_, err = svc.AddItem(ctx, guest, itemOf(shirt))
	require.NoError(t, err)
	_, err = svc.RemoveItem(ctx, guest, "p9")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestInvalidate(t *testing.T) {
	c := newMockCache()
	c.entries["user:u1"] = &domain.Cart{}
	svc := newTestService(newMockStore(), c)

	svc.Invalidate(context.Background(), "u1")

	assert.NotContains(t, c.entries, "user:u1")
}
