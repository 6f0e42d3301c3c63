package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/repository"
)

var errInjected = errors.New("injected failure")

type fakeState struct {
	carts  map[string]*domain.Cart // by user id
	users  map[string]*domain.User
	orders map[string]*domain.Order
	stock  map[string]int
	events []string
	nextID int
}

func (s *fakeState) clone() *fakeState {
	c := &fakeState{
		carts:  map[string]*domain.Cart{},
		users:  s.users,
		orders: map[string]*domain.Order{},
		stock:  map[string]int{},
		events: append([]string(nil), s.events...),
		nextID: s.nextID,
	}
	for k, v := range s.carts {
		cp := *v
		cp.Items = append([]domain.CartItem(nil), v.Items...)
		c.carts[k] = &cp
	}
	for k, v := range s.orders {
		cp := *v
		cp.Items = append([]domain.OrderItem(nil), v.Items...)
		c.orders[k] = &cp
	}
	for k, v := range s.stock {
		c.stock[k] = v
	}
	return c
}

// fakeStore keeps state in memory. WithTx works on a copy that only replaces
// the committed state when fn succeeds.
type fakeStore struct {
	mu     sync.Mutex
	state  *fakeState
	failOn string
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: &fakeState{
		carts:  map[string]*domain.Cart{},
		users:  map[string]*domain.User{},
		orders: map[string]*domain.Order{},
		stock:  map[string]int{},
	}}
}

func (f *fakeStore) WithTx(_ context.Context, fn func(tx repository.Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	work := f.state.clone()
	if err := fn(&fakeTx{state: work, failOn: f.failOn}); err != nil {
		return err
	}
	f.state = work
	return nil
}

func (f *fakeStore) GetCartByUserID(_ context.Context, userID string) (*domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.state.carts[userID]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	cp := *c
	cp.Items = append([]domain.CartItem(nil), c.Items...)
	return &cp, nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.state.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeStore) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.state.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) SetPaymentResult(_ context.Context, id string, result domain.PaymentResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.state.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.PaymentResult = &result
	return nil
}

func (f *fakeStore) ListOrdersByUser(_ context.Context, userID string, limit, offset int) ([]*domain.Order, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*domain.Order
	for _, o := range f.state.orders {
		if o.UserID == userID {
			all = append(all, o)
		}
	}
	return window(all, limit, offset), len(all), nil
}

func (f *fakeStore) ListOrders(_ context.Context, limit, offset int) ([]*domain.Order, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*domain.Order
	for _, o := range f.state.orders {
		all = append(all, o)
	}
	return window(all, limit, offset), len(all), nil
}

func (f *fakeStore) GetOrderSummary(context.Context) (*domain.OrderSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &domain.OrderSummary{OrdersCount: len(f.state.orders), UsersCount: len(f.state.users)}, nil
}

func (f *fakeStore) snapshot() *fakeState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.clone()
}

func window(all []*domain.Order, limit, offset int) []*domain.Order {
	if offset >= len(all) {
		return []*domain.Order{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

type fakeTx struct {
	repository.Tx
	state  *fakeState
	failOn string
}

func (t *fakeTx) fail(op string) error {
	if t.failOn == op {
		return fmt.Errorf("%s: %w", op, errInjected)
	}
	return nil
}

func (t *fakeTx) CreateOrder(_ context.Context, order *domain.Order) error {
	if err := t.fail("CreateOrder"); err != nil {
		return err
	}
	t.state.nextID++
	order.ID = fmt.Sprintf("order-%d", t.state.nextID)
	order.CreatedAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	cp := *order
	t.state.orders[order.ID] = &cp
	return nil
}

func (t *fakeTx) CreateOrderItem(_ context.Context, item domain.OrderItem) error {
	if err := t.fail("CreateOrderItem"); err != nil {
		return err
	}
	o := t.state.orders[item.OrderID]
	o.Items = append(o.Items, item)
	return nil
}

func (t *fakeTx) UpdateCart(_ context.Context, cart *domain.Cart) error {
	if err := t.fail("UpdateCart"); err != nil {
		return err
	}
	cp := *cart
	t.state.carts[cart.UserID] = &cp
	return nil
}

func (t *fakeTx) AddOutboxEvent(_ context.Context, _ string, eventType string, _ []byte) error {
	if err := t.fail("AddOutboxEvent"); err != nil {
		return err
	}
	t.state.events = append(t.state.events, eventType)
	return nil
}

func (t *fakeTx) LockOrder(_ context.Context, id string) (*domain.Order, error) {
	o, ok := t.state.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (t *fakeTx) AdjustStock(_ context.Context, productID string, delta int) error {
	if err := t.fail("AdjustStock"); err != nil {
		return err
	}
	if _, ok := t.state.stock[productID]; !ok {
		return domain.ErrProductNotFound
	}
	t.state.stock[productID] += delta
	return nil
}

func (t *fakeTx) MarkOrderPaid(_ context.Context, id string, paidAt time.Time, result domain.PaymentResult) error {
	o := t.state.orders[id]
	if o.IsPaid {
		return domain.ErrAlreadyPaid
	}
	o.IsPaid = true
	o.PaidAt = &paidAt
	o.PaymentResult = &result
	return nil
}

type mockGateway struct {
	createID   string
	createErr  error
	capture    *domain.CaptureResult
	captureErr error
	amounts    []string
	captures   int
}

func (m *mockGateway) CreateOrder(_ context.Context, amount string) (string, error) {
	m.amounts = append(m.amounts, amount)
	return m.createID, m.createErr
}

func (m *mockGateway) CapturePayment(context.Context, string) (*domain.CaptureResult, error) {
	m.captures++
	return m.capture, m.captureErr
}

type mockJournal struct {
	mu      sync.Mutex
	records []domain.CaptureRecord
	err     error
}

func (m *mockJournal) Record(_ context.Context, rec domain.CaptureRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return m.err
}

func (m *mockJournal) ListByOrder(_ context.Context, orderID string) ([]domain.CaptureRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CaptureRecord
	for _, r := range m.records {
		if r.OrderID == orderID {
			out = append(out, r)
		}
	}
	return out, m.err
}

type mockInvalidator struct {
	users []string
}

func (m *mockInvalidator) Invalidate(_ context.Context, userID string) {
	m.users = append(m.users, userID)
}
