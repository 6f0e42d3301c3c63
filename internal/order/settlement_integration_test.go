package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/repository"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	seededUserID    = "0b4c7a52-52a4-4c1c-9f1e-2d9a3f1d7c02"
	seededProductID = "6f1a2b3c-0000-4000-8000-000000000001" // stock 5
)

func setupPostgres(t *testing.T) *repository.Repository {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &repository.Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "../repository/migrations",
	}
	repo, err := repository.NewRepository(creds)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.RunMigrations(creds))
	return repo
}

func TestMarkOrderPaid_ConcurrentSettlementAppliesOnce(t *testing.T) {
	repo := setupPostgres(t)
	ctx := context.Background()
	const qty = 2

	order := &domain.Order{
		UserID:          seededUserID,
		PaymentMethod:   domain.PaymentMethodPayPal,
		ShippingAddress: *address,
		Prices:          domain.Prices{ItemsPrice: "119.98", ShippingPrice: "0.00", TaxPrice: "18.00", TotalPrice: "137.98"},
	}
	err := repo.WithTx(ctx, func(tx repository.Tx) error {
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		return tx.CreateOrderItem(ctx, domain.OrderItem{
			OrderID: order.ID, ProductID: seededProductID, Name: "Polo", Slug: "polo-sporting-stretch-shirt",
			Image: "/p1.jpg", Price: "59.99", Qty: qty,
		})
	})
	require.NoError(t, err)

	before, err := repo.GetProductByID(ctx, seededProductID)
	require.NoError(t, err)

	svc := NewService(repo, nil, nil, nil, Config{}, zerolog.Nop())
	result := domain.PaymentResult{ID: "PAY-1", Status: domain.PaymentStatusCompleted, EmailAddress: "a@b.c", PricePaid: "137.98"}

	start := make(chan struct{})
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = svc.MarkOrderPaid(ctx, order.ID, result)
		}(i)
	}
	close(start)
	wg.Wait()

	var settled, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			settled++
		case assert.ErrorIs(t, err, domain.ErrAlreadyPaid):
			rejected++
		}
	}
	assert.Equal(t, 1, settled)
	assert.Equal(t, 1, rejected)

	after, err := repo.GetProductByID(ctx, seededProductID)
	require.NoError(t, err)
	assert.Equal(t, before.Stock-qty, after.Stock)

	got, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	var paidEvents int
	for _, e := range events {
		if e.EventType == domain.EventOrderPaid {
			paidEvents++
		}
	}
	assert.Equal(t, 1, paidEvents)
}
