package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var ErrDuplicateSlug = fmt.Errorf("%w: slug already exists", domain.ErrValidation)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type CartRepository interface {
	GetCartByUserID(ctx context.Context, userID string) (*domain.Cart, error)
	GetCartBySessionID(ctx context.Context, sessionCartID string) (*domain.Cart, error)
	CreateCart(ctx context.Context, cart *domain.Cart) error
	UpdateCart(ctx context.Context, cart *domain.Cart) error
}

type ProductRepository interface {
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	ListLatestProducts(ctx context.Context, limit int) ([]*domain.Product, error)
	ListProducts(ctx context.Context, query string, limit, offset int) ([]*domain.Product, int, error)
	CreateProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, p *domain.Product) error
	DeleteProduct(ctx context.Context, id string) error
	AdjustStock(ctx context.Context, productID string, delta int) error
}

type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	UpdateUserAddress(ctx context.Context, id string, addr domain.ShippingAddress) error
	UpdateUserPaymentMethod(ctx context.Context, id, method string) error
	ListUsers(ctx context.Context, query string, limit, offset int) ([]*domain.User, int, error)
	UpdateUser(ctx context.Context, id, name, role string) error
	UpdateUserName(ctx context.Context, id, name string) error
	DeleteUser(ctx context.Context, id string) error
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	CreateOrderItem(ctx context.Context, item domain.OrderItem) error
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	LockOrder(ctx context.Context, id string) (*domain.Order, error)
	SetPaymentResult(ctx context.Context, id string, result domain.PaymentResult) error
	MarkOrderPaid(ctx context.Context, id string, paidAt time.Time, result domain.PaymentResult) error
	ListOrdersByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Order, int, error)
	ListOrders(ctx context.Context, limit, offset int) ([]*domain.Order, int, error)
	GetOrderSummary(ctx context.Context) (*domain.OrderSummary, error)
}

type OutboxRepository interface {
	AddOutboxEvent(ctx context.Context, aggregateID, eventType string, payload []byte) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

// Tx is the set of queries available inside a unit of work.
type Tx interface {
	CartRepository
	ProductRepository
	UserRepository
	OrderRepository
	OutboxRepository
}

type Repository struct {
	*Queries
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{Queries: &Queries{db: db}, db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "storefront_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

// WithTx runs fn in one database transaction. The transaction is rolled back
// when fn returns an error or panics, and committed otherwise.
func (r *Repository) WithTx(ctx context.Context, fn func(tx Tx) error) (err error) {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Queries{db: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// validID filters out ids postgres would reject as malformed uuids.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
