package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/google/uuid"
)

const cartColumns = `id, COALESCE(user_id::text, ''), session_cart_id, items,
	items_price, shipping_price, tax_price, total_price, created_at, updated_at`

func (q *Queries) GetCartByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	if !validID(userID) {
		return nil, domain.ErrCartNotFound
	}
	query := `SELECT ` + cartColumns + ` FROM carts WHERE user_id = $1 ORDER BY updated_at DESC LIMIT 1`
	return scanCart(q.db.QueryRowContext(ctx, query, userID))
}

func (q *Queries) GetCartBySessionID(ctx context.Context, sessionCartID string) (*domain.Cart, error) {
	query := `SELECT ` + cartColumns + ` FROM carts WHERE session_cart_id = $1 ORDER BY updated_at DESC LIMIT 1`
	return scanCart(q.db.QueryRowContext(ctx, query, sessionCartID))
}

// CreateCart inserts cart, assigning an id when it has none.
func (q *Queries) CreateCart(ctx context.Context, cart *domain.Cart) error {
	if cart.ID == "" {
		cart.ID = uuid.NewString()
	}
	itemsJSON, err := marshalItems(cart.Items)
	if err != nil {
		return err
	}

	query := `INSERT INTO carts (id, user_id, session_cart_id, items, items_price, shipping_price, tax_price, total_price, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	          RETURNING created_at, updated_at`

	err = q.db.QueryRowContext(ctx, query,
		cart.ID,
		nullableID(cart.UserID),
		cart.SessionCartID,
		itemsJSON,
		cart.ItemsPrice,
		cart.ShippingPrice,
		cart.TaxPrice,
		cart.TotalPrice,
	).Scan(&cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert cart: %w", err)
	}
	return nil
}

// UpdateCart overwrites items and prices in a single statement.
func (q *Queries) UpdateCart(ctx context.Context, cart *domain.Cart) error {
	itemsJSON, err := marshalItems(cart.Items)
	if err != nil {
		return err
	}

	query := `UPDATE carts
	          SET items = $2, items_price = $3, shipping_price = $4, tax_price = $5, total_price = $6, updated_at = NOW()
	          WHERE id = $1
	          RETURNING updated_at`

	err = q.db.QueryRowContext(ctx, query,
		cart.ID,
		itemsJSON,
		cart.ItemsPrice,
		cart.ShippingPrice,
		cart.TaxPrice,
		cart.TotalPrice,
	).Scan(&cart.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrCartNotFound
	}
	if err != nil {
		return fmt.Errorf("update cart: %w", err)
	}
	return nil
}

func scanCart(row rowScanner) (*domain.Cart, error) {
	var cart domain.Cart
	var itemsJSON []byte
	err := row.Scan(
		&cart.ID,
		&cart.UserID,
		&cart.SessionCartID,
		&itemsJSON,
		&cart.ItemsPrice,
		&cart.ShippingPrice,
		&cart.TaxPrice,
		&cart.TotalPrice,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan cart: %w", err)
	}

	if err := json.Unmarshal(itemsJSON, &cart.Items); err != nil {
		return nil, fmt.Errorf("unmarshal cart items: %w", err)
	}
	return &cart, nil
}

func marshalItems(items []domain.CartItem) ([]byte, error) {
	if items == nil {
		items = []domain.CartItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal cart items: %w", err)
	}
	return data, nil
}

func nullableID(id string) sql.NullString {
	return sql.NullString{String: id, Valid: id != ""}
}
