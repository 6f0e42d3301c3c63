package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_storefront/internal/domain"
)

const userColumns = `id, name, email, role, address, payment_method, created_at`

func (q *Queries) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	if !validID(id) {
		return nil, domain.ErrUserNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(q.db.QueryRowContext(ctx, query, id))
}

func (q *Queries) UpdateUserAddress(ctx context.Context, id string, addr domain.ShippingAddress) error {
	if !validID(id) {
		return domain.ErrUserNotFound
	}
	addrJSON, err := json.Marshal(addr)
	if err != nil {
		return fmt.Errorf("marshal address: %w", err)
	}
	res, err := q.db.ExecContext(ctx, `UPDATE users SET address = $2 WHERE id = $1`, id, addrJSON)
	if err != nil {
		return fmt.Errorf("update user address: %w", err)
	}
	return expectOne(res, domain.ErrUserNotFound)
}

func (q *Queries) UpdateUserPaymentMethod(ctx context.Context, id, method string) error {
	if !validID(id) {
		return domain.ErrUserNotFound
	}
	res, err := q.db.ExecContext(ctx, `UPDATE users SET payment_method = $2 WHERE id = $1`, id, method)
	if err != nil {
		return fmt.Errorf("update user payment method: %w", err)
	}
	return expectOne(res, domain.ErrUserNotFound)
}

// ListUsers returns one page of users whose name contains query, and the total
// number of matches.
func (q *Queries) ListUsers(ctx context.Context, query string, limit, offset int) ([]*domain.User, int, error) {
	pattern := containsPattern(query)

	var count int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE name ILIKE $1 ESCAPE '\'`, pattern).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE name ILIKE $1 ESCAPE '\' ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration error: %w", err)
	}
	return users, count, nil
}

func (q *Queries) UpdateUser(ctx context.Context, id, name, role string) error {
	if !validID(id) {
		return domain.ErrUserNotFound
	}
	res, err := q.db.ExecContext(ctx, `UPDATE users SET name = $2, role = $3 WHERE id = $1`, id, name, role)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return expectOne(res, domain.ErrUserNotFound)
}

// UpdateUserName changes only the display name, leaving the role untouched.
func (q *Queries) UpdateUserName(ctx context.Context, id, name string) error {
	if !validID(id) {
		return domain.ErrUserNotFound
	}
	res, err := q.db.ExecContext(ctx, `UPDATE users SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("update user name: %w", err)
	}
	return expectOne(res, domain.ErrUserNotFound)
}

func (q *Queries) DeleteUser(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrUserNotFound
	}
	res, err := q.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return expectOne(res, domain.ErrUserNotFound)
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var addrJSON []byte
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &addrJSON, &u.PaymentMethod, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if addrJSON != nil {
		var addr domain.ShippingAddress
		if err := json.Unmarshal(addrJSON, &addr); err != nil {
			return nil, fmt.Errorf("unmarshal user address: %w", err)
		}
		u.Address = &addr
	}
	return &u, nil
}
