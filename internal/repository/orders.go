package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/google/uuid"
)

const orderColumns = `o.id, o.user_id, COALESCE(u.name, ''), o.shipping_address, o.payment_method, o.payment_result,
	o.items_price, o.shipping_price, o.tax_price, o.total_price, o.is_paid, o.paid_at, o.created_at`

const orderFrom = ` FROM orders o LEFT JOIN users u ON u.id = o.user_id`

// CreateOrder inserts the order header. Lines are added with CreateOrderItem.
func (q *Queries) CreateOrder(ctx context.Context, order *domain.Order) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	addrJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}

	query := `INSERT INTO orders (id, user_id, shipping_address, payment_method, items_price, shipping_price, tax_price, total_price, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	          RETURNING created_at`

	err = q.db.QueryRowContext(ctx, query,
		order.ID,
		order.UserID,
		addrJSON,
		order.PaymentMethod,
		order.ItemsPrice,
		order.ShippingPrice,
		order.TaxPrice,
		order.TotalPrice,
	).Scan(&order.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (q *Queries) CreateOrderItem(ctx context.Context, item domain.OrderItem) error {
	query := `INSERT INTO order_items (order_id, product_id, name, slug, image, price, qty, position)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := q.db.ExecContext(ctx, query,
		item.OrderID,
		item.ProductID,
		item.Name,
		item.Slug,
		item.Image,
		item.Price,
		item.Qty,
		item.Position)
	if err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

// GetOrderByID returns the order with its lines and the buyer's name.
func (q *Queries) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	if !validID(id) {
		return nil, domain.ErrOrderNotFound
	}
	order, err := scanOrder(q.db.QueryRowContext(ctx, `SELECT `+orderColumns+orderFrom+` WHERE o.id = $1`, id))
	if err != nil {
		return nil, err
	}
	if order.Items, err = q.orderItems(ctx, id); err != nil {
		return nil, err
	}
	return order, nil
}

// LockOrder loads the order with its lines and holds a row lock on it until
// the surrounding transaction ends.
func (q *Queries) LockOrder(ctx context.Context, id string) (*domain.Order, error) {
	if !validID(id) {
		return nil, domain.ErrOrderNotFound
	}
	order, err := scanOrder(q.db.QueryRowContext(ctx, `SELECT `+orderColumns+orderFrom+` WHERE o.id = $1 FOR UPDATE OF o`, id))
	if err != nil {
		return nil, err
	}
	if order.Items, err = q.orderItems(ctx, id); err != nil {
		return nil, err
	}
	return order, nil
}

func (q *Queries) SetPaymentResult(ctx context.Context, id string, result domain.PaymentResult) error {
	if !validID(id) {
		return domain.ErrOrderNotFound
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal payment result: %w", err)
	}
	res, err := q.db.ExecContext(ctx, `UPDATE orders SET payment_result = $2 WHERE id = $1`, id, resultJSON)
	if err != nil {
		return fmt.Errorf("set payment result: %w", err)
	}
	return expectOne(res, domain.ErrOrderNotFound)
}

// MarkOrderPaid flips the paid flag. It only touches unpaid orders, so a second
// call for the same order reports ErrAlreadyPaid.
func (q *Queries) MarkOrderPaid(ctx context.Context, id string, paidAt time.Time, result domain.PaymentResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal payment result: %w", err)
	}
	res, err := q.db.ExecContext(ctx,
		`UPDATE orders SET is_paid = TRUE, paid_at = $2, payment_result = $3 WHERE id = $1 AND NOT is_paid`,
		id, paidAt, resultJSON)
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	return expectOne(res, domain.ErrAlreadyPaid)
}

func (q *Queries) ListOrdersByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Order, int, error) {
	if !validID(userID) {
		return []*domain.Order{}, 0, nil
	}

	var count int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+orderColumns+orderFrom+` WHERE o.user_id = $1 ORDER BY o.created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query orders by user id: %w", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, count, nil
}

func (q *Queries) ListOrders(ctx context.Context, limit, offset int) ([]*domain.Order, int, error) {
	var count int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+orderColumns+orderFrom+` ORDER BY o.created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query orders: %w", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, count, nil
}

// GetOrderSummary aggregates the admin dashboard figures. Monthly buckets are
// keyed MM/YY in chronological order.
func (q *Queries) GetOrderSummary(ctx context.Context) (*domain.OrderSummary, error) {
	var s domain.OrderSummary
	err := q.db.QueryRowContext(ctx, `SELECT
	        (SELECT COUNT(*) FROM orders),
	        (SELECT COUNT(*) FROM products),
	        (SELECT COUNT(*) FROM users),
	        (SELECT COALESCE(SUM(total_price), 0)::numeric(12, 2) FROM orders)`,
	).Scan(&s.OrdersCount, &s.ProductsCount, &s.UsersCount, &s.TotalSales)
	if err != nil {
		return nil, fmt.Errorf("query summary counts: %w", err)
	}

	rows, err := q.db.QueryContext(ctx, `SELECT to_char(created_at, 'MM/YY') AS month, SUM(total_price)::numeric(12, 2)
	          FROM orders GROUP BY month ORDER BY MIN(created_at)`)
	if err != nil {
		return nil, fmt.Errorf("query monthly sales: %w", err)
	}
	defer rows.Close()

	s.SalesData = []domain.MonthlySales{}
	for rows.Next() {
		var m domain.MonthlySales
		if err := rows.Scan(&m.Month, &m.TotalSales); err != nil {
			return nil, fmt.Errorf("scan monthly sales: %w", err)
		}
		s.SalesData = append(s.SalesData, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	latest, err := q.db.QueryContext(ctx, `SELECT `+orderColumns+orderFrom+` ORDER BY o.created_at DESC LIMIT 6`)
	if err != nil {
		return nil, fmt.Errorf("query latest sales: %w", err)
	}
	if s.LatestSales, err = collectOrders(latest); err != nil {
		return nil, err
	}
	return &s, nil
}

func (q *Queries) orderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT order_id, product_id, name, slug, image, price, qty, position FROM order_items WHERE order_id = $1 ORDER BY position, name`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.OrderID, &it.ProductID, &it.Name, &it.Slug, &it.Image, &it.Price, &it.Qty, &it.Position); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var addrJSON, resultJSON []byte
	var paidAt sql.NullTime
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.UserName,
		&addrJSON,
		&o.PaymentMethod,
		&resultJSON,
		&o.ItemsPrice,
		&o.ShippingPrice,
		&o.TaxPrice,
		&o.TotalPrice,
		&o.IsPaid,
		&paidAt,
		&o.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if err := json.Unmarshal(addrJSON, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	if resultJSON != nil {
		var pr domain.PaymentResult
		if err := json.Unmarshal(resultJSON, &pr); err != nil {
			return nil, fmt.Errorf("unmarshal payment result: %w", err)
		}
		o.PaymentResult = &pr
	}
	if paidAt.Valid {
		t := paidAt.Time
		o.PaidAt = &t
	}
	return &o, nil
}

func collectOrders(rows *sql.Rows) ([]*domain.Order, error) {
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return orders, nil
}
