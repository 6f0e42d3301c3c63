package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const productColumns = `id, name, slug, category, brand, description, images, price, stock,
	rating, num_reviews, is_featured, banner, created_at`

func (q *Queries) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	if !validID(id) {
		return nil, domain.ErrProductNotFound
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return scanProduct(q.db.QueryRowContext(ctx, query, id))
}

func (q *Queries) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE slug = $1`
	return scanProduct(q.db.QueryRowContext(ctx, query, slug))
}

func (q *Queries) ListLatestProducts(ctx context.Context, limit int) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC LIMIT $1`

	rows, err := q.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query latest products: %w", err)
	}
	return collectProducts(rows)
}

// ListProducts returns one page of products whose name contains query, and the
// total number of matches.
func (q *Queries) ListProducts(ctx context.Context, query string, limit, offset int) ([]*domain.Product, int, error) {
	pattern := containsPattern(query)

	var count int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE name ILIKE $1 ESCAPE '\'`, pattern).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE name ILIKE $1 ESCAPE '\' ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query products: %w", err)
	}
	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, count, nil
}

func (q *Queries) CreateProduct(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Rating == "" {
		p.Rating = "0"
	}

	query := `INSERT INTO products (id, name, slug, category, brand, description, images, price, stock, rating, num_reviews, is_featured, banner, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
	          RETURNING created_at`

	err := q.db.QueryRowContext(ctx, query,
		p.ID,
		p.Name,
		p.Slug,
		p.Category,
		p.Brand,
		p.Description,
		pq.Array(p.Images),
		p.Price,
		p.Stock,
		p.Rating,
		p.NumReviews,
		p.IsFeatured,
		p.Banner,
	).Scan(&p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (q *Queries) UpdateProduct(ctx context.Context, p *domain.Product) error {
	if !validID(p.ID) {
		return domain.ErrProductNotFound
	}

	query := `UPDATE products
	          SET name = $2, slug = $3, category = $4, brand = $5, description = $6, images = $7,
	              price = $8, stock = $9, is_featured = $10, banner = $11
	          WHERE id = $1`

	res, err := q.db.ExecContext(ctx, query,
		p.ID,
		p.Name,
		p.Slug,
		p.Category,
		p.Brand,
		p.Description,
		pq.Array(p.Images),
		p.Price,
		p.Stock,
		p.IsFeatured,
		p.Banner,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("update product: %w", err)
	}
	return expectOne(res, domain.ErrProductNotFound)
}

func (q *Queries) DeleteProduct(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrProductNotFound
	}
	res, err := q.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return expectOne(res, domain.ErrProductNotFound)
}

// AdjustStock adds delta to the product stock. The result may go negative.
func (q *Queries) AdjustStock(ctx context.Context, productID string, delta int) error {
	if !validID(productID) {
		return domain.ErrProductNotFound
	}
	res, err := q.db.ExecContext(ctx, `UPDATE products SET stock = stock + $2 WHERE id = $1`, productID, delta)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}
	return expectOne(res, domain.ErrProductNotFound)
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var banner sql.NullString
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Category,
		&p.Brand,
		&p.Description,
		pq.Array(&p.Images),
		&p.Price,
		&p.Stock,
		&p.Rating,
		&p.NumReviews,
		&p.IsFeatured,
		&banner,
		&p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan product: %w", err)
	}
	if banner.Valid {
		p.Banner = &banner.String
	}
	return &p, nil
}

func collectProducts(rows *sql.Rows) ([]*domain.Product, error) {
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
