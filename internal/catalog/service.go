package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/pricing"
	"github.com/rs/zerolog"
)

type Store interface {
	GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	ListLatestProducts(ctx context.Context, limit int) ([]*domain.Product, error)
	ListProducts(ctx context.Context, query string, limit, offset int) ([]*domain.Product, int, error)
	CreateProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, p *domain.Product) error
	DeleteProduct(ctx context.Context, id string) error
}

type Config struct {
	LatestLimit int
	PageSize    int
}

type Service struct {
	store Store
	cfg   Config
	log   zerolog.Logger
}

func NewService(store Store, cfg Config, log zerolog.Logger) *Service {
	if cfg.LatestLimit <= 0 {
		cfg.LatestLimit = 4
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	return &Service{
		store: store,
		cfg:   cfg,
		log:   log.With().Str("component", "catalog").Logger(),
	}
}

func (s *Service) Latest(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.store.ListLatestProducts(ctx, s.cfg.LatestLimit)
	if err != nil {
		return nil, fmt.Errorf("latest products: %w", err)
	}
	return products, nil
}

func (s *Service) BySlug(ctx context.Context, slug string) (*domain.Product, error) {
	p, err := s.store.GetProductBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, query string, page int) (domain.Page[*domain.Product], error) {
	if query == "all" {
		query = ""
	}
	if page < 1 {
		page = 1
	}
	products, count, err := s.store.ListProducts(ctx, query, s.cfg.PageSize, (page-1)*s.cfg.PageSize)
	if err != nil {
		return domain.Page[*domain.Product]{}, fmt.Errorf("list products: %w", err)
	}
	return domain.Page[*domain.Product]{Data: products, TotalPages: domain.TotalPages(count, s.cfg.PageSize)}, nil
}

func (s *Service) Create(ctx context.Context, p *domain.Product) (domain.Result, error) {
	if err := ValidateProduct(p); err != nil {
		return domain.Result{}, err
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return domain.Result{}, fmt.Errorf("create product: %w", err)
	}
	s.log.Info().Str("product_id", p.ID).Str("slug", p.Slug).Msg("product created")
	res := domain.OK("Product created successfully")
	res.Data = p
	return res, nil
}

func (s *Service) Update(ctx context.Context, p *domain.Product) (domain.Result, error) {
	if err := ValidateProduct(p); err != nil {
		return domain.Result{}, err
	}
	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return domain.Result{}, fmt.Errorf("update product: %w", err)
	}
	return domain.OK("Product updated successfully"), nil
}

func (s *Service) Delete(ctx context.Context, id string) (domain.Result, error) {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return domain.Result{}, fmt.Errorf("delete product: %w", err)
	}
	s.log.Info().Str("product_id", id).Msg("product deleted")
	return domain.OK("Product deleted successfully"), nil
}

// ValidateProduct checks an admin-submitted product and normalises its price
// to two decimal places.
func ValidateProduct(p *domain.Product) error {
	text := []struct{ field, value string }{
		{"name", p.Name},
		{"slug", p.Slug},
		{"category", p.Category},
		{"brand", p.Brand},
		{"description", p.Description},
	}
	for _, f := range text {
		if len(strings.TrimSpace(f.value)) < 3 {
			return domain.ValidationError(f.field, "must be at least 3 characters")
		}
	}
	if len(p.Images) == 0 {
		return domain.ValidationError("images", "product must have at least one image")
	}
	price, err := pricing.NormalizeCurrency(p.Price)
	if err != nil {
		return domain.ValidationError("price", "must have exactly two decimal places")
	}
	if p.Stock < 0 {
		return domain.ValidationError("stock", "must not be negative")
	}
	p.Price = price
	return nil
}
