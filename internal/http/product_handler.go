package http

import (
	"context"
	"net/http"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CatalogService interface {
	Latest(ctx context.Context) ([]*domain.Product, error)
	BySlug(ctx context.Context, slug string) (*domain.Product, error)
}

type ProductHandler struct {
	catalog CatalogService
}

func NewProductHandler(catalog CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// GET /api/v1/products/latest
func (h *ProductHandler) Latest(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Latest(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// GET /api/v1/products/{slug}
func (h *ProductHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.BySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}
