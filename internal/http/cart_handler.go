package http

import (
	"context"
	"net/http"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CartService interface {
	GetCart(ctx context.Context, id domain.Identity) (*domain.Cart, error)
	AddItem(ctx context.Context, id domain.Identity, item domain.CartItem) (domain.Result, error)
	RemoveItem(ctx context.Context, id domain.Identity, productID string) (domain.Result, error)
}

type CartHandler struct {
	carts CartService
}

func NewCartHandler(carts CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.GetCart(r.Context(), identityFromContext(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var item domain.CartItem
	if err := decodeJSON(r, &item); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := h.carts.AddItem(r.Context(), identityFromContext(r.Context()), item)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondResult(w, res)
}

// DELETE /api/v1/cart/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	res, err := h.carts.RemoveItem(r.Context(), identityFromContext(r.Context()), productID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondResult(w, res)
}
