package http

import (
	"context"
	"net/http"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type AdminOrders interface {
	ListAllOrders(ctx context.Context, page int) (domain.Page[*domain.Order], error)
	Summary(ctx context.Context) (*domain.OrderSummary, error)
	Captures(ctx context.Context, orderID string) ([]domain.CaptureRecord, error)
}

type AdminUsers interface {
	List(ctx context.Context, query string, page int) (domain.Page[*domain.User], error)
	Update(ctx context.Context, userID, name, role string) (domain.Result, error)
	Delete(ctx context.Context, userID string) (domain.Result, error)
}

type AdminProducts interface {
	List(ctx context.Context, query string, page int) (domain.Page[*domain.Product], error)
	Create(ctx context.Context, p *domain.Product) (domain.Result, error)
	Update(ctx context.Context, p *domain.Product) (domain.Result, error)
	Delete(ctx context.Context, id string) (domain.Result, error)
}

// AdminHandler serves the admin area. Routes are mounted behind RequireAdmin.
type AdminHandler struct {
	orders   AdminOrders
	users    AdminUsers
	products AdminProducts
}

func NewAdminHandler(orders AdminOrders, users AdminUsers, products AdminProducts) *AdminHandler {
	return &AdminHandler{orders: orders, users: users, products: products}
}

type UpdateUserDTO struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

func (h *AdminHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.orders.Summary(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, err := h.orders.ListAllOrders(r.Context(), pageParam(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *AdminHandler) OrderCaptures(w http.ResponseWriter, r *http.Request) {
	recs, err := h.orders.Captures(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, recs)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := h.users.List(r.Context(), r.URL.Query().Get("query"), pageParam(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := h.users.Update(r.Context(), chi.URLParam(r, "id"), req.Name, req.Role)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondResult(w, res)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	res, err := h.users.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondResult(w, res)
}

func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, err := h.products.List(r.Context(), r.URL.Query().Get("query"), pageParam(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := decodeJSON(r, &p); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := h.products.Create(r.Context(), &p)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := decodeJSON(r, &p); err != nil {
		respondError(w, r, err)
		return
	}
	p.ID = chi.URLParam(r, "id")

	res, err := h.products.Update(r.Context(), &p)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondResult(w, res)
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	res, err := h.products.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondResult(w, res)
}
