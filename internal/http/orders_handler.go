package http

import (
	"context"
	"net/http"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type OrderService interface {
	CreateOrder(ctx context.Context, userID string) (domain.Result, error)
	GetOrder(ctx context.Context, id domain.Identity, orderID string) (*domain.Order, error)
	ListMyOrders(ctx context.Context, id domain.Identity, page int) (domain.Page[*domain.Order], error)
	CreatePaymentIntent(ctx context.Context, id domain.Identity, orderID string) (string, error)
	ApprovePayment(ctx context.Context, id domain.Identity, orderID, providerOrderRef string) (domain.Result, error)
}

type OrdersHandler struct {
	orders OrderService
}

func NewOrdersHandler(orders OrderService) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

type CaptureRequestDTO struct {
	OrderID string `json:"orderID"`
}

type PaymentIntentDTO struct {
	OrderID string `json:"orderID"`
}

// POST /api/v1/orders
func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	id := identityFromContext(r.Context())

	res, err := h.orders.CreateOrder(r.Context(), id.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondResult(w, res)
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, err := h.orders.ListMyOrders(r.Context(), identityFromContext(r.Context()), pageParam(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// GET /api/v1/orders/{id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.Context(), identityFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// POST /api/v1/orders/{id}/payment
func (h *OrdersHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	ref, err := h.orders.CreatePaymentIntent(r.Context(), identityFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, PaymentIntentDTO{OrderID: ref})
}

// POST /api/v1/orders/{id}/payment/capture
func (h *OrdersHandler) CapturePayment(w http.ResponseWriter, r *http.Request) {
	var req CaptureRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.OrderID == "" {
		respondError(w, r, domain.ValidationError("orderID", "is required"))
		return
	}

	res, err := h.orders.ApprovePayment(r.Context(), identityFromContext(r.Context()), chi.URLParam(r, "id"), req.OrderID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondResult(w, res)
}
