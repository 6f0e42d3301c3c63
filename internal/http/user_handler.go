package http

import (
	"context"
	"net/http"

	"github.com/fjod/go_storefront/internal/domain"
)

type UserService interface {
	Me(ctx context.Context, id domain.Identity) (*domain.User, error)
	UpdateProfile(ctx context.Context, id domain.Identity, name string) (domain.Result, error)
	UpdateAddress(ctx context.Context, id domain.Identity, addr domain.ShippingAddress) (domain.Result, error)
	UpdatePaymentMethod(ctx context.Context, id domain.Identity, method string) (domain.Result, error)
}

type UserHandler struct {
	users UserService
}

func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

type ProfileDTO struct {
	Name string `json:"name"`
}

type PaymentMethodDTO struct {
	Type string `json:"type"`
}

// GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Me(r.Context(), identityFromContext(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, u)
}

// PUT /api/v1/users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := h.users.UpdateProfile(r.Context(), identityFromContext(r.Context()), req.Name)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondResult(w, res)
}

// PUT /api/v1/users/me/address
func (h *UserHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	var addr domain.ShippingAddress
	if err := decodeJSON(r, &addr); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := h.users.UpdateAddress(r.Context(), identityFromContext(r.Context()), addr)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondResult(w, res)
}

// PUT /api/v1/users/me/payment-method
func (h *UserHandler) UpdatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req PaymentMethodDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := h.users.UpdatePaymentMethod(r.Context(), identityFromContext(r.Context()), req.Type)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondResult(w, res)
}
