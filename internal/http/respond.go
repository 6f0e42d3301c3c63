package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/logger"
	"github.com/rs/zerolog/log"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// respondResult writes an operation outcome. Soft failures are a normal
// response with success=false.
func respondResult(w http.ResponseWriter, res domain.Result) {
	respondJSON(w, http.StatusOK, res)
}

// respondError maps err to its user-facing result and HTTP status.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	res := domain.FailureResult(err)
	status := statusFor(res.Reason)
	if status >= http.StatusInternalServerError {
		l := logger.FromContext(r.Context())
		l.Error().Err(err).Str("reason", string(res.Reason)).Msg("request failed")
	}
	respondJSON(w, status, res)
}

func statusFor(reason domain.Reason) int {
	switch reason {
	case domain.ReasonValidation, domain.ReasonSessionMissing:
		return http.StatusBadRequest
	case domain.ReasonUnauthenticated:
		return http.StatusUnauthorized
	case domain.ReasonForbidden:
		return http.StatusForbidden
	case domain.ReasonNotFound:
		return http.StatusNotFound
	case domain.ReasonInsufficientStock, domain.ReasonAlreadyPaid:
		return http.StatusConflict
	case domain.ReasonPaymentVerification:
		return http.StatusUnprocessableEntity
	case domain.ReasonPaymentProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ValidationError("body", "is not valid JSON")
	}
	return nil
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
