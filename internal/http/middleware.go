package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/logger"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const (
	HeaderSessionCartID = "X-Session-Cart-Id"
	HeaderUserID        = "X-User-Id"
	HeaderUserRole      = "X-User-Role"
	CookieSessionCartID = "sessionCartId"
)

type identityKey struct{}

// IdentityMiddleware reads the caller identity set by the trusted web layer.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := domain.Identity{
			SessionCartID: r.Header.Get(HeaderSessionCartID),
			UserID:        r.Header.Get(HeaderUserID),
			Role:          r.Header.Get(HeaderUserRole),
		}
		if id.SessionCartID == "" {
			if c, err := r.Cookie(CookieSessionCartID); err == nil {
				id.SessionCartID = c.Value
			}
		}
		if id.Authenticated() && id.Role == "" {
			id.Role = domain.RoleUser
		}

		ctx := context.WithValue(r.Context(), identityKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFromContext(ctx context.Context) domain.Identity {
	id, _ := ctx.Value(identityKey{}).(domain.Identity)
	return id
}

// RequireAdmin rejects callers without the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := identityFromContext(r.Context())
		switch {
		case !id.Authenticated():
			respondError(w, r, domain.ErrUnauthenticated)
		case !id.IsAdmin():
			respondError(w, r, domain.ErrForbidden)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// RequestLogger stores a request-scoped logger in the context and logs every
// finished request.
func RequestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			reqLog := logger.WithTrace(r.Context(), log).With().
				Str("request_id", middleware.GetReqID(r.Context())).
				Logger()
			r = r.WithContext(reqLog.WithContext(r.Context()))

			defer func() {
				reqLog.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Msg("request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
