package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"warden/internal/domain"
	"warden/internal/service/security"
)

type userKey struct{}

// WithUser stores the authenticated user ID in the context.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFromContext extracts the authenticated user ID from the context.
func UserFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userKey{}).(string)
	return userID, ok
}

// AuthConfig configures the session authentication middleware.
type AuthConfig struct {
	Tokens *security.TokenService
	// ResolveCertificate maps a verified client certificate CN to a user ID
	// when a request carries no bearer token. nil disables certificate
	// authentication.
	ResolveCertificate func(ctx context.Context, cn string) (string, error)
}

// Auth authenticates requests via the Authorization bearer token, falling
// back to the client certificate when configured. A request that proves
// neither gets 403 before any handler runs; 401 is reserved for login
// endpoints, which sit outside this middleware.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if header := r.Header.Get("Authorization"); header != "" {
				scheme, token, ok := strings.Cut(header, " ")
				if !ok || !strings.EqualFold(scheme, "Bearer") {
					writeErrors(w, http.StatusForbidden, "malformed authorization header")
					return
				}
				userID, err := cfg.Tokens.Validate(r.Context(), token)
				if err != nil {
					writeAuthFailure(w, err)
					return
				}
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
				return
			}

			if cfg.ResolveCertificate != nil {
				if cn := security.ClientCertCN(r); cn != "" {
					userID, err := cfg.ResolveCertificate(r.Context(), cn)
					if err != nil {
						writeAuthFailure(w, err)
						return
					}
					next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
					return
				}
			}

			writeErrors(w, http.StatusForbidden, "missing session token")
		})
	}
}

// writeAuthFailure distinguishes denials from backend faults: only a genuine
// denial may claim 403.
func writeAuthFailure(w http.ResponseWriter, err error) {
	var denied *domain.AccessDeniedError
	var notFound *domain.NotFoundError
	switch {
	case errors.As(err, &denied):
		writeErrors(w, http.StatusForbidden, denied.Message)
	case errors.As(err, &notFound):
		writeErrors(w, http.StatusForbidden, "unknown identity")
	default:
		writeErrors(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeErrors(w http.ResponseWriter, status int, messages ...string) {
	if messages == nil {
		messages = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"errors": messages})
}
