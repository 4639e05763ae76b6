package middleware

import (
	"net/http"

	"github.com/frahmantamala/document-management/internal/auth"
	"github.com/frahmantamala/document-management/pkg/logger"
)

// UserContext tags the request-scoped logger with the authenticated caller.
// It runs after token validation; unauthenticated requests pass through
// untagged.
func UserContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := auth.UserFromContext(r.Context()); ok {
			r = r.WithContext(logger.With(r.Context(), "user_id", user.ID))
		}
		next.ServeHTTP(w, r)
	})
}
