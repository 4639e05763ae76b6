package middleware

import (
	"context"
	"net/http"

	"github.com/frahmantamala/document-management/pkg/logger"

	chimw "github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
)

// RequestID assigns every request a trace id, honoring one supplied by an
// upstream proxy. The id is stored where chi's GetReqID finds it, attached
// to the request-scoped logger, and echoed back to the caller.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), chimw.RequestIDKey, traceID)
		ctx = logger.With(ctx, "trace_id", traceID)

		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
