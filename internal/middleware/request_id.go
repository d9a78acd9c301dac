package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Novip1906/tasks-api/internal/contextkeys"
)

const RequestIDHeader = "X-Request-Id"

// RequestID reuses the caller's X-Request-Id or generates one, and puts
// it on the context and the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := contextkeys.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
