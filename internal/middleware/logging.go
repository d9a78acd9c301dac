package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Novip1906/tasks-api/internal/contextkeys"
)

// LoggingMiddleware attaches a request-scoped logger to the context and
// logs every request once it completes.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID, _ := contextkeys.GetRequestID(r.Context())

			log := logger.With(
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("request_id", requestID),
			)
			ctx := contextkeys.WithLogger(r.Context(), log)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			attributes := []any{
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)),
			}
			if status >= http.StatusInternalServerError {
				log.Error("request failed", attributes...)
			} else {
				log.Info("request completed", attributes...)
			}
		})
	}
}
