package interceptors

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/Novip1906/tasks-api/internal/contextkeys"
)

// RequestIDKey is the incoming metadata key a caller may use to pass
// its own request id.
const RequestIDKey = "x-request-id"

func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		requestID := incomingRequestID(ctx)

		log := logger.With(
			slog.String("method", info.FullMethod),
			slog.String("request_id", requestID),
		)

		ctx = contextkeys.WithLogger(ctx, log)
		ctx = contextkeys.WithRequestID(ctx, requestID)

		log.Debug("request started")

		resp, err := handler(ctx, req)

		attributes := []any{
			slog.Duration("duration", time.Since(start)),
			slog.String("status", status.Code(err).String()),
		}

		if err != nil {
			attributes = append(attributes, slog.String("error", err.Error()))
			log.Error("request failed", attributes...)
		} else {
			log.Debug("request completed", attributes...)
		}

		return resp, err
	}
}

func incomingRequestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(RequestIDKey); len(ids) > 0 && ids[0] != "" {
			return ids[0]
		}
	}
	return uuid.NewString()
}
