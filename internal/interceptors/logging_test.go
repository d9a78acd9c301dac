package interceptors

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/Novip1906/tasks-api/internal/contextkeys"
	"github.com/Novip1906/tasks-api/pkg/logging"
)

var info = &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

func TestLoggingInterceptorSetsContext(t *testing.T) {
	var buf bytes.Buffer
	intercept := LoggingInterceptor(logging.NewLogger(&buf, slog.LevelDebug, "json"))

	var gotID string
	resp, err := intercept(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
		id, ok := contextkeys.GetRequestID(ctx)
		require.True(t, ok)
		gotID = id
		contextkeys.GetLogger(ctx).Info("inside")
		return "resp", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "resp", resp)
	assert.NotEmpty(t, gotID)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	for _, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Equal(t, gotID, entry["request_id"])
		assert.Equal(t, info.FullMethod, entry["method"])
	}
}

func TestLoggingInterceptorUsesIncomingRequestID(t *testing.T) {
	intercept := LoggingInterceptor(logging.NewLogger(&bytes.Buffer{}, slog.LevelInfo, "text"))
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(RequestIDKey, "abc-123"))

	_, err := intercept(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
		id, _ := contextkeys.GetRequestID(ctx)
		assert.Equal(t, "abc-123", id)
		return nil, nil
	})
	require.NoError(t, err)
}

func TestLoggingInterceptorLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	intercept := LoggingInterceptor(logging.NewLogger(&buf, slog.LevelInfo, "json"))

	_, err := intercept(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.Unavailable, "storage down")
	})
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(err))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "request failed", entry["msg"])
	assert.Equal(t, "Unavailable", entry["status"])
	assert.Contains(t, entry["error"], "storage down")
}
