package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, slog.LevelInfo, "json")

	log.Debug("hidden")
	log.Error("db failed", DbErr("GetTask", errors.New("boom")))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "db failed", line["msg"])

	db, ok := line["db"].(map[string]any)
	require.True(t, ok, "db group missing: %s", buf.String())
	assert.Equal(t, "GetTask", db["method"])
	assert.Equal(t, "boom", db["error"])
}

func TestErrAttr(t *testing.T) {
	attr := Err(errors.New("bad thing"))
	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, "bad thing", attr.Value.String())
}

func TestSetupLoggerSetsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	log := SetupLogger(slog.LevelWarn, "json")
	assert.Same(t, log, slog.Default())
	assert.False(t, log.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, log.Enabled(context.Background(), slog.LevelWarn))
}
