package observability

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

func TestEnsureCorrelationID(t *testing.T) {
	ctx := EnsureCorrelationID(context.Background())
	id := ExtractCorrelationID(ctx)
	assert.Len(t, id, 36)

	again := EnsureCorrelationID(ctx)
	assert.Equal(t, id, ExtractCorrelationID(again))
}

func TestLogInconsistent(t *testing.T) {
	var buf bytes.Buffer
	prev := GlobalLogger
	SetLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer func() { GlobalLogger = prev }()

	ctx := WithCorrelationID(context.Background(), "corr-1")
	LogInconsistent(ctx, "listing", 7, "likes_count", 1, errors.New("db down"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "INCONSISTENT", entry["code"])
	assert.Equal(t, "likes_count", entry["column"])
	assert.Equal(t, float64(7), entry["entity_id"])
	assert.Equal(t, "corr-1", entry["correlation_id"])
}
