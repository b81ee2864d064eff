package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTraceIDContext(t *testing.T) {
	t.Run("adds provided trace ID to context", func(t *testing.T) {
		ctx := WithTraceID(context.Background(), "test-trace-123")
		require.NotNil(t, ctx)
		assert.Equal(t, "test-trace-123", GetTraceID(ctx))
	})

	t.Run("generates new trace ID when empty string provided", func(t *testing.T) {
		ctx := WithTraceID(context.Background(), "")
		require.NotNil(t, ctx)

		traceID := GetTraceID(ctx)
		assert.NotEmpty(t, traceID)
		// UUID format: 36 characters with hyphens
		assert.Len(t, traceID, 36)
	})

	t.Run("returns empty string when no trace ID present", func(t *testing.T) {
		assert.Empty(t, GetTraceID(context.Background()))
	})
}

func TestNewTraceID(t *testing.T) {
	a := NewTraceID()
	b := NewTraceID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
