package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContextReturnsAttachedLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core).Sugar()

	ctx := WithLogger(context.Background(), logger)
	FromContext(ctx).Infow("built", "windows", 3)

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "built", entries[0].Message)
	assert.Equal(t, int64(3), entries[0].ContextMap()["windows"])
}

func TestFromContextFallback(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}

func TestNewLoggerLevels(t *testing.T) {
	t.Setenv("ECGPREP_DEBUG", "")
	assert.False(t, NewLogger(false).Desugar().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, NewLogger(true).Desugar().Core().Enabled(zapcore.DebugLevel))
}
