package logging_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/autodoc/internal/logging"
)

func TestNew(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		level    string
		expected log.Level
	}{
		{"debug level", "debug", log.DebugLevel},
		{"info level", "info", log.InfoLevel},
		{"warning alias", "warning", log.WarnLevel},
		{"error level", "error", log.ErrorLevel},
		{"invalid defaults to info", "loud", log.InfoLevel},
		{"case insensitive", "DEBUG", log.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			logger := logging.New(tt.level)
			require.NotNil(t, logger)
			assert.Equal(t, tt.expected, logger.GetLevel())
		})
	}
}

func TestValidLevel(t *testing.T) {
	t.Parallel()
	assert.True(t, logging.ValidLevel("Warn"))
	assert.False(t, logging.ValidLevel("trace"))
	assert.False(t, logging.ValidLevel(""))
}

func TestSetLevel(t *testing.T) {
	original := logging.Default()
	defer logging.SetDefault(original)

	logging.SetDefault(logging.New("info"))
	logging.SetLevel("debug")
	assert.Equal(t, log.DebugLevel, logging.Default().GetLevel())
}

func TestContext(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "debug")

	ctx := logging.WithLogger(context.Background(), logger)
	assert.Same(t, logger, logging.FromContext(ctx))
	assert.NotNil(t, logging.FromContext(context.Background()))

	logging.FromContext(ctx).Debug("built", logging.FieldDecls, 3)
	assert.Contains(t, buf.String(), "decls=3")
}
