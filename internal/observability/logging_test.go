package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakmund/fable/internal/config"
)

func TestNewLogger_JSON(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("test message")
}

func TestNewLogger_Console(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Equal(t, "fable", logger.Name())
}

func TestNewLogger_BadLevel(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "verbose", Format: "json"})
	assert.Error(t, err)
}

func TestNewLogger_BadFormat(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
