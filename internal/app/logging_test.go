package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LogConfig{Level: "info", Format: LogFormatJSON}, &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("GetCarts called", "user", "Megan Bowen")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), "exactly one JSON line: %s", buf.String())
	assert.Equal(t, "GetCarts called", line["msg"])
	assert.Equal(t, "Megan Bowen", line["user"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LogConfig{Level: "debug", Format: "TEXT"}, &buf)
	require.NoError(t, err)

	logger.Debug("making a random cart", "cart_items", 3)
	assert.Contains(t, buf.String(), "making a random cart")
	assert.Contains(t, buf.String(), "cart_items")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())), "text output is not JSON")
}

func TestNewLogger_BadLevel(t *testing.T) {
	_, err := NewLogger(LogConfig{Level: "chatty"}, &bytes.Buffer{})
	assert.Error(t, err)
}
