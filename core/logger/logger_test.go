package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/servicehub/core/logger"
)

func TestNewProductionWritesJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithProduction("hub"), logger.WithOutput(&buf))
	log.Debug("hidden")
	log.Info("order captured", logger.OrderID("o-1"), logger.Error(nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "order captured", entry["msg"])
	assert.Equal(t, "hub", entry["service"])
	assert.Equal(t, "o-1", entry["order_id"])
	assert.NotContains(t, entry, "error")
}

func TestNewDevelopmentLogsDebug(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithDevelopment("hub"), logger.WithOutput(&buf))
	log.Debug("cart updated", logger.Component("cart"))

	assert.Contains(t, buf.String(), "cart updated")
	assert.Contains(t, buf.String(), "component=cart")
	assert.Contains(t, buf.String(), "env=development")
}

func TestErrorAttrs(t *testing.T) {
	t.Parallel()

	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
	assert.Equal(t, "error", logger.Error(errors.New("boom")).Key)

	attr := logger.Errors(errors.New("a"), nil, errors.New("b"))
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	assert.Len(t, attr.Value.Group(), 2)
	assert.True(t, logger.Errors(nil, nil).Equal(slog.Attr{}))
}

func TestIDAttrsOmitEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, logger.UserID("").Equal(slog.Attr{}))
	assert.Equal(t, slog.String("customer_id", "c1"), logger.CustomerID("c1"))
	assert.True(t, logger.RetryCount(0).Equal(slog.Attr{}))
	assert.Equal(t, int64(1), logger.RetryCount(1).Value.Int64())
}
