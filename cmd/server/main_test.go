package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"transwise/internal/config"
)

func TestRun_ReturnsStartupErrors(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{CounterBackend: config.BackendMemory, BookingBackend: "cassandra"}}

	err := run(cfg, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open stores")
	assert.Contains(t, err.Error(), "cassandra")
}
