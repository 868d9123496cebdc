package app

import (
	"testing"
	"time"

	config "github.com/DRSN-tech/checkout-backend/internal/cfg"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp_InMemory(t *testing.T) {
	cfg := &config.Config{
		StorageDriver: config.StorageDriverMemory,
		Http: &config.HTTPConfig{
			Port:            "0",
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			IdleTimeout:     time.Second,
			ShutdownTimeout: time.Second,
		},
		Checkout: &config.CheckoutCfg{
			CommitTimeout: time.Second,
			MaxRetries:    1,
			RetryBase:     time.Millisecond,
			RetryMax:      time.Millisecond,
		},
		Outbox: &config.OutboxCfg{BatchSize: 10, PollInterval: time.Second},
	}

	a, err := NewApp(cfg, logger.NewDiscardLogger())
	require.NoError(t, err)

	assert.NotNil(t, a.httpSrv)
	assert.NotNil(t, a.worker)
	assert.Nil(t, a.consumer)
}
