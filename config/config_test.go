package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_NATSServers(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")

	t.Run("unset disables event publishing", func(t *testing.T) {
		t.Setenv("NATS_SERVERS", "")
		cfg, err := load()
		require.NoError(t, err)
		assert.Empty(t, cfg.NATSServers)
	})

	t.Run("set is passed through", func(t *testing.T) {
		t.Setenv("NATS_SERVERS", "nats://localhost:4222")
		cfg, err := load()
		require.NoError(t, err)
		assert.Equal(t, "nats://localhost:4222", cfg.NATSServers)
	})
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")

	cfg, err := load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.DedupWindow)
	assert.Equal(t, 5*time.Minute, cfg.AccrualPeriod)
	assert.Equal(t, int64(288), cfg.MaxCatchUpWindows)
	require.Len(t, cfg.ReferralRates, 3)
	assert.True(t, cfg.ReferralRates[0].Equal(decimal.RequireFromString("0.05")))
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")

	t.Run("negative referral rate", func(t *testing.T) {
		t.Setenv("REFERRAL_RATES", "0.05,-0.02")
		_, err := load()
		assert.Error(t, err)
	})

	t.Run("bad accrual period", func(t *testing.T) {
		t.Setenv("ACCRUAL_PERIOD", "soon")
		_, err := load()
		assert.Error(t, err)
	})
}
