package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "HOLD_TTL_SECONDS", "SWEEP_INTERVAL_SECONDS", "BROADCAST_DELAY_MS", "USE_KAFKA", "CATALOG_DRIVER"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.HoldTTL)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 100*time.Millisecond, cfg.BroadcastDelay)
	assert.Equal(t, "sqlite", cfg.CatalogDriver)
	assert.False(t, cfg.UseKafka)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("HOLD_TTL_SECONDS", "60")
	t.Setenv("BROADCAST_DELAY_MS", "250")
	t.Setenv("USE_KAFKA", "true")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092")
	t.Setenv("CATALOG_DRIVER", "Postgres")
	t.Setenv("SESSION_BUFFER", "not-a-number")

	cfg := Load()

	assert.Equal(t, time.Minute, cfg.HoldTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.BroadcastDelay)
	assert.True(t, cfg.UseKafka)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "postgres", cfg.CatalogDriver)
	assert.Equal(t, 64, cfg.SessionBuffer)
}

func TestLoad_NonPositiveIntervalsFallBackToDefaults(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL_SECONDS", "0")
	t.Setenv("JWT_TTL_MINUTES", "-5")

	cfg := Load()

	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 10*time.Minute, cfg.JWTTTL)
}
