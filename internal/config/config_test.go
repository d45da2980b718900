package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestBuild_CounterBackendDefaultsToDriver(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("STORE_DRIVER", "memory")
	viper.Set("COUNTER_BACKEND", "")
	cfg := build()

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "memory", cfg.Store.CounterBackend)
}

func TestBuild_CounterBackendOverride(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("STORE_DRIVER", "postgres")
	viper.Set("COUNTER_BACKEND", "redis")
	viper.Set("TX_MAX_RETRIES", 7)
	viper.Set("ALERT_CACHE_TTL_SECONDS", 120)
	cfg := build()

	assert.Equal(t, "redis", cfg.Store.CounterBackend)
	assert.Equal(t, 7, cfg.Store.TxMaxRetries)
	assert.Equal(t, 120, cfg.Cache.AlertsTTLSeconds)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "retailbill", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=retailbill sslmode=disable", cfg.DSN())
}
