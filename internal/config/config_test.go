package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("OUTBOX_INTERVAL", "")

	cfg := Load("does-not-exist.env")

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Nil(t, cfg.KafkaBrokers)
	assert.Equal(t, time.Second, cfg.OutboxInterval)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("RECONCILE_INTERVAL", "30s")

	cfg := Load("does-not-exist.env")

	assert.Equal(t, "9090", cfg.AppPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Second, cfg.ReconcileInterval)
}

func TestGetInt_Invalid(t *testing.T) {
	t.Setenv("SMTP_PORT", "abc")
	assert.Equal(t, 587, GetInt("SMTP_PORT", 587))
}
