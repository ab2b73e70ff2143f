package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("INVOICE_DEFAULT_TAX_RATE", "not-a-number")

	cfg := Load()

	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, SequenceBackendNone, cfg.Invoice.SequenceBackend)
	assert.Equal(t, 10.0, cfg.Invoice.DefaultTaxRate)
	assert.Equal(t, "numbering.yml", cfg.Invoice.NumberingFile)
}

func TestLoadSequenceBackend(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "postgres")
	assert.Equal(t, SequenceBackendPostgres, Load().Invoice.SequenceBackend)

	t.Setenv("INVOICE_SEQUENCE_BACKEND", "REDIS")
	assert.Equal(t, SequenceBackendRedis, Load().Invoice.SequenceBackend)

	t.Setenv("INVOICE_SEQUENCE_BACKEND", "etcd")
	assert.Equal(t, SequenceBackendNone, Load().Invoice.SequenceBackend)
}

func TestInvoiceLocation(t *testing.T) {
	assert.Equal(t, time.Local, InvoiceConfig{Timezone: "Local"}.Location())
	assert.Equal(t, time.Local, InvoiceConfig{Timezone: "Nowhere/Invalid"}.Location())
	assert.Equal(t, "UTC", InvoiceConfig{Timezone: "UTC"}.Location().String())
}

func TestLoadScheduler(t *testing.T) {
	cfg := Load()
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, time.Hour, cfg.Scheduler.RunInterval)

	t.Setenv("SCHEDULER_ENABLED", "false")
	t.Setenv("SCHEDULER_RUN_INTERVAL", "15m")
	t.Setenv("SCHEDULER_BATCH_SIZE", "25")
	cfg = Load()
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.RunInterval)
	assert.Equal(t, 25, cfg.Scheduler.BatchSize)

	t.Setenv("SCHEDULER_RUN_INTERVAL", "-1s")
	assert.Equal(t, time.Hour, Load().Scheduler.RunInterval)
}
