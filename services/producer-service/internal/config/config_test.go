package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresFixedDelay(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler.fixed_delay_ms is required")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PRODUCER_SCHEDULER_FIXED_DELAY_MS", "60000")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.Scheduler.FixedDelay())
	assert.Equal(t, time.Duration(0), cfg.Scheduler.InitialDelay())
	assert.Equal(t, "http://localhost:8081", cfg.CRM.BaseURL)
	assert.Equal(t, "/customers", cfg.CRM.Path)
	assert.Equal(t, "http://localhost:8082", cfg.Inventory.BaseURL)
	assert.Equal(t, "/products", cfg.Inventory.Path)
	assert.Equal(t, 10*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.InitialDelay)
	assert.Equal(t, 2.0, cfg.Retry.Multiplier)
	assert.Equal(t, "customer_data", cfg.Topics.Customer)
	assert.Equal(t, "inventory_data", cfg.Topics.Inventory)
	assert.Equal(t, DriverKafka, cfg.Bus.Driver)
	assert.Equal(t, "localhost:9092", cfg.Kafka.Brokers)
	assert.False(t, cfg.Lease.Enabled())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PRODUCER_SCHEDULER_FIXED_DELAY_MS", "1000")
	t.Setenv("PRODUCER_CRM_BASE_URL", "http://crm:9000")
	t.Setenv("PRODUCER_RETRY_INITIAL_DELAY", "250ms")
	t.Setenv("PRODUCER_BUS_DRIVER", "nats")
	t.Setenv("PRODUCER_LEASE_REDIS_ADDR", "redis:6379")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Scheduler.FixedDelay())
	assert.Equal(t, "http://crm:9000", cfg.CRM.BaseURL)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialDelay)
	assert.Equal(t, DriverNATS, cfg.Bus.Driver)
	assert.True(t, cfg.Lease.Enabled())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "producer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scheduler:
  fixed_delay_ms: 5000
inventory:
  base_url: http://inventory:8082
topics:
  inventory: inventory_data_v2
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Scheduler.FixedDelay())
	assert.Equal(t, "http://inventory:8082", cfg.Inventory.BaseURL)
	assert.Equal(t, "inventory_data_v2", cfg.Topics.Inventory)
	assert.Equal(t, "customer_data", cfg.Topics.Customer)
}

func TestValidate(t *testing.T) {
	t.Setenv("PRODUCER_SCHEDULER_FIXED_DELAY_MS", "0")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be > 0")

	t.Setenv("PRODUCER_SCHEDULER_FIXED_DELAY_MS", "100")
	t.Setenv("PRODUCER_BUS_DRIVER", "rabbitmq")
	_, err = Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bus.driver")
}
