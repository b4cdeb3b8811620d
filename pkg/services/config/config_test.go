package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "steward.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		cfg, err := LoadConfig("")
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "memory", cfg.Store.Driver)
		assert.Equal(t, 45, cfg.Classification.DecommissionThresholdDays)
		assert.Equal(t, 14, cfg.Classification.ReviewThresholdDays)
		assert.Equal(t, []string{"prod-*", "production-*"}, cfg.ProtectedPatterns)
		assert.Equal(t, time.Hour, cfg.Discovery.Interval)
		assert.Equal(t, 3, cfg.Execution.RetryLimit)
		assert.True(t, cfg.Execution.AutoApproveMonitor)
	})

	t.Run("file values override defaults", func(t *testing.T) {
		path := writeConfig(t, `server:
  port: 9090
store:
  driver: duckdb
  path: /var/lib/steward/steward.db
classification:
  decommission_threshold_days: 60
protected_patterns:
  - "prod-*"
  - "shared-*"
execution:
  retry_limit: 1
  auto_approve_monitor: false
kafka:
  brokers:
    - "kafka-0:9092"
`)

		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "duckdb", cfg.Store.Driver)
		assert.Equal(t, 60, cfg.Classification.DecommissionThresholdDays)
		assert.Equal(t, 14, cfg.Classification.ReviewThresholdDays)
		assert.Equal(t, []string{"prod-*", "shared-*"}, cfg.ProtectedPatterns)
		assert.Equal(t, 1, cfg.Execution.RetryLimit)
		assert.False(t, cfg.Execution.AutoApproveMonitor)
		assert.Equal(t, []string{"kafka-0:9092"}, cfg.Kafka.Brokers)
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := writeConfig(t, "server: port: 9090: bad")
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}

func TestProvider_Current(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9191\n")

	p, err := NewProvider(path)
	require.NoError(t, err)

	cfg := p.Current()
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Driver)
}
