package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "allowly", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "memory", cfg.Channel.Backend)
	assert.Equal(t, "allowly.notify", cfg.Channel.Kafka.TopicPrefix)
	assert.Equal(t, 14*24*time.Hour, cfg.Sched.InvitationTTL)
	assert.Equal(t, 2*time.Second, cfg.DB.QueryTimeout)
	assert.True(t, cfg.Auth.SecureCookie)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  http_addr: ":9999"
channel:
  backend: kafka
  kafka:
    brokers: ["broker-1:9092", "broker-2:9092"]
auth:
  session_ttl: 1h
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.HTTPAddr)
	assert.Equal(t, "kafka", cfg.Channel.Backend)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Channel.Kafka.Brokers)
	assert.Equal(t, time.Hour, cfg.Auth.SessionTTL)
	// Untouched keys keep their defaults.
	assert.Equal(t, ":9090", cfg.Server.MetricsAddr)
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load("/does/not/exist.yaml")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
}
