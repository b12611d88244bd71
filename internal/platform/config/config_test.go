package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apeguard/pkg/domain"
)

const deployer = "0x1111111111111111111111111111111111111111"

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("APEGUARD_DEPLOYER", deployer)
	t.Setenv("APEGUARD_SERVER_ADDR", ":9090")
	t.Setenv("APEGUARD_KAFKA_BROKERS", "k1:9092, k2:9092,k1:9092")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, time.Hour, cfg.Server.TokenTTL)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5, cfg.Kafka.BreakerThreshold)
	assert.Equal(t, 30*time.Second, cfg.Kafka.BreakerCooldown)
	assert.Equal(t, domain.MustAddress(deployer), cfg.DeployerAddress())

	_, ok := cfg.TimelockAddress()
	assert.False(t, ok)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apeguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
deployer: "`+deployer+`"
log:
  level: debug
redis:
  url: redis://localhost:6379/0
governance:
  timelock: "0x2222222222222222222222222222222222222222"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	timelock, ok := cfg.TimelockAddress()
	assert.True(t, ok)
	assert.Equal(t, domain.MustAddress("0x2222222222222222222222222222222222222222"), timelock)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("missing deployer", func(t *testing.T) {
		_, err := Load("")
		assert.ErrorContains(t, err, "deployer identity is required")
	})

	t.Run("malformed timelock", func(t *testing.T) {
		t.Setenv("APEGUARD_DEPLOYER", deployer)
		t.Setenv("APEGUARD_GOVERNANCE_TIMELOCK", "0xnothex")
		_, err := Load("")
		assert.ErrorContains(t, err, "governance.timelock")
	})

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("APEGUARD_DEPLOYER", deployer)
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}
