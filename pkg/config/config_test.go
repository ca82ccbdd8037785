package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverrideIdentities(t *testing.T) {
	ids := parseOverrideIdentities("heawon:$2a$10$abc, haewon:$2a$10$def,broken, :nohash")
	require.Len(t, ids, 2)
	assert.Equal(t, "heawon", ids[0].Name)
	assert.Equal(t, "$2a$10$abc", ids[0].PasswordHash)
	assert.Equal(t, "haewon", ids[1].Name)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("nonsense", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "REDIS")
	t.Setenv("AUTH_OVERRIDE_IDENTITIES", "root:$2a$10$xyz")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreRedis, cfg.Store.Driver)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 20*time.Second, cfg.Classifier.Timeout)
	require.Len(t, cfg.Auth.OverrideIdentities, 1)
	assert.Equal(t, "root", cfg.Auth.OverrideIdentities[0].Name)
}
