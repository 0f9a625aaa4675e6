package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_DefaultsWhenUnset(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, defaultBindAddr, cfg.BindAddr)
	assert.Equal(t, defaultPort, cfg.Port)
	assert.Equal(t, defaultMaxClients, cfg.MaxClients)
}

func TestFromEnv_ReadsOverrides(t *testing.T) {
	t.Setenv("ENGINE_BIND_ADDR", "127.0.0.1")
	t.Setenv("ENGINE_PORT", "9100")
	t.Setenv("ENGINE_MAX_CLIENTS", "50")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.BindAddr)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 50, cfg.MaxClients)
}

func TestFromEnv_InvalidPortReturnsError(t *testing.T) {
	t.Setenv("ENGINE_PORT", "not-a-number")
	_, err := FromEnv()
	assert.Error(t, err)
}

func TestFromEnvAndFlags_AddrOverridesEnv(t *testing.T) {
	t.Setenv("ENGINE_BIND_ADDR", "127.0.0.1")
	t.Setenv("ENGINE_PORT", "9100")

	cfg, err := FromEnvAndFlags([]string{"--addr", "0.0.0.0:9200"})
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.BindAddr)
	assert.Equal(t, 9200, cfg.Port)
}

func TestFromEnvAndFlags_InvalidAddrReturnsError(t *testing.T) {
	_, err := FromEnvAndFlags([]string{"--addr", "missing-colon"})
	assert.Error(t, err)
}

func TestFromEnvAndFlags_NoOverrideKeepsEnvDefaults(t *testing.T) {
	cfg, err := FromEnvAndFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultBindAddr, cfg.BindAddr)
	assert.Equal(t, defaultPort, cfg.Port)
}
