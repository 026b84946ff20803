package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "IO_THREADS", "POOL_SIZE", "QUEUE_CAPACITY", "MAX_REQUEST_SIZE",
		"CORS_ORIGINS", "JWT_SECRET", "JWT_TIMEOUT_SECONDS", "API_KEY", "POD_NAME", "VERSION",
	} {
		os.Unsetenv(k)
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	require.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("JWT_SECRET", "unit-test-secret")
	defer os.Unsetenv("JWT_SECRET")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 1000, cfg.QueueCapacity)
	assert.Equal(t, 5*1024*1024, cfg.MaxRequestSize)
	assert.Equal(t, "unit-test-secret", cfg.JWTSecret)
}

func TestLoadParsesCORSOrigins(t *testing.T) {
	clearEnv(t)
	os.Setenv("JWT_SECRET", "unit-test-secret")
	os.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	defer clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestWorkersPerIOWorkerFloorsAtOne(t *testing.T) {
	cfg := &Config{PoolSize: 3, IOThreads: 8}
	assert.Equal(t, 1, cfg.WorkersPerIOWorker())
}
