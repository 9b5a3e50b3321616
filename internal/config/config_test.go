package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadAppliesDefaultsWhenUnset(t *testing.T) {
	for _, k := range []string{"ENVIRONMENT", "HTTP_ADDR", "MAX_CONCURRENT", "RATE_LIMIT_PER_SECOND", "ISOLATION_BACKEND"} {
		os.Unsetenv(k)
	}

	cfg := Load()
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, int64(10), cfg.MaxConcurrent)
	assert.Equal(t, "process", cfg.IsolationBackend)
	assert.Equal(t, 5.0, cfg.RateLimitPerSecond)
}

func TestLoadReadsEnvironmentOverrides(t *testing.T) {
	os.Setenv("ENVIRONMENT", "production")
	os.Setenv("MAX_CONCURRENT", "42")
	os.Setenv("ISOLATION_BACKEND", "docker")
	defer func() {
		os.Unsetenv("ENVIRONMENT")
		os.Unsetenv("MAX_CONCURRENT")
		os.Unsetenv("ISOLATION_BACKEND")
	}()

	cfg := Load()
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, int64(42), cfg.MaxConcurrent)
	assert.Equal(t, "docker", cfg.IsolationBackend)
}

func TestGetEnvIntFallsBackOnGarbage(t *testing.T) {
	os.Setenv("MAX_CONCURRENT", "not-a-number")
	defer os.Unsetenv("MAX_CONCURRENT")
	assert.Equal(t, 10, getEnvInt("MAX_CONCURRENT", 10))
}

func TestGetEnvBoolFallsBackOnGarbage(t *testing.T) {
	os.Setenv("AUTO_INSTALL_TOOLS", "maybe")
	defer os.Unsetenv("AUTO_INSTALL_TOOLS")
	assert.False(t, getEnvBool("AUTO_INSTALL_TOOLS", false))
}
