package toolpool

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"codesandbox/internal/types"
)

func TestDisabledManagerReturnsNoEnv(t *testing.T) {
	m := NewCacheManager(t.TempDir(), false)
	assert.Nil(t, m.EnvForLanguage(types.Python))
}

func TestEnabledManagerReturnsPerLanguageEnv(t *testing.T) {
	m := NewCacheManager(t.TempDir(), true)

	pyEnv := m.EnvForLanguage(types.Python)
	assert.Contains(t, pyEnv, "PIP_CACHE_DIR")

	goEnv := m.EnvForLanguage(types.Go)
	assert.Contains(t, goEnv, "GOCACHE")
	assert.Contains(t, goEnv, "GOMODCACHE")

	rustEnv := m.EnvForLanguage(types.Rust)
	assert.Contains(t, rustEnv, "CARGO_HOME")
	assert.Contains(t, rustEnv, "CARGO_TARGET_DIR")
}

func TestUnsupportedLanguageReturnsNilEnv(t *testing.T) {
	m := NewCacheManager(t.TempDir(), true)
	assert.Nil(t, m.EnvForLanguage(types.CPP))
}

func TestSanitizeNormalizesCacheNames(t *testing.T) {
	assert.Equal(t, "go-build", sanitize("Go Build"))
	assert.Equal(t, "default", sanitize(""))
}
