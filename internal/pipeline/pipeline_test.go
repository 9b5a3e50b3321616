package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"codesandbox/internal/types"
)

func TestRegistryHasBaselineFiveTags(t *testing.T) {
	for _, tag := range []types.Language{types.Python, types.JavaScript, types.TypeScript, types.Go, types.Rust} {
		_, ok := Get(tag)
		assert.Truef(t, ok, "expected pipeline registered for %s", tag)
	}
}

func TestResolveVersionPrecedence(t *testing.T) {
	table := pythonVersions{}

	explicit := types.Dependency{Name: "requests", Version: "9.9.9"}
	assert.Equal(t, "9.9.9", ResolveVersion(explicit, table))

	defaulted := types.Dependency{Name: "requests"}
	assert.Equal(t, "2.31.0", ResolveVersion(defaulted, table))

	fallback := types.Dependency{Name: "totally-unknown-package"}
	assert.Equal(t, ">=1.0.0", ResolveVersion(fallback, table))
}

func TestDepSpecSourceOverrideWinsOverVersion(t *testing.T) {
	dep := types.Dependency{Name: "requests", Version: "1.0.0", Source: "git+https://example.com/requests"}
	assert.Equal(t, "requests@git+https://example.com/requests", DepSpec(dep, pythonVersions{}, "=="))
}

func TestGoPipelineRunCommand(t *testing.T) {
	p, ok := Get(types.Go)
	assert.True(t, ok)
	cmd, args, _ := p.Run("/tmp/sandbox-x")
	assert.Equal(t, "./code-execution", cmd)
	assert.Empty(t, args)
}

func TestCacheEnvProviderDefaultsToNoExtraEnv(t *testing.T) {
	defer SetCacheEnvProvider(nil)
	assert.Nil(t, cacheEnvFor(types.Python))
}

func TestCacheEnvProviderIsConsulted(t *testing.T) {
	defer SetCacheEnvProvider(nil)
	SetCacheEnvProvider(func(lang types.Language) map[string]string {
		if lang == types.Python {
			return map[string]string{"PIP_CACHE_DIR": "/tmp/pip-cache"}
		}
		return nil
	})
	assert.Equal(t, "/tmp/pip-cache", cacheEnvFor(types.Python)["PIP_CACHE_DIR"])
	assert.Nil(t, cacheEnvFor(types.Go))
}
