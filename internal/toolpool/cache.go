// Package toolpool manages shared, cross-request package-cache
// directories and a distributed toolchain-availability cache. Each
// language's cache directory is a host path injected into pipeline tool
// invocations via that toolchain's own cache environment variable
// (NPM_CONFIG_CACHE, PIP_CACHE_DIR, GOCACHE/GOMODCACHE,
// CARGO_HOME/CARGO_TARGET_DIR, MAVEN_CONFIG), so installers reuse
// previously-downloaded packages across sandbox roots instead of
// re-fetching on every request.
package toolpool

import (
	"os"
	"path/filepath"
	"strings"

	"codesandbox/internal/types"
)

// CacheManager owns one shared base directory, partitioned per tool, that
// every sandbox's pipeline InstallDependencies stage points its package
// manager at via environment variables.
type CacheManager struct {
	enabled bool
	baseDir string
}

// NewCacheManager builds a CacheManager rooted at baseDir (or a default
// under os.TempDir() when empty). Disabled managers return no env vars,
// so pipelines fall back to each process's own throwaway cache.
func NewCacheManager(baseDir string, enabled bool) *CacheManager {
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), "codesandbox-pkg-cache")
	}
	m := &CacheManager{enabled: enabled, baseDir: baseDir}
	if m.enabled {
		_ = os.MkdirAll(m.baseDir, 0o755)
	}
	return m
}

func (m *CacheManager) Enabled() bool { return m != nil && m.enabled }

// EnvForLanguage returns the environment variables a pipeline's
// InstallDependencies stage should merge in to share this host's package
// cache across requests.
func (m *CacheManager) EnvForLanguage(lang types.Language) map[string]string {
	if !m.Enabled() {
		return nil
	}

	switch lang {
	case types.JavaScript, types.TypeScript:
		return map[string]string{"NPM_CONFIG_CACHE": m.dir("npm")}
	case types.Python:
		return map[string]string{"PIP_CACHE_DIR": m.dir("pip")}
	case types.Go:
		return map[string]string{
			"GOCACHE":    m.dir("go-build"),
			"GOMODCACHE": m.dir("go-mod"),
		}
	case types.Rust:
		return map[string]string{
			"CARGO_HOME":       m.dir("cargo-home"),
			"CARGO_TARGET_DIR": m.dir("cargo-target"),
		}
	case types.Java:
		return map[string]string{"MAVEN_CONFIG": m.dir("m2")}
	default:
		return nil
	}
}

func (m *CacheManager) dir(name string) string {
	path := filepath.Join(m.baseDir, sanitize(name))
	_ = os.MkdirAll(path, 0o755)
	return path
}

func sanitize(in string) string {
	in = strings.ToLower(strings.TrimSpace(in))
	if in == "" {
		return "default"
	}
	var b strings.Builder
	for _, r := range in {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
