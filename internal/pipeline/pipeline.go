// Package pipeline implements the language pipeline engine: a uniform
// five-stage state machine (ensure-directories, scaffold-project,
// install-dependencies, compile, run) that turns a raw source request
// into an executable artifact, with one implementation per source-language
// tag registered into a process-wide registry.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"codesandbox/internal/types"
)

// Pipeline is the per-tag implementation of the five ordered stages.
type Pipeline interface {
	Tag() types.Language

	// RequiredTools lists the host binaries stage 1-4 depend on.
	RequiredTools() []string

	// EnsureDirectories creates the tag-specific subtree under root.
	EnsureDirectories(root string) error

	// ScaffoldProject writes the per-tag project manifest/config with
	// tag-tuned defaults.
	ScaffoldProject(ctx context.Context, root string) error

	// InstallDependencies translates deps into the tag's native install
	// invocation. A no-op, zero-process call when deps is empty.
	InstallDependencies(ctx context.Context, root string, deps []types.Dependency) error

	// Compile moves/renames source into the tag's entry-point path and
	// builds it (or, for interpreted tags, syntax-checks/renames only).
	Compile(ctx context.Context, root string, source []byte) error

	// Run returns the command, arguments, and any pipeline-owned env vars
	// the Supervisor must pass through for stage 5.
	Run(root string) (command string, args []string, env map[string]string)
}

// VersionTable is a tag's static version-pin table: DefaultVersion
// returns the pin for a dependency name when the caller didn't specify
// one, and whether an entry exists.
type VersionTable interface {
	DefaultVersion(name string) (string, bool)
	FallbackVersion() string
}

var (
	mu       sync.RWMutex
	registry = map[types.Language]Pipeline{}

	// cacheEnvProvider supplies extra environment variables (shared
	// package-cache directories) merged into each tag's host tool
	// invocations (scaffold, install, compile); the stage-5 Run command
	// does not receive it. Configured once at process startup via
	// SetCacheEnvProvider (see cmd/sandboxd) and read-only afterward, so
	// concurrent requests never race on it.
	cacheEnvProvider func(types.Language) map[string]string
)

// SetCacheEnvProvider wires a shared package-cache directory lookup (see
// internal/toolpool.CacheManager.EnvForLanguage) into every pipeline's
// host-process invocations. Intended to be called once during service
// startup, before any request is served.
func SetCacheEnvProvider(f func(types.Language) map[string]string) {
	mu.Lock()
	defer mu.Unlock()
	cacheEnvProvider = f
}

// cacheEnvFor returns the configured cache environment for a tag, or nil
// when no provider has been configured.
func cacheEnvFor(lang types.Language) map[string]string {
	mu.RLock()
	defer mu.RUnlock()
	if cacheEnvProvider == nil {
		return nil
	}
	return cacheEnvProvider(lang)
}

// Register adds a pipeline to the process-wide, immutable-after-init
// registry. Called from each tag file's init().
func Register(p Pipeline) {
	mu.Lock()
	defer mu.Unlock()
	registry[p.Tag()] = p
}

// Get resolves a pipeline by language tag.
func Get(lang types.Language) (Pipeline, bool) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := registry[lang]
	return p, ok
}

// Tags lists every registered language tag.
func Tags() []types.Language {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]types.Language, 0, len(registry))
	for tag := range registry {
		out = append(out, tag)
	}
	return out
}

// ResolveVersion implements the explicit > default-table > fallback
// precedence every pipeline's InstallDependencies honors.
func ResolveVersion(dep types.Dependency, table VersionTable) string {
	if dep.Version != "" {
		return dep.Version
	}
	if v, ok := table.DefaultVersion(dep.Name); ok {
		return v
	}
	return table.FallbackVersion()
}

// DepSpec renders a dependency as "name@version" or, when a source
// override is present, "name@source" — the shape every tag's install
// stage uses (npm, pip, go get, cargo git deps all accept this form with
// minor separator differences handled per tag).
func DepSpec(dep types.Dependency, table VersionTable, sep string) string {
	if dep.Source != "" {
		return fmt.Sprintf("%s@%s", dep.Name, dep.Source)
	}
	return fmt.Sprintf("%s%s%s", dep.Name, sep, ResolveVersion(dep, table))
}
