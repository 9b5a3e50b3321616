// Package toolcheck implements idempotent, concurrency-safe host
// toolchain presence checks: exec.LookPath results cached behind a
// mutex-guarded map, consulted by the execution service before a sandbox
// is created.
package toolcheck

import (
	"context"
	"os/exec"
	"sync"

	"codesandbox/internal/errs"
	"codesandbox/internal/metrics"
)

// Checker caches exec.LookPath results so repeated Ensure calls for the
// same tool across concurrent requests don't re-stat $PATH every time.
type Checker struct {
	mu    sync.RWMutex
	found map[string]string
}

// New builds an empty Checker.
func New() *Checker {
	return &Checker{found: map[string]string{}}
}

// Ensure verifies every named tool is resolvable on PATH, returning a
// System error naming the first missing tool. Installer wiring (see
// internal/toolinstall) is the caller's responsibility; Ensure itself
// never installs anything.
func (c *Checker) Ensure(ctx context.Context, tools []string) error {
	for _, tool := range tools {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := c.lookup(tool); err != nil {
			return errs.Wrap(errs.KindSystem, err, "required host tool not found: "+tool)
		}
	}
	return nil
}

func (c *Checker) lookup(tool string) (string, error) {
	c.mu.RLock()
	if path, ok := c.found[tool]; ok {
		c.mu.RUnlock()
		metrics.Get().ToolchainCacheHits.WithLabelValues("local_hit").Inc()
		return path, nil
	}
	c.mu.RUnlock()

	path, err := exec.LookPath(tool)
	if err != nil {
		metrics.Get().ToolchainCacheHits.WithLabelValues("miss").Inc()
		return "", err
	}
	metrics.Get().ToolchainCacheHits.WithLabelValues("local_miss_resolved").Inc()

	c.mu.Lock()
	c.found[tool] = path
	c.mu.Unlock()
	return path, nil
}

// Available reports whether tool currently resolves on PATH without
// returning an error, used by callers that want a boolean rather than a
// wrapped error (e.g. the toolinstall collaborator deciding whether to
// run an installer at all).
func (c *Checker) Available(tool string) bool {
	_, err := c.lookup(tool)
	return err == nil
}

// Forget evicts a cached lookup hit, used after an install attempt so
// the next lookup re-resolves the tool on PATH (misses are never cached).
func (c *Checker) Forget(tool string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.found, tool)
}
