// Command sandboxd is the code-execution service's process entrypoint:
// load config, wire collaborators, start the HTTP listener, and shut
// down gracefully on SIGINT/SIGTERM.
//
// This binary doubles as the sandbox pre-exec trampoline (see
// internal/sandbox/trampoline.go): when re-exec'd with
// sandbox.TrampolineArg as os.Args[1], it applies the caller-encoded
// rlimits and execs straight into the real target program instead of
// running any of the logic below. That branch must be the first thing
// main does, before config/logging/anything else initializes, since the
// trampoline process is expected to be as close to instantaneous and
// side-effect-free as possible.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"codesandbox/internal/audit"
	"codesandbox/internal/config"
	"codesandbox/internal/execsvc"
	"codesandbox/internal/httpapi"
	"codesandbox/internal/isolation/docker"
	"codesandbox/internal/logging"
	"codesandbox/internal/metrics"
	"codesandbox/internal/pipeline"
	"codesandbox/internal/sandbox"
	"codesandbox/internal/toolcheck"
	"codesandbox/internal/toolinstall"
	"codesandbox/internal/toolpool"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == sandbox.TrampolineArg {
		sandbox.RunTrampoline(os.Args[2:])
		return
	}

	cfg := config.Load()
	logging.Init()
	defer logging.Sync()
	log := logging.S()

	log.Infow("starting codesandbox supervisor", "environment", cfg.Environment)

	metrics.Get()

	runner, err := audit.NewMigrationRunner(cfg.AuditDBPath, "")
	if err != nil {
		log.Fatalw("failed to prepare audit migrations", "error", err)
	}
	if err := runner.Up(); err != nil {
		log.Fatalw("failed to apply audit migrations", "error", err)
	}
	if err := runner.Close(); err != nil {
		log.Warnw("failed to close migration handle", "error", err)
	}

	auditLog, err := audit.Open(cfg.AuditDBPath)
	if err != nil {
		log.Fatalw("failed to open audit log", "error", err)
	}
	defer auditLog.Close()

	cache := toolpool.NewCacheManager(cfg.PackageCacheDir, cfg.PackageCacheEnabled)
	pipeline.SetCacheEnvProvider(cache.EnvForLanguage)

	checker := toolcheck.New()
	var toolChecker execsvc.ToolChecker = checker
	if cfg.AutoInstallTools {
		toolChecker = &autoInstallChecker{checker: checker, installer: toolinstall.New()}
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if _, pingErr := rdb.Ping(context.Background()).Result(); pingErr != nil {
			log.Warnw("redis unreachable, shared toolchain cache disabled", "addr", cfg.RedisAddr, "error", pingErr)
		} else {
			availability := toolpool.NewAvailabilityCache(rdb)
			toolChecker = &sharedCacheChecker{inner: toolChecker, shared: availability}
			log.Infow("shared toolchain availability cache enabled", "addr", cfg.RedisAddr)
		}
	}

	opts := []execsvc.Option{
		execsvc.WithToolChecker(toolChecker),
		execsvc.WithBaseDir(cfg.SandboxBaseDir),
		execsvc.WithAudit(auditLog),
	}

	if cfg.IsolationBackend == "docker" {
		backend, err := docker.NewBackend()
		if err != nil {
			log.Fatalw("failed to initialize docker isolation backend", "error", err)
		}
		defer backend.Close()
		opts = append(opts, execsvc.WithBackend(backend))
		log.Infow("using docker isolation backend")
	}

	svc := execsvc.New(cfg.MaxConcurrent, opts...)

	router := httpapi.NewRouter(cfg, svc)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Infow("http listener starting", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Fatalw("http server failed to start", "error", err)
	case sig := <-quit:
		log.Infow("received shutdown signal", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnw("http server shutdown error", "error", err)
	}
	log.Infow("shutdown complete")
}

// autoInstallChecker upgrades a bare toolcheck.Checker with the
// toolinstall collaborator: a missing tool triggers one install attempt
// through the host package manager before Ensure gives up.
type autoInstallChecker struct {
	checker   *toolcheck.Checker
	installer *toolinstall.Installer
}

// sharedCacheChecker consults a Redis-backed availability cache before
// falling back to inner (a local toolcheck.Checker, optionally wrapped
// in autoInstallChecker), so replicas that already confirmed a tool's
// presence elsewhere skip a redundant local lookup or install attempt.
type sharedCacheChecker struct {
	inner  execsvc.ToolChecker
	shared *toolpool.AvailabilityCache
}

func (s *sharedCacheChecker) Ensure(ctx context.Context, tools []string) error {
	var uncached []string
	for _, tool := range tools {
		if available, found := s.shared.Get(ctx, tool); found && available {
			continue
		}
		uncached = append(uncached, tool)
	}
	if len(uncached) == 0 {
		return nil
	}
	if err := s.inner.Ensure(ctx, uncached); err != nil {
		for _, tool := range uncached {
			_ = s.shared.Set(ctx, tool, false)
		}
		return err
	}
	for _, tool := range uncached {
		_ = s.shared.Set(ctx, tool, true)
	}
	return nil
}

func (a *autoInstallChecker) Ensure(ctx context.Context, tools []string) error {
	for _, tool := range tools {
		if a.checker.Available(tool) {
			continue
		}
		if err := a.installer.Install(ctx, tool); err != nil {
			return err
		}
		a.checker.Forget(tool)
		if !a.checker.Available(tool) {
			logging.S().Warnw("tool still unavailable after install attempt", "tool", tool)
		}
	}
	return a.checker.Ensure(ctx, tools)
}
