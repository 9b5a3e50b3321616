// Package config loads the process's runtime configuration once at
// startup into an immutable Config struct: plain environment variables
// with defaults, an optional .env for local development, no remote
// config service.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the immutable, process-wide configuration for cmd/sandboxd.
// Built once in main() and passed down by value/pointer; nothing in the
// core packages reads the environment directly.
type Config struct {
	// Environment selects the logging encoder (development vs production).
	Environment string

	// HTTPAddr is the address the httpapi collaborator listens on.
	HTTPAddr string

	// MaxConcurrent bounds the Execution Service's admission semaphore.
	MaxConcurrent int64

	// DefaultTimeout applies when a request does not specify one.
	DefaultTimeout time.Duration

	// SandboxBaseDir is where sandbox-<uuid> roots are created.
	SandboxBaseDir string

	// PackageCacheDir, when PackageCacheEnabled, roots the shared
	// cross-request package-manager cache (internal/toolpool).
	PackageCacheEnabled bool
	PackageCacheDir     string

	// AuditDBPath is the SQLite file the execution audit log writes to.
	AuditDBPath string

	// RedisAddr, when non-empty, wires the shared toolchain-availability
	// cache (internal/toolpool.AvailabilityCache). Empty disables it;
	// every replica then falls back to its own local toolcheck.Checker.
	RedisAddr string

	// JWTSecret signs/verifies bearer tokens the httpapi auth middleware
	// checks. Required to enable authenticated routes; empty disables
	// token verification (local/dev mode only).
	JWTSecret string

	// RateLimitPerSecond and RateLimitBurst bound the httpapi per-client
	// token-bucket limiter.
	RateLimitPerSecond float64
	RateLimitBurst     int

	// AutoInstallTools enables the toolinstall collaborator when a
	// pipeline's RequiredTools are missing from PATH. Off by default:
	// most deployments bake toolchains into the host image instead.
	AutoInstallTools bool

	// IsolationBackend selects the Sandbox Supervisor backend: "process"
	// (default, rlimit-based) or "docker".
	IsolationBackend string
}

// Load reads .env (if present, ignored if absent) then environment
// variables into a Config.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			// No .env in either location; environment variables alone
			// are expected to carry configuration (e.g. in production).
		}
	}

	return &Config{
		Environment:         getEnv("ENVIRONMENT", "development"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		MaxConcurrent:       int64(getEnvInt("MAX_CONCURRENT", 10)),
		DefaultTimeout:      time.Duration(getEnvInt("DEFAULT_TIMEOUT_SECONDS", 30)) * time.Second,
		SandboxBaseDir:      getEnv("SANDBOX_BASE_DIR", ""),
		PackageCacheEnabled: getEnvBool("PACKAGE_CACHE_ENABLED", true),
		PackageCacheDir:     getEnv("PACKAGE_CACHE_DIR", ""),
		AuditDBPath:         getEnv("AUDIT_DB_PATH", "codesandbox-audit.db"),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		RateLimitPerSecond:  getEnvFloat("RATE_LIMIT_PER_SECOND", 5),
		RateLimitBurst:      getEnvInt("RATE_LIMIT_BURST", 10),
		AutoInstallTools:    getEnvBool("AUTO_INSTALL_TOOLS", false),
		IsolationBackend:    getEnv("ISOLATION_BACKEND", "process"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
