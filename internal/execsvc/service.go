// Package execsvc implements the execution service: the concurrency gate
// and per-request lifecycle that composes the language pipeline engine
// and the sandbox supervisor into a single Execute call, with admission
// bounded by a weighted semaphore so at most N requests hold a sandbox
// at any moment.
package execsvc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"codesandbox/internal/errs"
	"codesandbox/internal/logging"
	"codesandbox/internal/metrics"
	"codesandbox/internal/pipeline"
	"codesandbox/internal/sandbox"
	"codesandbox/internal/types"
)

// DefaultMaxConcurrent is the bounded admission gate's default permit
// count, per the concurrency design's default profile.
const DefaultMaxConcurrent = 10

// DefaultTimeout is applied when a request does not specify one.
const DefaultTimeout = 30 * time.Second

// ToolChecker optionally verifies (and installs) the host toolchain a
// pipeline's RequiredTools names before a sandbox is created. Idempotent:
// repeated calls for an already-present tool are cheap no-ops. A nil
// ToolChecker skips the step entirely, matching the design's "optionally
// ensure host toolchain presence" wording.
type ToolChecker interface {
	Ensure(ctx context.Context, tools []string) error
}

// AuditRecorder persists one terminal ExecutionResult per request. Errors
// are the recorder's own concern: Service never inspects or propagates
// them, matching internal/audit.Log.Record's own swallow-and-log contract.
type AuditRecorder interface {
	Record(sandboxID string, lang types.Language, result *types.ExecutionResult, duration time.Duration, codeHash string)
}

// Service is the bounded-concurrency front door for sandboxed execution.
type Service struct {
	sem     *semaphore.Weighted
	baseDir string
	tools   ToolChecker
	backend sandbox.Backend
	audit   AuditRecorder
}

// Option configures a Service at construction time.
type Option func(*Service)

// WithToolChecker installs a host-toolchain presence checker.
func WithToolChecker(tc ToolChecker) Option {
	return func(s *Service) { s.tools = tc }
}

// WithBaseDir overrides the directory sandbox roots are created under.
func WithBaseDir(dir string) Option {
	return func(s *Service) { s.baseDir = dir }
}

// WithBackend overrides the sandbox backend, e.g. to the Docker isolation
// backend (internal/isolation/docker) instead of the default process+
// rlimit backend. Accepts anything satisfying sandbox.Backend so
// alternate backends never need to import this package.
func WithBackend(b sandbox.Backend) Option {
	return func(s *Service) { s.backend = b }
}

// WithAudit installs an audit recorder; every completed request (success
// or failure) is logged. Omitted by default so unit tests don't need a
// database.
func WithAudit(a AuditRecorder) Option {
	return func(s *Service) { s.audit = a }
}

// New builds a Service with the given admission permit count (<= 0 uses
// DefaultMaxConcurrent).
func New(maxConcurrent int64, opts ...Option) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	s := &Service{sem: semaphore.NewWeighted(maxConcurrent), backend: sandbox.ProcessBackend{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire blocks for one admission permit. It exists for collaborators
// (the streaming execute endpoint) that drive a sandbox lifecycle of
// their own but must still count against the same in-flight bound as
// Execute. Every successful Acquire must be paired with Release.
func (s *Service) Acquire(ctx context.Context) error {
	m := metrics.Get()
	m.AdmissionQueueDepth.Inc()
	err := s.sem.Acquire(ctx, 1)
	m.AdmissionQueueDepth.Dec()
	if err != nil {
		return errs.Wrap(errs.KindSystem, err, "acquire execution permit")
	}
	m.ExecutionsInFlight.Inc()
	return nil
}

// Release returns a permit taken with Acquire.
func (s *Service) Release() {
	metrics.Get().ExecutionsInFlight.Dec()
	s.sem.Release(1)
}

// Execute runs one request end to end: acquire a permit, select the
// pipeline, optionally ensure toolchain presence, create a sandbox bound
// to the request's limits, run pipeline stages 1-4, execute stage 5, and
// assemble the result. The permit is released on every exit path,
// including a context cancellation while queued for admission.
func (s *Service) Execute(ctx context.Context, req types.ExecutionRequest) (*types.ExecutionResult, error) {
	m := metrics.Get()
	m.AdmissionQueueDepth.Inc()
	acquireErr := s.sem.Acquire(ctx, 1)
	m.AdmissionQueueDepth.Dec()
	if acquireErr != nil {
		return nil, errs.Wrap(errs.KindSystem, acquireErr, "acquire execution permit")
	}
	m.ExecutionsInFlight.Inc()
	start := time.Now()
	defer func() {
		m.ExecutionsInFlight.Dec()
		m.ExecutionDuration.WithLabelValues(string(req.Language)).Observe(time.Since(start).Seconds())
	}()
	defer s.sem.Release(1)

	result, err := s.execute(ctx, req)
	if result != nil {
		m.ExecutionsTotal.WithLabelValues(string(req.Language), string(result.Status)).Inc()
		if result.Status == types.StatusError && result.Reason != "" && isCapReason(result.Reason) {
			m.ResourceCapExceeded.WithLabelValues(capKind(result.Reason)).Inc()
		}
	}
	return result, err
}

// execute is Execute's body, split out so metrics bookkeeping above stays
// in one place regardless of which exit path below is taken.
func (s *Service) execute(ctx context.Context, req types.ExecutionRequest) (result *types.ExecutionResult, err error) {
	stageStart := time.Now()
	sandboxID := ""
	if s.audit != nil {
		defer func() {
			if result != nil {
				s.audit.Record(sandboxID, req.Language, result, time.Since(stageStart), codeHash(req.Source))
			}
		}()
	}

	p, ok := pipeline.Get(req.Language)
	if !ok {
		return resultFor(errs.New(errs.KindUnsupportedLanguage, fmt.Sprintf("unsupported language tag %q", req.Language)))
	}

	if s.tools != nil {
		if tools := p.RequiredTools(); len(tools) > 0 {
			if err := s.tools.Ensure(ctx, tools); err != nil {
				return resultFor(errs.Wrap(errs.KindSystem, err, "ensure toolchain presence"))
			}
		}
	}

	limits := req.Limits
	if !limits.Valid() {
		limits = types.DefaultResourceLimits()
	}

	h, err := s.backend.NewSandbox(s.baseDir, limits)
	if err != nil {
		return resultFor(err)
	}
	defer h.Close()
	sandboxID = h.SandboxID()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if err := runPipelineStages(ctx, p, h, req); err != nil {
		return resultFor(err)
	}

	command, args, env := p.Run(h.RootPath())
	mergedEnv := mergeEnv(req.Env, env)

	res, err := h.Execute(ctx, command, args, mergedEnv, req.Stdin, req.HasStdin, timeout, "")
	if err != nil {
		return resultFor(err)
	}

	logging.L().Sugar().Infow("execution completed",
		"sandbox_id", h.SandboxID(), "language", req.Language, "status", res.Status)

	return &types.ExecutionResult{
		Stdout: res.Stdout,
		Stderr: res.Stderr,
		Status: res.Status,
		Stats:  res.Stats,
		Reason: res.Reason,
	}, nil
}

// runPipelineStages drives stages 1-4: ensure-directories, scaffold,
// install-dependencies, compile. Each stage's own error Kind is preserved
// through the wrap (a compile stage can raise System for a filesystem
// failure and CompilationError for a build failure, and the two must map
// to different terminal statuses).
func runPipelineStages(ctx context.Context, p pipeline.Pipeline, h sandbox.Supervisee, req types.ExecutionRequest) error {
	m := metrics.Get()
	lang := string(req.Language)
	root := h.RootPath()

	stop := m.StageTimer(lang, "ensure_directories")
	err := p.EnsureDirectories(root)
	stop()
	if err != nil {
		return errs.Wrap(errs.KindOf(err), err, "ensure directories")
	}

	stop = m.StageTimer(lang, "scaffold")
	err = p.ScaffoldProject(ctx, root)
	stop()
	if err != nil {
		return errs.Wrap(errs.KindOf(err), err, "scaffold project")
	}

	stop = m.StageTimer(lang, "install_dependencies")
	err = p.InstallDependencies(ctx, root, toDependencies(req))
	stop()
	if err != nil {
		return errs.Wrap(errs.KindOf(err), err, "install dependencies")
	}

	stop = m.StageTimer(lang, "compile")
	err = p.Compile(ctx, root, req.Source)
	stop()
	if err != nil {
		return errs.Wrap(errs.KindOf(err), err, "compile")
	}
	return nil
}

// isCapReason reports whether a result's failure Reason names a
// resource-cap violation, per the Sandbox Supervisor's "resource limit
// exceeded: <cap>" reason format.
func isCapReason(reason string) bool {
	return strings.HasPrefix(reason, "resource limit exceeded:")
}

// capKind extracts the cap name from a "resource limit exceeded: <cap>"
// reason string for the resource_cap_exceeded_total metric label.
func capKind(reason string) string {
	const prefix = "resource limit exceeded:"
	return strings.TrimSpace(strings.TrimPrefix(reason, prefix))
}

// codeHash fingerprints a request's source for audit-log correlation
// without storing the source itself.
func codeHash(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}

func toDependencies(req types.ExecutionRequest) []types.Dependency {
	return req.Dependencies
}

func mergeEnv(caller, pipelineOwned map[string]string) map[string]string {
	out := make(map[string]string, len(caller)+len(pipelineOwned))
	for k, v := range caller {
		out[k] = v
	}
	for k, v := range pipelineOwned {
		out[k] = v
	}
	return out
}

// resultFor maps any error raised during request setup (before a
// sandbox.Result exists) onto the terminal ExecutionResult shape, per the
// failure-mapping table: every non-nil error here becomes a populated
// result rather than a returned error, so callers always get a result to
// serialize back to the client.
func resultFor(err error) (*types.ExecutionResult, error) {
	kind := errs.KindOf(err)
	return &types.ExecutionResult{
		Status: kind.Status(),
		Reason: err.Error(),
	}, nil
}
