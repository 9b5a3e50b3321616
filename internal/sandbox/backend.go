package sandbox

import (
	"context"
	"time"

	"codesandbox/internal/types"
)

// Supervisee is the narrow surface the Execution Service needs from a
// sandbox, regardless of which isolation backend produced it: the
// process+rlimit backend in this package, or an alternate backend (e.g.
// internal/isolation/docker) selected via config.Config.IsolationBackend.
type Supervisee interface {
	SandboxID() string
	RootPath() string
	Tmp() string
	Home() string
	Execute(ctx context.Context, command string, args []string, env map[string]string, stdinPayload []byte, hasStdin bool, timeout time.Duration, dir string) (*Result, error)
	Close() error
}

// Backend constructs a Supervisee bound to one request's ResourceLimits.
// The Execution Service holds one Backend for its whole lifetime and
// calls NewSandbox once per request; ProcessBackend.NewSandbox is just
// sandbox.New, and Backend makes that call substitutable.
type Backend interface {
	NewSandbox(baseDir string, limits types.ResourceLimits) (Supervisee, error)
}

// ProcessBackend is the default Backend: host-process children with
// pre-exec rlimits, implemented by New/Handle in this package.
type ProcessBackend struct{}

func (ProcessBackend) NewSandbox(baseDir string, limits types.ResourceLimits) (Supervisee, error) {
	return New(baseDir, limits)
}

var _ Backend = ProcessBackend{}
var _ Supervisee = (*Handle)(nil)
