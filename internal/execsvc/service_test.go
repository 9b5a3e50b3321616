package execsvc

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codesandbox/internal/pipeline"
	"codesandbox/internal/sandbox"
	"codesandbox/internal/types"
)

// TestMain dispatches the sandbox trampoline the same way cmd/sandboxd
// does: child processes spawned by the tests re-exec this test binary
// with the trampoline sentinel as the first argument.
func TestMain(m *testing.M) {
	if len(os.Args) > 1 && os.Args[1] == sandbox.TrampolineArg {
		sandbox.RunTrampoline(os.Args[2:])
		return
	}
	os.Exit(m.Run())
}

func TestExecuteUnsupportedLanguage(t *testing.T) {
	svc := New(2)
	res, err := svc.Execute(context.Background(), types.ExecutionRequest{
		Language: types.Language("cobol"),
		Source:   []byte("irrelevant"),
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusError, res.Status)
}

func TestExecutePythonHelloWorld(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns real python toolchain")
	}
	if _, ok := pipeline.Get(types.Python); !ok {
		t.Skip("python pipeline not registered")
	}
	for _, tool := range []string{"python3", "virtualenv"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not on PATH", tool)
		}
	}
	svc := New(2)
	res, err := svc.Execute(context.Background(), types.ExecutionRequest{
		Language: types.Python,
		Source:   []byte("print('hello world')\n"),
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, res.Status)
	assert.Contains(t, res.Stdout, "hello world")
}

func TestAcquireReleaseBoundsCollaboratorRuns(t *testing.T) {
	svc := New(1)
	require.NoError(t, svc.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, svc.Acquire(ctx), "second acquire should block until the permit is released")

	svc.Release()
	require.NoError(t, svc.Acquire(context.Background()))
	svc.Release()
}

func TestExecuteReleasesPermitOnEveryPath(t *testing.T) {
	svc := New(1)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _ = svc.Execute(ctx, types.ExecutionRequest{Language: types.Language("nope")})

	acquireCtx, acquireCancel := context.WithTimeout(context.Background(), time.Second)
	defer acquireCancel()
	err := svc.sem.Acquire(acquireCtx, 1)
	assert.NoError(t, err, "permit should have been released after the prior call returned")
	if err == nil {
		svc.sem.Release(1)
	}
}
