package sandbox

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codesandbox/internal/types"
)

// TestMain mirrors cmd/sandboxd's trampoline dispatch: Execute re-execs
// the current binary (here, the test binary) with TrampolineArg, so the
// test binary must recognize the sentinel and exec the real command
// instead of running the test suite again.
func TestMain(m *testing.M) {
	if len(os.Args) > 1 && os.Args[1] == TrampolineArg {
		RunTrampoline(os.Args[2:])
		return
	}
	os.Exit(m.Run())
}

func TestNewCreatesSubtree(t *testing.T) {
	h, err := New(t.TempDir(), types.DefaultResourceLimits())
	require.NoError(t, err)
	defer h.Close()

	for _, d := range subdirs {
		info, err := os.Stat(h.Root + "/" + d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	h, err := New(t.TempDir(), types.DefaultResourceLimits())
	require.NoError(t, err)

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	_, err = os.Stat(h.Root)
	assert.True(t, os.IsNotExist(err))
}

func TestExecuteEchoSuccess(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a real child process")
	}
	h, err := New(t.TempDir(), types.DefaultResourceLimits())
	require.NoError(t, err)
	defer h.Close()

	res, err := h.Execute(context.Background(), "echo", []string{"hello"}, nil, nil, false, 5*time.Second, "")
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, res.Status)
	assert.Equal(t, "hello\n", res.Stdout)
}

func TestExecuteTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a real child process")
	}
	h, err := New(t.TempDir(), types.DefaultResourceLimits())
	require.NoError(t, err)
	defer h.Close()

	start := time.Now()
	res, err := h.Execute(context.Background(), "sleep", []string{"10"}, nil, nil, false, 1*time.Second, "")
	elapsed := time.Since(start)
	require.NoError(t, err)
	assert.Equal(t, types.StatusTimeout, res.Status)
	assert.Less(t, elapsed, 1200*time.Millisecond)
}

func TestExecuteStdinStreaming(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a real child process")
	}
	h, err := New(t.TempDir(), types.DefaultResourceLimits())
	require.NoError(t, err)
	defer h.Close()

	res, err := h.Execute(context.Background(), "cat", nil, nil, []byte("abc"), true, 5*time.Second, "")
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, res.Status)
	assert.Equal(t, "abc", res.Stdout)
}

func TestExecuteSingleShot(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a real child process")
	}
	h, err := New(t.TempDir(), types.DefaultResourceLimits())
	require.NoError(t, err)
	defer h.Close()

	_, err = h.Execute(context.Background(), "true", nil, nil, nil, false, time.Second, "")
	require.NoError(t, err)

	_, err = h.Execute(context.Background(), "true", nil, nil, nil, false, time.Second, "")
	assert.Error(t, err)
}

func TestEncodeDecodeLimitsRoundTrip(t *testing.T) {
	limits := types.ResourceLimits{CPUSeconds: 30, MemoryBytes: 512 << 20, MaxProcesses: 10, MaxFileBytes: 10 << 20}
	got := decodeLimits(encodeLimits(limits))
	assert.Equal(t, limits, got)
}
