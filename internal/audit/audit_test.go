package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codesandbox/internal/types"
)

func openMigrated(t *testing.T) *Log {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	runner, err := NewMigrationRunner(dbPath, "")
	require.NoError(t, err)
	require.NoError(t, runner.Up())
	require.NoError(t, runner.Close())

	log, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })
	return log
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	for i := 0; i < 2; i++ {
		runner, err := NewMigrationRunner(dbPath, "")
		require.NoError(t, err)
		require.NoError(t, runner.Up())

		version, dirty, err := runner.Version()
		require.NoError(t, err)
		assert.False(t, dirty)
		assert.Equal(t, uint(2), version)
		require.NoError(t, runner.Close())
	}
}

func TestRecordAndRecent(t *testing.T) {
	log := openMigrated(t)

	result := &types.ExecutionResult{
		Status: types.StatusSuccess,
		Stats:  types.ProcessStats{MaxRSSBytes: 1 << 20},
	}
	log.Record("sb-1", types.Go, result, 1500*time.Millisecond, "deadbeef")
	log.Record("sb-2", types.Python, &types.ExecutionResult{
		Status: types.StatusTimeout,
		Reason: "execution exceeded timeout of 1s",
	}, time.Second, "cafe")

	entries, err := log.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "sb-2", entries[0].SandboxID)
	assert.Equal(t, string(types.StatusTimeout), entries[0].Status)
	assert.Equal(t, "sb-1", entries[1].SandboxID)
	assert.Equal(t, int64(1500), entries[1].DurationMS)
	assert.Equal(t, int64(1<<20), entries[1].MaxRSSBytes)
	assert.Equal(t, "deadbeef", entries[1].CodeHash)
}
