//go:build linux

package sandbox

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"codesandbox/internal/types"
)

// rssReliable is true on hosts whose Rusage.Maxrss reporting is trustworthy
// enough to enforce the memory cap post-mortem. Linux reports accurate
// peak RSS in kilobytes.
const rssReliable = true

// applyRlimits installs the hard caps the host supports. Missing caps are
// skipped, not faked, per the design note on pre-exec caps. This runs
// inside the re-exec trampoline, between the trampoline's own exec and the
// final syscall.Exec into the target command.
func applyRlimits(limits types.ResourceLimits) {
	if limits.CPUSeconds > 0 {
		setRlimit(unix.RLIMIT_CPU, uint64(limits.CPUSeconds))
	}
	if limits.MaxFileBytes > 0 {
		setRlimit(unix.RLIMIT_FSIZE, uint64(limits.MaxFileBytes))
	}
	if limits.MemoryBytes > 0 {
		setRlimit(unix.RLIMIT_AS, uint64(limits.MemoryBytes))
	}
	if limits.MaxProcesses > 0 {
		setRlimit(unix.RLIMIT_NPROC, uint64(limits.MaxProcesses))
	}
	if limits.DiskBytes > 0 {
		logDiskQuotaSkipped(limits.DiskBytes)
	}
}

// logDiskQuotaSkipped documents the disk-quota cap's skip branch: POSIX
// rlimits have no per-process disk-space resource, only filesystem-level
// project quotas (quotactl) scoped to a block device and requiring root
// and a quota-enabled mount, neither of which this trampoline can assume.
// The cap is skipped, not faked, same as the other per-OS gaps below.
func logDiskQuotaSkipped(bytes int64) {
	fmt.Fprintf(os.Stderr, "sandbox trampoline: disk quota cap (%d bytes) has no setrlimit equivalent on linux, skipped\n", bytes)
}

func setRlimit(resource int, value uint64) {
	rlimit := unix.Rlimit{Cur: value, Max: value}
	if err := unix.Setrlimit(resource, &rlimit); err != nil {
		fmt.Fprintf(os.Stderr, "sandbox trampoline: setrlimit(%d, %d): %v (skipped)\n", resource, value, err)
	}
}

// rusageMaxRSSBytes converts a platform Rusage's Maxrss to bytes. Linux
// reports Maxrss in kilobytes.
func rusageMaxRSSBytes(ru *syscall.Rusage) int64 {
	return ru.Maxrss * 1024
}
