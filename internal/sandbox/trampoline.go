package sandbox

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"codesandbox/internal/logging"
	"codesandbox/internal/types"
)

// TrampolineArg is the sentinel first argument that tells this binary's
// main() to run RunTrampoline instead of the HTTP server. Go's os/exec has
// no pre-exec hook (unlike e.g. a fork()+setrlimit()+exec() sequence in C
// or the preexec_fn of Python's subprocess module), so the Supervisor
// re-execs itself: the parent spawns "<self> __sandbox_rlimit_exec__
// <encoded limits> <real command> <real args...>", and the trampoline
// installs rlimits and then syscall.Exec's into the real command. The
// rlimits are therefore installed immediately before the final exec into
// the child program, satisfying the "install caps between fork and exec"
// contract without a shell wrapper.
const TrampolineArg = "__sandbox_rlimit_exec__"

// buildTrampolineCmd wraps resolved/args in a re-exec through this binary
// so caps are installed pre-exec rather than via an ulimit shell wrapper.
func buildTrampolineCmd(resolved string, args []string, limits types.ResourceLimits) *exec.Cmd {
	self, err := os.Executable()
	if err != nil {
		// Fall back to a direct exec without pre-exec caps; the post-mortem
		// usage check still applies.
		logging.L().Sugar().Warnw("could not resolve self executable, skipping pre-exec rlimits", "error", err)
		return exec.Command(resolved, args...)
	}
	trampolineArgs := append([]string{TrampolineArg, encodeLimits(limits), resolved}, args...)
	return exec.Command(self, trampolineArgs...)
}

func encodeLimits(l types.ResourceLimits) string {
	return fmt.Sprintf("cpu=%d,mem=%d,nproc=%d,fsize=%d",
		l.CPUSeconds, l.MemoryBytes, l.MaxProcesses, l.MaxFileBytes)
}

func decodeLimits(s string) types.ResourceLimits {
	var l types.ResourceLimits
	for _, field := range strings.Split(s, ",") {
		kv := strings.SplitN(field, "=", 2)
		if len(kv) != 2 {
			continue
		}
		v, _ := strconv.ParseInt(kv[1], 10, 64)
		switch kv[0] {
		case "cpu":
			l.CPUSeconds = v
		case "mem":
			l.MemoryBytes = v
		case "nproc":
			l.MaxProcesses = v
		case "fsize":
			l.MaxFileBytes = v
		}
	}
	return l
}

// RunTrampoline is invoked by cmd/sandboxd/main.go when os.Args[1] ==
// TrampolineArg; args is os.Args[2:], i.e. the encoded limits followed
// by the resolved command and its arguments. It installs the rlimits and
// execs into the real command, never returning on success.
func RunTrampoline(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "sandbox trampoline: missing limits/command")
		os.Exit(127)
	}
	limits := decodeLimits(args[0])
	command := args[1]
	rest := args[2:]

	applyRlimits(limits)

	argv := append([]string{command}, rest...)
	env := os.Environ()
	if err := syscall.Exec(command, argv, env); err != nil {
		fmt.Fprintf(os.Stderr, "sandbox trampoline: exec %s: %v\n", command, err)
		os.Exit(126)
	}
}
