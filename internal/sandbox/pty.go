package sandbox

import (
	"context"
	"fmt"
	"time"

	"github.com/creack/pty"

	"codesandbox/internal/errs"
	"codesandbox/internal/types"
)

// StreamFunc receives incremental output bytes as the child produces
// them. It is called from the copy goroutine, so implementations that
// forward to a websocket connection (internal/httpapi's streaming
// execute endpoint) must serialize their own writes.
type StreamFunc func(chunk []byte)

// PTYMessage is one inbound control message for an interactive PTY run:
// either input bytes to write into the pty, or a terminal resize
// request.
type PTYMessage struct {
	Data   []byte
	Resize bool
	Rows   uint16
	Cols   uint16
}

// ExecutePTY is the interactive/streaming counterpart to Execute, used by
// the streaming execute HTTP endpoint (internal/httpapi) for long-running
// or interactive programs. The child runs under the same pre-exec rlimit
// trampoline Execute uses; pty.Start only changes how stdio is attached,
// not how the child process is built. Unlike Execute, output is not
// buffered for a final Result.Stdout/Stderr (it has already been streamed
// to onOutput by the time ExecutePTY returns); Result.Stdout/Stderr are
// left empty. input may be nil for a non-interactive streaming run
// (output only, no write-back).
func (h *Handle) ExecutePTY(ctx context.Context, command string, args []string, env map[string]string, timeout time.Duration, input <-chan PTYMessage, onOutput StreamFunc) (*Result, error) {
	h.mu.Lock()
	if h.used {
		h.mu.Unlock()
		return nil, errs.New(errs.KindSandbox, "sandbox handle already executed")
	}
	h.used = true
	h.mu.Unlock()

	resolved, err := resolveCommand(command, h.Root)
	if err != nil {
		return nil, errs.Wrap(errs.KindSandbox, err, "command not found")
	}

	cmd := buildTrampolineCmd(resolved, args, h.Limits)
	cmd.Dir = h.Root
	cmd.Env = buildEnv(env, h.Home())

	start := time.Now()
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, errs.Wrap(errs.KindSandbox, err, "start pty")
	}
	defer ptmx.Close()

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		buf := make([]byte, 4096)
		for {
			n, rerr := ptmx.Read(buf)
			if n > 0 && onOutput != nil {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				onOutput(chunk)
			}
			if rerr != nil {
				return
			}
		}
	}()

	// Forward inbound input/resize control messages into the pty until
	// input is closed or the child's own output stream ends.
	if input != nil {
		go func() {
			for {
				select {
				case msg, ok := <-input:
					if !ok {
						return
					}
					if msg.Resize {
						if msg.Rows > 0 && msg.Cols > 0 {
							_ = pty.Setsize(ptmx, &pty.Winsize{Rows: msg.Rows, Cols: msg.Cols})
						}
						continue
					}
					if len(msg.Data) > 0 {
						_, _ = ptmx.Write(msg.Data)
					}
				case <-readDone:
					return
				}
			}
		}()
	}

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var waitErr error
	timedOut := false
	select {
	case waitErr = <-waitDone:
	case <-timer.C:
		timedOut = true
		terminate(cmd)
		select {
		case waitErr = <-waitDone:
		case <-time.After(timeoutGrace):
			forceKill(cmd)
			waitErr = <-waitDone
		}
	case <-ctx.Done():
		terminate(cmd)
		select {
		case waitErr = <-waitDone:
		case <-time.After(timeoutGrace):
			forceKill(cmd)
			waitErr = <-waitDone
		}
	}
	<-readDone
	wall := time.Since(start)

	if timedOut {
		return &Result{Status: types.StatusTimeout, Reason: fmt.Sprintf("execution exceeded timeout of %s", timeout), Stats: types.ProcessStats{WallTime: wall}}, nil
	}
	if signaledByKillOrTerm(waitErr) {
		return &Result{Status: types.StatusTimeout, Reason: "process was signal-terminated", Stats: types.ProcessStats{WallTime: wall}}, nil
	}

	stats := collectStats(cmd, wall)
	if waitErr != nil {
		if _, ok := waitErr.(interface{ ExitCode() int }); ok {
			return &Result{Status: types.StatusError, Reason: "process exited with a non-zero status", Stats: stats}, nil
		}
		return nil, errs.Wrap(errs.KindSandbox, waitErr, "wait for pty child")
	}
	if exceeded, reason := capsExceeded(stats, h.Limits); exceeded {
		return &Result{Status: types.StatusError, Reason: "resource limit exceeded: " + reason, Stats: stats}, nil
	}
	return &Result{Status: types.StatusSuccess, Stats: stats}, nil
}
