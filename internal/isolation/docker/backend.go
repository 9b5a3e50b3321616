// Package docker implements a secondary sandbox backend that runs the
// pipeline's stage-5 run command inside a Docker container instead of a
// host process with pre-exec rlimits. Selected via
// config.Config.IsolationBackend == "docker" (see cmd/sandboxd/main.go).
//
// Stages 1-4 (ensure-directories/scaffold/install/compile) still run as
// host processes via the same internal/pipeline implementations the
// process backend uses: those stages invoke trusted, already-installed
// toolchains (go, npm, pip, cargo, ...) to produce the workspace and
// entry-point artifact. Only stage 5 — running the caller-supplied,
// untrusted program — moves into a container, bind-mounting the sandbox
// root with networking disabled.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"

	"codesandbox/internal/errs"
	"codesandbox/internal/logging"
	"codesandbox/internal/sandbox"
	"codesandbox/internal/types"
)

// imageFor maps a resolved stage-5 command's basename to the container
// image that can run it. Compiled-language entry points (./code-execution,
// a Rust release binary) fall back to a minimal image that runs only
// statically linked binaries; the go/rust pipelines pass no flag that
// forces static linking.
var imageFor = map[string]string{
	"python3": "python:3.11-slim",
	"node":    "node:20-slim",
	"php":     "php:8.3-cli-alpine",
}

const defaultImage = "alpine:3.19"

// Backend implements sandbox.Backend using Docker containers for stage 5.
type Backend struct {
	client      *client.Client
	networkMode string // "none" disables networking inside the container
}

// NewBackend dials the Docker daemon via DOCKER_HOST/the default socket
// and negotiates the API version, mirroring
// client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation()).
func NewBackend() (*Backend, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errs.Wrap(errs.KindSystem, err, "create docker client")
	}
	return &Backend{client: cli, networkMode: "none"}, nil
}

// Close releases the underlying Docker client connection.
func (b *Backend) Close() error { return b.client.Close() }

// NewSandbox creates the same host-side root layout the process backend
// uses (stages 1-4 still run as host processes against this directory);
// the container only mounts it for stage 5.
func (b *Backend) NewSandbox(baseDir string, limits types.ResourceLimits) (sandbox.Supervisee, error) {
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), "codesandbox-docker")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, errs.Wrap(errs.KindSandbox, err, "create sandbox base dir")
	}
	id := uuid.NewString()
	root := filepath.Join(baseDir, "sandbox-"+id)
	for _, d := range []string{"bin", "lib", "usr", "tmp", "home"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			_ = os.RemoveAll(root)
			return nil, errs.Wrap(errs.KindSandbox, err, fmt.Sprintf("create sandbox subdir %s", d))
		}
	}
	return &Handle{id: id, root: root, limits: limits, backend: b}, nil
}

// Handle is the Docker-backed Supervisee: one Execute call runs one
// short-lived container, bind-mounting the sandbox root read-write.
type Handle struct {
	id      string
	root    string
	limits  types.ResourceLimits
	backend *Backend
}

func (h *Handle) SandboxID() string { return h.id }
func (h *Handle) RootPath() string  { return h.root }
func (h *Handle) Tmp() string       { return filepath.Join(h.root, "tmp") }
func (h *Handle) Home() string      { return filepath.Join(h.root, "home") }

// Close removes the sandbox root. Any container this Handle started is
// already removed by Execute's own cleanup before Close is reached.
func (h *Handle) Close() error {
	if err := os.RemoveAll(h.root); err != nil {
		logging.L().Sugar().Warnw("docker sandbox cleanup failed", "sandbox_id", h.id, "error", err)
		return err
	}
	return nil
}

// Execute runs command/args inside a fresh container, mirroring the
// process backend's contract: env merged with PATH/HOME, stdin streamed
// and closed immediately, graceful-then-forced termination on timeout
// (SIGTERM, a 10 ms grace, then SIGKILL, both via ContainerKill), and post-mortem
// stats populated from what the container runtime reports (wall time
// only — the Docker API does not expose the same rusage fields
// os/exec.ProcessState does, so MaxRSS/page-fault/context-switch fields
// are left zero here per the design note "fields are zero rather than
// synthesized").
func (h *Handle) Execute(ctx context.Context, command string, args []string, env map[string]string, stdinPayload []byte, hasStdin bool, timeout time.Duration, dir string) (*sandbox.Result, error) {
	image := imageFor[filepath.Base(command)]
	if image == "" {
		image = defaultImage
	}

	workDir := "/sandbox"
	if dir == "" {
		dir = h.root
	}
	if rel, relErr := filepath.Rel(h.root, dir); relErr == nil && rel != "." {
		workDir = filepath.Join(workDir, rel)
	}

	// Same environment contract as the process backend: the caller's env
	// plus PATH and HOME, nothing else — both rewritten to container paths.
	envList := make([]string, 0, len(env)+2)
	for k, v := range env {
		envList = append(envList, k+"="+v)
	}
	envList = append(envList,
		"PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin",
		"HOME=/sandbox/home")

	cfg := &container.Config{
		Image:      image,
		Cmd:        append([]string{command}, args...),
		Env:        envList,
		WorkingDir: workDir,
		Tty:        false,
		OpenStdin:  hasStdin,
		StdinOnce:  hasStdin,
		Labels:     map[string]string{"codesandbox.sandbox_id": h.id},
	}

	hostCfg := &container.HostConfig{
		Binds:      []string{h.root + ":" + workDir},
		Resources:  h.resources(),
		AutoRemove: false,
	}
	if h.backend.networkMode != "" {
		hostCfg.NetworkMode = container.NetworkMode(h.backend.networkMode)
	}

	start := time.Now()
	created, err := h.backend.client.ContainerCreate(ctx, cfg, hostCfg, &network.NetworkingConfig{}, nil, "codesandbox-"+h.id)
	if err != nil {
		return nil, errs.Wrap(errs.KindSandbox, err, "create docker container")
	}
	containerID := created.ID
	defer h.remove(containerID)

	if hasStdin {
		attach, attachErr := h.backend.client.ContainerAttach(ctx, containerID, container.AttachOptions{Stream: true, Stdin: true})
		if attachErr == nil {
			go func() {
				_, _ = attach.Conn.Write(stdinPayload)
				attach.CloseWrite()
			}()
		}
	}

	if err := h.backend.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return nil, errs.Wrap(errs.KindSandbox, err, "start docker container")
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	statusCh, errCh := h.backend.client.ContainerWait(waitCtx, containerID, container.WaitConditionNotRunning)

	res := &sandbox.Result{}
	select {
	case waitErr := <-errCh:
		_ = h.backend.client.ContainerKill(ctx, containerID, "TERM")
		time.Sleep(10 * time.Millisecond)
		_ = h.backend.client.ContainerKill(ctx, containerID, "KILL")
		res.Status = types.StatusTimeout
		res.Reason = fmt.Sprintf("execution exceeded timeout of %s", timeout)
		if waitErr != nil && waitCtx.Err() == nil {
			return nil, errs.Wrap(errs.KindSandbox, waitErr, "wait for docker container")
		}
	case status := <-statusCh:
		stdout, stderr := h.logs(ctx, containerID)
		res.Stdout, res.Stderr = stdout, stderr
		res.Stats.WallTime = time.Since(start)
		if status.StatusCode == 0 {
			res.Status = types.StatusSuccess
		} else if status.StatusCode == 137 { // SIGKILL, typically an OOM-killed cgroup
			res.Status = types.StatusError
			res.Reason = "resource limit exceeded: container killed (likely memory cap)"
		} else {
			res.Status = types.StatusError
			res.Reason = fmt.Sprintf("process exited with status %d", status.StatusCode)
		}
		return res, nil
	case <-waitCtx.Done():
		_ = h.backend.client.ContainerKill(ctx, containerID, "TERM")
		time.Sleep(10 * time.Millisecond)
		_ = h.backend.client.ContainerKill(ctx, containerID, "KILL")
		res.Status = types.StatusTimeout
		res.Reason = fmt.Sprintf("execution exceeded timeout of %s", timeout)
	}
	res.Stats.WallTime = time.Since(start)
	return res, nil
}

func (h *Handle) resources() container.Resources {
	r := container.Resources{}
	if h.limits.MemoryBytes > 0 {
		r.Memory = h.limits.MemoryBytes
	}
	if h.limits.MaxProcesses > 0 {
		pids := h.limits.MaxProcesses
		r.PidsLimit = &pids
	}
	if h.limits.CPUSeconds > 0 {
		// CPUQuota/CPUPeriod bound CPU *rate*, not cumulative seconds; one
		// full core is the closest stand-in available to the container
		// resource model, with the wall-clock timeout doing the rest of
		// the enforcement the process backend's RLIMIT_CPU would do.
		r.CPUPeriod = 100000
		r.CPUQuota = 100000
	}
	return r
}

func (h *Handle) logs(ctx context.Context, containerID string) (stdout, stderr string) {
	reader, err := h.backend.client.ContainerLogs(ctx, containerID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return "", ""
	}
	defer reader.Close()

	var outBuf, errBuf bytes.Buffer
	_, _ = stdcopy.StdCopy(&outBuf, &errBuf, reader)
	return outBuf.String(), errBuf.String()
}

func (h *Handle) remove(containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.backend.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		logging.L().Sugar().Warnw("failed to remove docker container", "container_id", containerID, "error", err)
	}
}

var _ sandbox.Backend = (*Backend)(nil)
