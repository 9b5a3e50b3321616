// Package toolinstall implements the host toolchain installer: given a
// missing tool name, resolve it to a native package name and invoke the
// platform package manager to install it, updating the manager's package
// index at most once per process.
package toolinstall

import (
	"context"
	"os/exec"
	"runtime"
	"sync"

	"codesandbox/internal/errs"
	"codesandbox/internal/logging"
)

// Manager abstracts one platform package manager.
type Manager interface {
	Name() string
	Available() bool
	PackageName(tool string) string
	UpdateIndex(ctx context.Context) error
	Install(ctx context.Context, pkg string) error
}

// aptManager shells out to apt-get.
type aptManager struct {
	packageMap map[string]string
}

func newAptManager() *aptManager {
	return &aptManager{packageMap: map[string]string{
		"python":   "python3",
		"pip":      "python3-pip",
		"node":     "nodejs",
		"npm":      "npm",
		"java":     "openjdk-17-jdk",
		"javac":    "openjdk-17-jdk",
		"mvn":      "maven",
		"php":      "php-cli",
		"composer": "composer",
		"g++":      "g++",
		"make":     "make",
		"cmake":    "cmake",
		"go":       "golang",
		"cargo":    "cargo",
		"rustc":    "rustc",
		"tsc":      "node-typescript",
	}}
}

func (m *aptManager) Name() string { return "apt" }

func (m *aptManager) Available() bool {
	_, err := exec.LookPath("apt-get")
	return err == nil
}

func (m *aptManager) PackageName(tool string) string {
	if pkg, ok := m.packageMap[tool]; ok {
		return pkg
	}
	return tool
}

func (m *aptManager) UpdateIndex(ctx context.Context) error {
	return runQuiet(ctx, "apt-get", "update", "-qq")
}

func (m *aptManager) Install(ctx context.Context, pkg string) error {
	return runQuiet(ctx, "apt-get", "install", "-y", "-qq", "--no-install-recommends", pkg)
}

// brewManager shells out to Homebrew.
type brewManager struct {
	packageMap map[string]string
}

func newBrewManager() *brewManager {
	return &brewManager{packageMap: map[string]string{
		"python":   "python@3.11",
		"pip":      "python@3.11",
		"node":     "node",
		"npm":      "node",
		"java":     "openjdk@17",
		"javac":    "openjdk@17",
		"mvn":      "maven",
		"php":      "php",
		"composer": "composer",
		"g++":      "gcc",
		"make":     "make",
		"cmake":    "cmake",
		"go":       "go",
		"cargo":    "rust",
		"rustc":    "rust",
		"tsc":      "typescript",
	}}
}

func (m *brewManager) Name() string { return "brew" }

func (m *brewManager) Available() bool {
	_, err := exec.LookPath("brew")
	return err == nil
}

func (m *brewManager) PackageName(tool string) string {
	if pkg, ok := m.packageMap[tool]; ok {
		return pkg
	}
	return tool
}

// UpdateIndex is a no-op: brew refreshes its formulae index on install
// rather than through a separate update step.
func (m *brewManager) UpdateIndex(ctx context.Context) error { return nil }

func (m *brewManager) Install(ctx context.Context, pkg string) error {
	return runQuiet(ctx, "brew", "install", pkg)
}

func runQuiet(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return errs.Wrap(errs.KindSystem, err, name+" "+joinArgs(args)+": "+string(out))
	}
	return nil
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}

// Installer finds the available package manager for the current OS and
// installs tools through it, updating its index at most once per process
// lifetime.
type Installer struct {
	managers []Manager

	mu      sync.Mutex
	updated map[string]bool
}

// New builds an Installer with the package managers plausible for the
// current OS.
func New() *Installer {
	var managers []Manager
	switch runtime.GOOS {
	case "linux":
		managers = []Manager{newAptManager()}
	case "darwin":
		managers = []Manager{newBrewManager()}
	default:
		managers = nil
	}
	return &Installer{managers: managers, updated: map[string]bool{}}
}

func (i *Installer) available() Manager {
	for _, m := range i.managers {
		if m.Available() {
			return m
		}
	}
	return nil
}

// Install resolves tool to its native package name and installs it
// through the first available manager, updating that manager's index
// once per process. Returns a System error when no manager is available.
func (i *Installer) Install(ctx context.Context, tool string) error {
	m := i.available()
	if m == nil {
		return errs.New(errs.KindSystem, "no package manager available for tool "+tool)
	}

	i.mu.Lock()
	needsUpdate := !i.updated[m.Name()]
	if needsUpdate {
		i.updated[m.Name()] = true
	}
	i.mu.Unlock()

	if needsUpdate {
		if err := m.UpdateIndex(ctx); err != nil {
			logging.L().Sugar().Warnw("package index update failed", "manager", m.Name(), "error", err)
		}
	}

	pkg := m.PackageName(tool)
	logging.L().Sugar().Infow("installing host tool", "tool", tool, "package", pkg, "manager", m.Name())
	return m.Install(ctx, pkg)
}
