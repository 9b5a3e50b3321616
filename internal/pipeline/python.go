package pipeline

import (
	"context"
	"path/filepath"
	"strings"

	"codesandbox/internal/types"
)

func init() { Register(&pythonPipeline{}) }

// pythonPipeline: virtualenv at venv/, requirements.txt written as
// name==version or name@source, source byte-compiled via py_compile after
// landing at source.py, run with the venv's own interpreter.
type pythonPipeline struct{}

func (p *pythonPipeline) Tag() types.Language { return types.Python }

func (p *pythonPipeline) RequiredTools() []string { return []string{"python3", "pip3", "virtualenv"} }

func (p *pythonPipeline) EnsureDirectories(root string) error {
	return ensureDirs(root, "tmp", "src", "build")
}

func (p *pythonPipeline) ScaffoldProject(ctx context.Context, root string) error {
	return run(ctx, root, types.Python, "virtualenv", "venv")
}

func (p *pythonPipeline) InstallDependencies(ctx context.Context, root string, deps []types.Dependency) error {
	if len(deps) == 0 {
		return nil
	}
	lines := make([]string, 0, len(deps))
	for _, d := range deps {
		if d.Source != "" {
			lines = append(lines, d.Name+"@"+d.Source)
			continue
		}
		lines = append(lines, d.Name+"=="+ResolveVersion(d, pythonVersions{}))
	}
	if err := writeFile(filepath.Join(root, "requirements.txt"), []byte(strings.Join(lines, "\n"))); err != nil {
		return err
	}
	pip := filepath.Join(root, "venv", "bin", "pip")
	return run(ctx, root, types.Python, pip, "install", "-r", "requirements.txt")
}

func (p *pythonPipeline) Compile(ctx context.Context, root string, source []byte) error {
	target := filepath.Join(root, "source.py")
	if err := writeFile(target, source); err != nil {
		return err
	}
	venvPython := filepath.Join(root, "venv", "bin", "python3")
	return runCompile(ctx, root, types.Python, venvPython, "-m", "py_compile", "source.py")
}

func (p *pythonPipeline) Run(root string) (string, []string, map[string]string) {
	venvPython := filepath.Join(root, "venv", "bin", "python3")
	return venvPython, []string{"source.py"}, nil
}

// pythonVersions is the default-pin table for common third-party packages,
// consulted when a caller omits a version.
type pythonVersions struct{}

var pythonDefaultVersions = map[string]string{
	"requests":   "2.31.0",
	"numpy":      "1.24.0",
	"pandas":     "2.0.3",
	"pillow":     "10.0.0",
	"flask":      "2.3.3",
	"django":     "4.2.4",
	"boto3":      "1.28.40",
	"pytest":     "7.4.0",
	"sqlalchemy": "2.0.20",
	"pydantic":   "2.3.0",
}

func (pythonVersions) DefaultVersion(name string) (string, bool) {
	v, ok := pythonDefaultVersions[name]
	return v, ok
}

func (pythonVersions) FallbackVersion() string { return ">=1.0.0" }
