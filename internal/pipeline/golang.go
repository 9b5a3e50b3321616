package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"codesandbox/internal/types"
)

func init() { Register(&goPipeline{}) }

// goPipeline: go mod init at scaffold, dependencies installed by
// rewriting go.mod with a require block and running go mod tidy + verify,
// source renamed to main.go and built to ./code-execution.
type goPipeline struct{}

func (p *goPipeline) Tag() types.Language { return types.Go }

func (p *goPipeline) RequiredTools() []string { return []string{"go"} }

func (p *goPipeline) EnsureDirectories(root string) error {
	return ensureDirs(root, "tmp", "src", "build")
}

func (p *goPipeline) ScaffoldProject(ctx context.Context, root string) error {
	if err := run(ctx, root, types.Go, "go", "mod", "init", "sandboxed-execution"); err != nil {
		return err
	}
	return run(ctx, root, types.Go, "go", "mod", "edit", "-go="+goToolchainVersion)
}

func (p *goPipeline) InstallDependencies(ctx context.Context, root string, deps []types.Dependency) error {
	if len(deps) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("module sandboxed-execution\n\ngo " + goToolchainVersion + "\n\nrequire (\n")
	var sourced []types.Dependency
	for _, d := range deps {
		if d.Source != "" {
			// A VCS source overrides the module path; go get resolves its
			// version from the repository after the require block is written.
			sourced = append(sourced, d)
			continue
		}
		version := ResolveVersion(d, goVersions{})
		if !strings.HasPrefix(version, "v") {
			version = "v" + version
		}
		fmt.Fprintf(&b, "\t%s %s\n", d.Name, version)
	}
	b.WriteString(")\n")
	if err := writeFile(filepath.Join(root, "go.mod"), []byte(b.String())); err != nil {
		return err
	}
	for _, d := range sourced {
		if err := run(ctx, root, types.Go, "go", "get", d.Source+"@latest"); err != nil {
			return err
		}
	}
	if err := run(ctx, root, types.Go, "go", "mod", "tidy"); err != nil {
		return err
	}
	return run(ctx, root, types.Go, "go", "mod", "verify")
}

func (p *goPipeline) Compile(ctx context.Context, root string, source []byte) error {
	target := filepath.Join(root, "main.go")
	if err := writeFile(target, source); err != nil {
		return err
	}
	return runCompile(ctx, root, types.Go, "go", "build", "-o", "code-execution")
}

func (p *goPipeline) Run(root string) (string, []string, map[string]string) {
	return "./code-execution", nil, nil
}

// goToolchainVersion is the go.mod language version stamped onto every
// scaffolded project.
const goToolchainVersion = "1.21"

type goVersions struct{}

var goDefaultVersions = map[string]string{
	"github.com/google/uuid":      "1.6.0",
	"go.uber.org/zap":             "1.27.1",
	"github.com/gin-gonic/gin":    "1.10.1",
	"github.com/stretchr/testify": "1.11.1",
	"golang.org/x/sync":           "0.19.0",
	"golang.org/x/time":           "0.12.0",
}

func (goVersions) DefaultVersion(name string) (string, bool) {
	v, ok := goDefaultVersions[name]
	return v, ok
}

func (goVersions) FallbackVersion() string { return "0.0.0" }
