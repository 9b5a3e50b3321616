package pipeline

import (
	"context"
	"path/filepath"

	"codesandbox/internal/types"
)

func init() { Register(&cppPipeline{}) }

// cppPipeline: no package manager, g++ compiles source.cpp to a binary
// directly.
type cppPipeline struct{}

func (p *cppPipeline) Tag() types.Language     { return types.CPP }
func (p *cppPipeline) RequiredTools() []string { return []string{"g++"} }
func (p *cppPipeline) EnsureDirectories(root string) error {
	return ensureDirs(root, "tmp", "src", "build")
}
func (p *cppPipeline) ScaffoldProject(ctx context.Context, root string) error { return nil }

// InstallDependencies is a no-op: this tag has no third-party package
// registry in the core's scope (system libraries only).
func (p *cppPipeline) InstallDependencies(ctx context.Context, root string, deps []types.Dependency) error {
	return nil
}

func (p *cppPipeline) Compile(ctx context.Context, root string, source []byte) error {
	if err := writeFile(filepath.Join(root, "source.cpp"), source); err != nil {
		return err
	}
	return runCompile(ctx, root, types.CPP, "g++", "-O2", "-std=c++17", "-o", "sandboxed-execution", "source.cpp")
}

func (p *cppPipeline) Run(root string) (string, []string, map[string]string) {
	return "./sandboxed-execution", nil, nil
}
