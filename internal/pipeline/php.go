package pipeline

import (
	"context"
	"path/filepath"

	"codesandbox/internal/types"
)

func init() { Register(&phpPipeline{}) }

// phpPipeline: interpreted, no compile stage, php runs source.php
// directly.
type phpPipeline struct{}

func (p *phpPipeline) Tag() types.Language     { return types.PHP }
func (p *phpPipeline) RequiredTools() []string { return []string{"php"} }
func (p *phpPipeline) EnsureDirectories(root string) error {
	return ensureDirs(root, "tmp", "src", "build")
}
func (p *phpPipeline) ScaffoldProject(ctx context.Context, root string) error { return nil }

func (p *phpPipeline) InstallDependencies(ctx context.Context, root string, deps []types.Dependency) error {
	return nil
}

func (p *phpPipeline) Compile(ctx context.Context, root string, source []byte) error {
	return writeFile(filepath.Join(root, "source.php"), source)
}

func (p *phpPipeline) Run(root string) (string, []string, map[string]string) {
	return "php", []string{"source.php"}, nil
}
