package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"codesandbox/internal/types"
)

func init() { Register(&javaPipeline{}) }

// javaClassNameRe extracts the public class name so the source file can be
// named "<ClassName>.java" as javac requires.
var javaClassNameRe = regexp.MustCompile(`public\s+class\s+(\w+)`)

const javaClassNameFile = ".java-class-name"

// javaPipeline: javac compiles <ClassName>.java, java runs the resulting
// class. The Pipeline instance is shared process-wide across concurrent
// requests, so the class name discovered at compile time is recorded in
// the sandbox root itself (unique per request) rather than on the
// pipeline, avoiding cross-request shared mutable state.
type javaPipeline struct{}

func (p *javaPipeline) Tag() types.Language     { return types.Java }
func (p *javaPipeline) RequiredTools() []string { return []string{"javac", "java"} }
func (p *javaPipeline) EnsureDirectories(root string) error {
	return ensureDirs(root, "tmp", "src", "build")
}
func (p *javaPipeline) ScaffoldProject(ctx context.Context, root string) error { return nil }

func (p *javaPipeline) InstallDependencies(ctx context.Context, root string, deps []types.Dependency) error {
	return nil
}

func (p *javaPipeline) Compile(ctx context.Context, root string, source []byte) error {
	className := "Main"
	if m := javaClassNameRe.FindSubmatch(source); m != nil {
		className = string(m[1])
	}
	if err := writeFile(filepath.Join(root, className+".java"), source); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(root, javaClassNameFile), []byte(className)); err != nil {
		return err
	}
	return runCompile(ctx, root, types.Java, "javac", className+".java")
}

func (p *javaPipeline) Run(root string) (string, []string, map[string]string) {
	className := "Main"
	if b, err := os.ReadFile(filepath.Join(root, javaClassNameFile)); err == nil {
		className = strings.TrimSpace(string(b))
	}
	return "java", []string{className}, nil
}
