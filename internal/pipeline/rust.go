package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"codesandbox/internal/types"
)

func init() { Register(&rustPipeline{}) }

// rustPipeline: Cargo.toml (package name, edition 2021), deps regenerated
// into [dependencies], source moved to src/main.rs, release build.
type rustPipeline struct{}

func (p *rustPipeline) Tag() types.Language { return types.Rust }

func (p *rustPipeline) RequiredTools() []string { return []string{"cargo", "rustc"} }

func (p *rustPipeline) EnsureDirectories(root string) error {
	return ensureDirs(root, "tmp", "src", "build", "target")
}

func (p *rustPipeline) ScaffoldProject(ctx context.Context, root string) error {
	manifest := "[package]\nname = \"sandboxed-execution\"\nversion = \"0.1.0\"\nedition = \"2021\"\n\n[dependencies]\n"
	return writeFile(filepath.Join(root, "Cargo.toml"), []byte(manifest))
}

func (p *rustPipeline) InstallDependencies(ctx context.Context, root string, deps []types.Dependency) error {
	if len(deps) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("[package]\nname = \"sandboxed-execution\"\nversion = \"0.1.0\"\nedition = \"2021\"\n\n[dependencies]\n")
	for _, d := range deps {
		if d.Source != "" {
			fmt.Fprintf(&b, "%s = { git = %q }\n", d.Name, d.Source)
			continue
		}
		fmt.Fprintf(&b, "%s = %q\n", d.Name, ResolveVersion(d, rustVersions{}))
	}
	return writeFile(filepath.Join(root, "Cargo.toml"), []byte(b.String()))
}

func (p *rustPipeline) Compile(ctx context.Context, root string, source []byte) error {
	if err := writeFile(filepath.Join(root, "src", "main.rs"), source); err != nil {
		return err
	}
	return runCompile(ctx, root, types.Rust, "cargo", "build", "--release", "--target-dir", "target")
}

func (p *rustPipeline) Run(root string) (string, []string, map[string]string) {
	// The ./ prefix makes the supervisor resolve the binary relative to
	// the sandbox root rather than PATH.
	return "./" + filepath.Join("target", "release", "sandboxed-execution"), nil, nil
}

type rustVersions struct{}

var rustDefaultVersions = map[string]string{
	"tokio":      "1.25",
	"serde":      "1.0",
	"serde_json": "1.0",
	"reqwest":    "0.11",
	"rand":       "0.8",
	"clap":       "4.3",
}

func (rustVersions) DefaultVersion(name string) (string, bool) {
	v, ok := rustDefaultVersions[name]
	return v, ok
}

func (rustVersions) FallbackVersion() string { return "1.0" }
