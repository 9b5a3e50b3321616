package pipeline

import (
	"context"
	"encoding/json"
	"path/filepath"

	"codesandbox/internal/errs"
	"codesandbox/internal/types"
)

func init() { Register(&javascriptPipeline{}) }

// javascriptPipeline: a minimal package.json, npm install with
// name@version/name@source specs, rename to source.js, run with node.
type javascriptPipeline struct{}

func (p *javascriptPipeline) Tag() types.Language { return types.JavaScript }

func (p *javascriptPipeline) RequiredTools() []string { return []string{"node", "npm"} }

func (p *javascriptPipeline) EnsureDirectories(root string) error {
	return ensureDirs(root, "tmp", "src", "build", "node_modules")
}

func (p *javascriptPipeline) ScaffoldProject(ctx context.Context, root string) error {
	manifest := map[string]any{
		"name":    "sandboxed-execution",
		"version": "1.0.0",
		"private": true,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return errs.Wrap(errs.KindSystem, err, "marshal package.json")
	}
	return writeFile(filepath.Join(root, "package.json"), data)
}

func (p *javascriptPipeline) InstallDependencies(ctx context.Context, root string, deps []types.Dependency) error {
	if len(deps) == 0 {
		return nil
	}
	args := []string{"install"}
	for _, d := range deps {
		args = append(args, DepSpec(d, javascriptVersions{}, "@"))
	}
	return run(ctx, root, types.JavaScript, "npm", args...)
}

func (p *javascriptPipeline) Compile(ctx context.Context, root string, source []byte) error {
	return writeFile(filepath.Join(root, "source.js"), source)
}

func (p *javascriptPipeline) Run(root string) (string, []string, map[string]string) {
	return "node", []string{"source.js"}, nil
}

type javascriptVersions struct{}

var javascriptDefaultVersions = map[string]string{
	"lodash":    "4.17.21",
	"axios":     "1.5.0",
	"express":   "4.18.2",
	"moment":    "2.29.4",
	"chalk":     "4.1.2",
	"commander": "11.0.0",
	"uuid":      "9.0.0",
}

func (javascriptVersions) DefaultVersion(name string) (string, bool) {
	v, ok := javascriptDefaultVersions[name]
	return v, ok
}

func (javascriptVersions) FallbackVersion() string { return "^1.0.0" }
