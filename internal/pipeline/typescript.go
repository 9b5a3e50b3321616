package pipeline

import (
	"context"
	"encoding/json"
	"path/filepath"

	"codesandbox/internal/errs"
	"codesandbox/internal/types"
)

func init() { Register(&typescriptPipeline{}) }

// typescriptPipeline: npm manifest + tsconfig.json (target ES2020,
// commonjs, strict), TypeScript always installed locally, source moved to
// src/index.ts, compiled with the local tsc into dist/.
type typescriptPipeline struct{}

func (p *typescriptPipeline) Tag() types.Language { return types.TypeScript }

func (p *typescriptPipeline) RequiredTools() []string { return []string{"node", "npm", "tsc"} }

func (p *typescriptPipeline) EnsureDirectories(root string) error {
	return ensureDirs(root, "tmp", "src", "build", "dist")
}

func (p *typescriptPipeline) ScaffoldProject(ctx context.Context, root string) error {
	manifest := map[string]any{
		"name":         "sandboxed-execution",
		"version":      "1.0.0",
		"private":      true,
		"dependencies": map[string]string{"@types/node": "^20.0.0"},
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return errs.Wrap(errs.KindSystem, err, "marshal package.json")
	}
	if err := writeFile(filepath.Join(root, "package.json"), data); err != nil {
		return err
	}

	tsconfig := map[string]any{
		"compilerOptions": map[string]any{
			"target":                           "ES2020",
			"module":                           "CommonJS",
			"strict":                           true,
			"esModuleInterop":                  true,
			"skipLibCheck":                     true,
			"forceConsistentCasingInFileNames": true,
			"outDir":                           "dist",
		},
	}
	tsdata, err := json.MarshalIndent(tsconfig, "", "  ")
	if err != nil {
		return errs.Wrap(errs.KindSystem, err, "marshal tsconfig.json")
	}
	if err := writeFile(filepath.Join(root, "tsconfig.json"), tsdata); err != nil {
		return err
	}

	return run(ctx, root, types.TypeScript, "npm", "install", "--quiet", "typescript", "@types/node")
}

func (p *typescriptPipeline) InstallDependencies(ctx context.Context, root string, deps []types.Dependency) error {
	if len(deps) == 0 {
		return nil
	}
	args := []string{"install"}
	for _, d := range deps {
		args = append(args, DepSpec(d, typescriptVersions{}, "@"))
	}
	return run(ctx, root, types.TypeScript, "npm", args...)
}

func (p *typescriptPipeline) Compile(ctx context.Context, root string, source []byte) error {
	if err := writeFile(filepath.Join(root, "src", "index.ts"), source); err != nil {
		return err
	}
	// The local compiler was installed at scaffold time; npx resolves it
	// from node_modules/.bin.
	return runCompile(ctx, root, types.TypeScript, "npx", "tsc")
}

func (p *typescriptPipeline) Run(root string) (string, []string, map[string]string) {
	return "node", []string{"dist/index.js"}, nil
}

type typescriptVersions struct{}

var typescriptDefaultVersions = map[string]string{
	"react":        "18.2.0",
	"@types/react": "18.2.21",
	"next":         "13.4.19",
	"zod":          "3.22.2",
	"express":      "4.18.2",
	"@types/node":  "20.5.9",
}

func (typescriptVersions) DefaultVersion(name string) (string, bool) {
	v, ok := typescriptDefaultVersions[name]
	return v, ok
}

func (typescriptVersions) FallbackVersion() string { return "^1.0.0" }
