package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codesandbox/internal/types"
)

func TestDetectPython(t *testing.T) {
	src := "import os\nimport requests\n\ndef main():\n    print(requests.get('x'))\n"
	lang, err := Detect(src)
	require.NoError(t, err)
	assert.Equal(t, types.Python, lang)
}

func TestDetectGoRequiresPackageAndValidImportSyntax(t *testing.T) {
	src := "package main\n\nimport (\n\t\"fmt\"\n\t\"github.com/google/uuid\"\n)\n\nfunc main() {\n\tfmt.Println(uuid.New())\n}\n"
	lang, err := Detect(src)
	require.NoError(t, err)
	assert.Equal(t, types.Go, lang)
}

func TestDetectRust(t *testing.T) {
	src := "use tokio::runtime::Runtime;\n\nfn main() {\n    println!(\"hi\");\n}\n"
	lang, err := Detect(src)
	require.NoError(t, err)
	assert.Equal(t, types.Rust, lang)
}

func TestUnresolvableLanguageReturnsValidationError(t *testing.T) {
	_, err := Detect("just some plain text with no markers at all")
	assert.Error(t, err)
}

func TestPythonExtractionRemapsPILAndExcludesStdlib(t *testing.T) {
	src := "import os\nimport sys\nimport boto3\nimport numpy\nimport pandas\nfrom PIL import Image\n\ndef run():\n    pass\n"
	_, pkgs, err := Analyze(src)
	require.NoError(t, err)

	names := map[string]bool{}
	for _, p := range pkgs {
		names[p.Name] = true
	}
	assert.True(t, names["boto3"])
	assert.True(t, names["numpy"])
	assert.True(t, names["pandas"])
	assert.True(t, names["pillow"])
	assert.False(t, names["os"])
	assert.False(t, names["sys"])
	assert.Len(t, pkgs, 4)
}

func TestGoExtractionNormalizesBasePackages(t *testing.T) {
	src := "package main\n\nimport (\n\t\"github.com/google/uuid\"\n\t\"go.uber.org/zap\"\n)\n\nfunc main() {}\n"
	_, pkgs, err := Analyze(src)
	require.NoError(t, err)
	assert.Len(t, pkgs, 2)

	names := map[string]string{}
	for _, p := range pkgs {
		names[p.Name] = p.Version
	}
	assert.Equal(t, "1.6.0", names["github.com/google/uuid"])
	assert.Equal(t, "1.27.1", names["go.uber.org/zap"])
}

func TestRustExplicitVersionOverride(t *testing.T) {
	src := "// cargo-version: tokio = \"1.25\"\nuse tokio::runtime::Runtime;\n\nfn main() {}\n"
	_, pkgs, err := Analyze(src)
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, "tokio", pkgs[0].Name)
	assert.Equal(t, "1.25", pkgs[0].Version)
}

func TestJavaScriptScopedAndRelativeImports(t *testing.T) {
	src := "const s3 = require('@aws-sdk/client-s3/dist/index');\nconst local = require('./helpers');\nconst abs = require('/etc/nope');\n"
	lang, pkgs, err := Analyze(src)
	require.NoError(t, err)
	assert.Equal(t, types.JavaScript, lang)
	require.Len(t, pkgs, 1)
	assert.Equal(t, "@aws-sdk/client-s3", pkgs[0].Name)
}

func TestTypeScriptImplicitReactTypes(t *testing.T) {
	src := "interface Props { name: string }\nconst el = React.createElement('div');\n"
	lang, pkgs, err := Analyze(src)
	require.NoError(t, err)
	assert.Equal(t, types.TypeScript, lang)

	names := map[string]bool{}
	for _, p := range pkgs {
		names[p.Name] = true
	}
	assert.True(t, names["react"])
	assert.True(t, names["@types/react"])
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	src := "import os\nimport requests\n\ndef main():\n    pass\n"
	lang1, pkgs1, err1 := Analyze(src)
	lang2, pkgs2, err2 := Analyze(src)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, lang1, lang2)
	assert.ElementsMatch(t, pkgs1, pkgs2)
}
