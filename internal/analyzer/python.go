package analyzer

import (
	"regexp"
	"strings"

	"codesandbox/internal/types"
)

// pythonStdlib is the stdlib allow-list: these import names never resolve
// to third-party packages.
var pythonStdlib = map[string]struct{}{
	"os": {}, "sys": {}, "json": {}, "re": {}, "math": {}, "time": {},
	"datetime": {}, "collections": {}, "itertools": {}, "functools": {},
	"typing": {}, "pathlib": {}, "io": {}, "random": {}, "string": {},
	"subprocess": {}, "threading": {}, "unittest": {},
}

// pythonAliases maps import names to their installable package name.
var pythonAliases = map[string]string{
	"PIL":     "pillow",
	"cv2":     "opencv-python",
	"yaml":    "pyyaml",
	"sklearn": "scikit-learn",
}

var (
	pythonImportRe        = regexp.MustCompile(`(?m)^\s*import\s+([A-Za-z_][\w.]*)`)
	pythonFromImportRe    = regexp.MustCompile(`(?m)^\s*from\s+([A-Za-z_][\w.]*)\s+import`)
	pythonVersionOverride = regexp.MustCompile(`#\s*pip-version:\s*([\w.\-]+)\s*==\s*([\w.\-]+)`)
	pythonShebangRe       = regexp.MustCompile(`^#!.*python`)
	pythonDefRe           = regexp.MustCompile(`(?m)^\s*def\s+\w+\s*\(`)
	jsFromRe              = regexp.MustCompile(`from\s+['"]`)
	goPackageMainRe       = regexp.MustCompile(`(?m)^\s*package\s+main\b`)
)

// pythonDefaultVersions is the analyzer's own default-pin table, kept
// separate from the pipeline's install-time pin table: extraction pins
// and install pins evolve independently.
var pythonDefaultVersions = map[string]string{
	"requests":       "2.31.0",
	"numpy":          "1.24.0",
	"pandas":         "2.0.3",
	"pillow":         "10.0.0",
	"flask":          "2.3.3",
	"django":         "4.2.4",
	"boto3":          "1.28.40",
	"pytest":         "7.4.0",
	"sqlalchemy":     "2.0.20",
	"pydantic":       "2.3.0",
	"scipy":          "1.11.2",
	"matplotlib":     "3.7.2",
	"fastapi":        "0.103.1",
	"opencv-python":  "4.8.0.76",
	"pyyaml":         "6.0.1",
	"scikit-learn":   "1.3.0",
	"beautifulsoup4": "4.12.2",
	"click":          "8.1.7",
	"jinja2":         "3.1.2",
}

const pythonFallbackVersion = ">=1.0.0"

type pythonExtractor struct{}

func (pythonExtractor) Tag() types.Language { return types.Python }

// Detect: a python shebang, or (import X + def ...:), while rejecting
// obvious JS/Go markers.
func (pythonExtractor) Detect(source string) bool {
	if pythonShebangRe.MatchString(source) {
		return true
	}
	if goPackageMainRe.MatchString(source) || jsFromRe.MatchString(source) {
		return false
	}
	hasImport := pythonImportRe.MatchString(source) || pythonFromImportRe.MatchString(source)
	return hasImport && pythonDefRe.MatchString(source)
}

func (pythonExtractor) Extract(source string) []types.Package {
	overrides := map[string]string{}
	for _, m := range pythonVersionOverride.FindAllStringSubmatch(source, -1) {
		overrides[m[1]] = m[2]
	}

	names := map[string]struct{}{}
	for _, m := range pythonImportRe.FindAllStringSubmatch(source, -1) {
		names[rootModule(m[1])] = struct{}{}
	}
	for _, m := range pythonFromImportRe.FindAllStringSubmatch(source, -1) {
		names[rootModule(m[1])] = struct{}{}
	}

	var out []types.Package
	for name := range names {
		if _, std := pythonStdlib[name]; std {
			continue
		}
		resolved := name
		if alias, ok := pythonAliases[name]; ok {
			resolved = alias
		}
		version := overrides[name]
		if version == "" {
			version = pythonDefaultVersions[resolved]
		}
		if version == "" {
			version = pythonFallbackVersion
		}
		out = append(out, types.Package{Name: resolved, Version: version, Registry: types.RegistryPip})
	}
	return out
}

func rootModule(dotted string) string {
	if i := strings.IndexByte(dotted, '.'); i >= 0 {
		return dotted[:i]
	}
	return dotted
}
