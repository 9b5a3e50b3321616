package analyzer

import (
	"regexp"
	"strings"

	"codesandbox/internal/types"
)

var javascriptDefaultVersions = map[string]string{
	"lodash":     "4.17.21",
	"axios":      "1.5.0",
	"express":    "4.18.2",
	"moment":     "2.29.4",
	"chalk":      "4.1.2",
	"commander":  "11.0.0",
	"uuid":       "9.0.0",
	"react":      "18.2.0",
	"react-dom":  "18.2.0",
	"dotenv":     "16.3.1",
	"node-fetch": "3.3.2",
}

const javascriptFallbackVersion = "^1.0.0"

var (
	jsRequireRe         = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
	jsImportRe          = regexp.MustCompile(`import\s+(?:[\w*{}\s,]+from\s+)?['"]([^'"]+)['"]`)
	jsVersionOverrideRe = regexp.MustCompile(`//\s*npm:\s*([\w@/.\-]+)@([\w.\-]+)`)
	tsImportTypeRe      = regexp.MustCompile(`import\s+type\b`)
	rustFnMainRe        = regexp.MustCompile(`\bfn\s+main\s*\(`)
)

type javascriptExtractor struct{}

func (javascriptExtractor) Tag() types.Language { return types.JavaScript }

func (javascriptExtractor) Detect(source string) bool {
	if tsImportTypeRe.MatchString(source) || rustFnMainRe.MatchString(source) ||
		goPackageMainRe.MatchString(source) || pythonShebangRe.MatchString(source) {
		return false
	}
	return jsRequireRe.MatchString(source) || jsImportRe.MatchString(source)
}

func (javascriptExtractor) Extract(source string) []types.Package {
	overrides := map[string]string{}
	for _, m := range jsVersionOverrideRe.FindAllStringSubmatch(source, -1) {
		overrides[m[1]] = m[2]
	}

	names := map[string]struct{}{}
	for _, m := range jsRequireRe.FindAllStringSubmatch(source, -1) {
		if name, ok := jsPackageName(m[1]); ok {
			names[name] = struct{}{}
		}
	}
	for _, m := range jsImportRe.FindAllStringSubmatch(source, -1) {
		if name, ok := jsPackageName(m[1]); ok {
			names[name] = struct{}{}
		}
	}

	var out []types.Package
	for name := range names {
		version := overrides[name]
		if version == "" {
			version = javascriptDefaultVersions[name]
		}
		if version == "" {
			version = javascriptFallbackVersion
		}
		out = append(out, types.Package{Name: name, Version: version, Registry: types.RegistryNpm})
	}
	return out
}

// jsPackageName excludes local/relative imports and truncates scoped
// packages (@scope/name) to their first two path segments.
func jsPackageName(path string) (string, bool) {
	if strings.HasPrefix(path, ".") || strings.HasPrefix(path, "/") {
		return "", false
	}
	parts := strings.Split(path, "/")
	if strings.HasPrefix(path, "@") && len(parts) >= 2 {
		return parts[0] + "/" + parts[1], true
	}
	return parts[0], true
}
