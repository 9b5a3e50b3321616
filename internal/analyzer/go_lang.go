package analyzer

import (
	"regexp"
	"strings"

	"codesandbox/internal/types"
)

var goDefaultVersions = map[string]string{
	"github.com/google/uuid":      "1.6.0",
	"go.uber.org/zap":             "1.27.1",
	"github.com/gin-gonic/gin":    "1.10.1",
	"github.com/stretchr/testify": "1.11.1",
	"golang.org/x/sync":           "0.19.0",
	"golang.org/x/time":           "0.12.0",
	"github.com/docker/docker":    "27.2.0",
	"gorm.io/gorm":                "1.30.0",
}

const goFallbackVersion = "0.0.0"

var (
	goImportLineRe      = regexp.MustCompile(`"([\w./\-]+)"`)
	goImportBlockRe     = regexp.MustCompile(`(?s)import\s*\(([^)]*)\)`)
	goImportSingleRe    = regexp.MustCompile(`import\s+"([\w./\-]+)"`)
	goPackageDeclRe     = regexp.MustCompile(`(?m)^\s*package\s+\w+`)
	goStructRe          = regexp.MustCompile(`\btype\s+\w+\s+struct\b`)
	goFuncRe            = regexp.MustCompile(`\bfunc\s+\w*\s*\(`)
	goVersionOverrideRe = regexp.MustCompile(`//\s*go-version:\s*([\w./\-]+)\s*@\s*v?([\w.\-]+)`)
)

type goExtractor struct{}

func (goExtractor) Tag() types.Language { return types.Go }

// Detect requires a package declaration, and valid import syntax
// whenever any import exists; struct/func definitions are supporting
// signals for import-free source, not required on their own.
func (goExtractor) Detect(source string) bool {
	if !goPackageDeclRe.MatchString(source) {
		return false
	}
	if pythonShebangRe.MatchString(source) || jsFromRe.MatchString(source) {
		return false
	}
	imports := goImports(source)
	if len(imports) == 0 {
		// No imports: package declaration alone is sufficient only when at
		// least one of struct/func is also present.
		return goStructRe.MatchString(source) || goFuncRe.MatchString(source)
	}
	// Imports present: every extracted path must look like valid Go import
	// syntax (already guaranteed by goImportLineRe's quoted-string form).
	return true
}

func goImports(source string) []string {
	var paths []string
	if m := goImportBlockRe.FindStringSubmatch(source); m != nil {
		for _, line := range goImportLineRe.FindAllStringSubmatch(m[1], -1) {
			paths = append(paths, line[1])
		}
	}
	if m := goImportSingleRe.FindAllStringSubmatch(source, -1); m != nil {
		for _, line := range m {
			paths = append(paths, line[1])
		}
	}
	return paths
}

func (goExtractor) Extract(source string) []types.Package {
	overrides := map[string]string{}
	for _, m := range goVersionOverrideRe.FindAllStringSubmatch(source, -1) {
		overrides[m[1]] = m[2]
	}

	out := make([]types.Package, 0)
	seen := map[string]struct{}{}
	for _, path := range goImports(source) {
		if !isGoNonStdImport(path) {
			continue
		}
		base := goBasePackage(path)
		if _, ok := seen[base]; ok {
			continue
		}
		seen[base] = struct{}{}
		version := overrides[base]
		if version == "" {
			version = goDefaultVersions[base]
		}
		if version == "" {
			version = goFallbackVersion
		}
		out = append(out, types.Package{Name: base, Version: version, Registry: types.RegistryGo})
	}
	return out
}

// isGoNonStdImport: non-stdlib import paths have a dotted first segment
// (a host name).
func isGoNonStdImport(path string) bool {
	firstSegment := path
	if i := strings.IndexByte(path, '/'); i >= 0 {
		firstSegment = path[:i]
	}
	return strings.Contains(firstSegment, ".")
}

// goBasePackage normalizes github.com/o/r/... to its first three
// segments, and host.tld/segment... to its first two.
func goBasePackage(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) == 0 {
		return path
	}
	limit := 2
	if parts[0] == "github.com" {
		limit = 3
	}
	if len(parts) < limit {
		limit = len(parts)
	}
	return strings.Join(parts[:limit], "/")
}
