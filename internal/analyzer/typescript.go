package analyzer

import (
	"regexp"

	"codesandbox/internal/types"
)

var typescriptDefaultVersions = map[string]string{
	"react":        "18.2.0",
	"react-dom":    "18.2.0",
	"@types/react": "18.2.21",
	"next":         "13.4.19",
	"zod":          "3.22.2",
	"express":      "4.18.2",
	"@types/node":  "20.5.9",
	"axios":        "1.5.0",
	"rxjs":         "7.8.1",
	"typeorm":      "0.3.17",
	"prisma":       "5.2.0",
}

const typescriptFallbackVersion = "^1.0.0"

var (
	tsInterfaceRe = regexp.MustCompile(`\binterface\s+\w+`)
	tsAsConstRe   = regexp.MustCompile(`\bas\s+const\b`)
	tsFCGenericRe = regexp.MustCompile(`:\s*FC<`)
	tsTypeAnnoRe  = regexp.MustCompile(`:\s*(string|number|boolean|void|any|unknown)\b`)
	reactImportRe = regexp.MustCompile(`from\s+['"]react['"]`)
	reactJSXRe    = regexp.MustCompile(`React\.\w+|</?[A-Z]\w*[\s/>]`)
)

type typescriptExtractor struct{}

func (typescriptExtractor) Tag() types.Language { return types.TypeScript }

// Detect requires at least one TS-only construct, rejecting
// Rust/Go/Python markers first.
func (typescriptExtractor) Detect(source string) bool {
	if rustFnMainRe.MatchString(source) || goPackageMainRe.MatchString(source) || pythonShebangRe.MatchString(source) {
		return false
	}
	return tsImportTypeRe.MatchString(source) || tsInterfaceRe.MatchString(source) ||
		tsFCGenericRe.MatchString(source) || tsAsConstRe.MatchString(source) || tsTypeAnnoRe.MatchString(source)
}

func (typescriptExtractor) Extract(source string) []types.Package {
	overrides := map[string]struct{}{}
	for _, m := range jsVersionOverrideRe.FindAllStringSubmatch(source, -1) {
		overrides[m[1]] = struct{}{}
	}

	base := javascriptExtractor{}.Extract(source)
	// Re-resolve against the TypeScript-specific default table instead of
	// the JavaScript one, since the same import surface can carry
	// different pinned versions per tag. Explicit inline overrides still
	// win over either table.
	for i := range base {
		base[i].Registry = types.RegistryNpm
		if _, explicit := overrides[base[i].Name]; explicit {
			continue
		}
		if v, ok := typescriptDefaultVersions[base[i].Name]; ok {
			base[i].Version = v
		}
	}

	if reactImportRe.MatchString(source) || reactJSXRe.MatchString(source) {
		base = append(base,
			types.Package{Name: "react", Version: typescriptDefaultVersions["react"], Registry: types.RegistryNpm},
			types.Package{Name: "@types/react", Version: typescriptDefaultVersions["@types/react"], Registry: types.RegistryNpm},
		)
	}

	return types.DedupePackages(base)
}
