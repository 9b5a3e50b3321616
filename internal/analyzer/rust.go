package analyzer

import (
	"regexp"
	"strings"

	"codesandbox/internal/types"
)

var rustDefaultVersions = map[string]string{
	"tokio":       "1.25",
	"serde":       "1.0",
	"serde_json":  "1.0",
	"reqwest":     "0.11",
	"rand":        "0.8",
	"clap":        "4.3",
	"anyhow":      "1.0",
	"thiserror":   "1.0",
	"async-trait": "0.1",
	"uuid":        "1.4",
	"chrono":      "0.4",
}

const rustFallbackVersion = "1.0"

// rustKnownCrates canonicalizes a subset of import paths to their real
// crate names; AWS crates are hyphenated (aws_sdk_s3 -> aws-sdk-s3).
var rustKnownCrates = map[string]string{
	"serde_json":  "serde_json",
	"async_trait": "async-trait",
}

var (
	rustUseRe             = regexp.MustCompile(`use\s+([\w:]+)`)
	rustExternCrateRe     = regexp.MustCompile(`extern\s+crate\s+(\w+)`)
	rustVersionOverrideRe = regexp.MustCompile(`//\s*cargo-version:\s*([\w\-]+)\s*=\s*"([^"]+)"`)
	rustDeriveRe          = regexp.MustCompile(`#\[derive\(`)
)

type rustExtractor struct{}

func (rustExtractor) Tag() types.Language { return types.Rust }

func (rustExtractor) Detect(source string) bool {
	return rustFnMainRe.MatchString(source) || rustDeriveRe.MatchString(source) ||
		(rustUseRe.MatchString(source) && strings.Contains(source, "::"))
}

func (rustExtractor) Extract(source string) []types.Package {
	overrides := map[string]string{}
	for _, m := range rustVersionOverrideRe.FindAllStringSubmatch(source, -1) {
		overrides[m[1]] = m[2]
	}

	names := map[string]struct{}{}
	for _, m := range rustUseRe.FindAllStringSubmatch(source, -1) {
		if name, ok := rustCrateName(m[1]); ok {
			names[name] = struct{}{}
		}
	}
	for _, m := range rustExternCrateRe.FindAllStringSubmatch(source, -1) {
		names[m[1]] = struct{}{}
	}

	var out []types.Package
	for name := range names {
		canon := canonicalCrate(name)
		version := overrides[canon]
		if version == "" {
			version = rustDefaultVersions[canon]
		}
		if version == "" {
			version = rustFallbackVersion
		}
		out = append(out, types.Package{Name: canon, Version: version, Registry: types.RegistryCargo})
	}
	return out
}

func rustCrateName(path string) (string, bool) {
	root := path
	if i := strings.Index(path, "::"); i >= 0 {
		root = path[:i]
	}
	if root == "std" || root == "core" || root == "alloc" || root == "self" || root == "crate" || root == "super" {
		return "", false
	}
	return root, true
}

func canonicalCrate(name string) string {
	if canon, ok := rustKnownCrates[name]; ok {
		return canon
	}
	if strings.HasPrefix(name, "aws_") {
		return strings.ReplaceAll(name, "_", "-")
	}
	return name
}
