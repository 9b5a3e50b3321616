// Package analyzer implements the dependency analyzer: a tag-agnostic
// classifier plus per-tag extractor that reads opaque source text,
// identifies the language, and emits a normalized, deduplicated set of
// Package values. Each tag carries its own regex set, stdlib allow-list,
// alias table, and default-versions table; the whole package is
// side-effect-free.
package analyzer

import (
	"codesandbox/internal/errs"
	"codesandbox/internal/metrics"
	"codesandbox/internal/types"
)

// Extractor detects whether source text belongs to its tag and, if so,
// extracts the third-party packages it imports.
type Extractor interface {
	Tag() types.Language
	Detect(source string) bool
	Extract(source string) []types.Package
}

// order is the classification sequence: first yes wins. Ambiguous source
// (e.g. Go's bare "package main" with no imports) is deliberately
// resolved by detector order, not by a best-match scoring scheme.
var order = []Extractor{
	pythonExtractor{},
	javascriptExtractor{},
	typescriptExtractor{},
	rustExtractor{},
	goExtractor{},
}

// Detect returns the first detector (in order) that accepts source, or a
// Validation error when none does.
func Detect(source string) (types.Language, error) {
	for _, ext := range order {
		if ext.Detect(source) {
			metrics.Get().AnalyzerDetections.WithLabelValues(string(ext.Tag())).Inc()
			return ext.Tag(), nil
		}
	}
	metrics.Get().AnalyzerDetections.WithLabelValues("unknown").Inc()
	return "", errs.New(errs.KindValidation, "could not determine language")
}

// Analyze runs Detect then Extract, returning a deduplicated Package set.
func Analyze(source string) (types.Language, []types.Package, error) {
	for _, ext := range order {
		if ext.Detect(source) {
			metrics.Get().AnalyzerDetections.WithLabelValues(string(ext.Tag())).Inc()
			return ext.Tag(), types.DedupePackages(ext.Extract(source)), nil
		}
	}
	metrics.Get().AnalyzerDetections.WithLabelValues("unknown").Inc()
	return "", nil, errs.New(errs.KindValidation, "could not determine language")
}
