package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLanguageNormalizesCaseAndAliases(t *testing.T) {
	cases := []struct {
		in   string
		want Language
		ok   bool
	}{
		{"python", Python, true},
		{"PYTHON", Python, true},
		{"py", Python, true},
		{"node", JavaScript, true},
		{"TS", TypeScript, true},
		{"golang", Go, true},
		{"rs", Rust, true},
		{"c++", CPP, true},
		{"cobol", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := ParseLanguage(c.in)
		assert.Equalf(t, c.ok, ok, "ParseLanguage(%q)", c.in)
		assert.Equalf(t, c.want, got, "ParseLanguage(%q)", c.in)
	}
}

func TestResourceLimitsValid(t *testing.T) {
	assert.True(t, DefaultResourceLimits().Valid())
	assert.False(t, ResourceLimits{}.Valid())

	partial := DefaultResourceLimits()
	partial.DiskBytes = 0
	assert.False(t, partial.Valid())
}

func TestDedupePackagesCollapsesByNameVersionRegistry(t *testing.T) {
	pkgs := []Package{
		{Name: "numpy", Version: "1.24.0", Registry: RegistryPip},
		{Name: "numpy", Version: "1.24.0", Registry: RegistryPip},
		{Name: "numpy", Version: "1.25.0", Registry: RegistryPip},
		{Name: "numpy", Version: "1.24.0", Registry: RegistryNpm},
	}
	assert.Len(t, DedupePackages(pkgs), 3)
}
