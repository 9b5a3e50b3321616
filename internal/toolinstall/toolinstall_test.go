package toolinstall

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAptPackageNameMapping(t *testing.T) {
	m := newAptManager()
	assert.Equal(t, "python3", m.PackageName("python"))
	assert.Equal(t, "openjdk-17-jdk", m.PackageName("java"))
	assert.Equal(t, "some-unmapped-tool", m.PackageName("some-unmapped-tool"))
}

func TestBrewPackageNameMapping(t *testing.T) {
	m := newBrewManager()
	assert.Equal(t, "node", m.PackageName("node"))
	assert.Equal(t, "rust", m.PackageName("cargo"))
}

func TestInstallerNoManagerAvailableOnUnsupportedOS(t *testing.T) {
	inst := &Installer{managers: nil, updated: map[string]bool{}}
	err := inst.Install(context.Background(), "python")
	assert.Error(t, err)
}
