package docker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"codesandbox/internal/types"
)

func TestResourcesMapsCapsOntoContainerResources(t *testing.T) {
	h := &Handle{limits: types.ResourceLimits{
		MemoryBytes:  256 * 1024 * 1024,
		CPUSeconds:   10,
		MaxProcesses: 20,
	}}
	r := h.resources()
	assert.Equal(t, int64(256*1024*1024), r.Memory)
	if assert.NotNil(t, r.PidsLimit) {
		assert.Equal(t, int64(20), *r.PidsLimit)
	}
	assert.Equal(t, int64(100000), r.CPUPeriod)
	assert.Equal(t, int64(100000), r.CPUQuota)
}

func TestImageForFallsBackToDefault(t *testing.T) {
	assert.Equal(t, "python:3.11-slim", imageFor["python3"])
	assert.Equal(t, "", imageFor["./code-execution"])
}
