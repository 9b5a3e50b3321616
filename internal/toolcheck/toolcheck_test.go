package toolcheck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureFindsShell(t *testing.T) {
	c := New()
	err := c.Ensure(context.Background(), []string{"sh"})
	assert.NoError(t, err)
}

func TestEnsureMissingToolErrors(t *testing.T) {
	c := New()
	err := c.Ensure(context.Background(), []string{"definitely-not-a-real-binary-xyz"})
	assert.Error(t, err)
}

func TestLookupIsCached(t *testing.T) {
	c := New()
	assert.True(t, c.Available("sh"))
	_, ok := c.found["sh"]
	assert.True(t, ok)
}

func TestForgetEvictsCache(t *testing.T) {
	c := New()
	c.Available("sh")
	c.Forget("sh")
	_, ok := c.found["sh"]
	assert.False(t, ok)
}
