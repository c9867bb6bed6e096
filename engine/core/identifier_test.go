package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityRegistryAcquireRelease(t *testing.T) {
	r := NewEntityRegistry()

	a := r.Acquire("first")
	b := r.Acquire("second")
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, r.Len())

	assert.Equal(t, "first", r.Get(a))
	assert.Equal(t, "second", r.Get(b))

	require.NoError(t, r.Release(a))
	assert.Nil(t, r.Get(a))
	assert.Equal(t, 1, r.Len())
}

func TestEntityRegistryReusesFreedSlots(t *testing.T) {
	r := NewEntityRegistry()

	a := r.Acquire("first")
	r.Acquire("second")
	require.NoError(t, r.Release(a))

	c := r.Acquire("third")
	assert.Equal(t, a, c)
	assert.Equal(t, "third", r.Get(c))
}

func TestEntityRegistryReleaseOutOfRange(t *testing.T) {
	r := NewEntityRegistry()
	assert.Error(t, r.Release(42))
}
