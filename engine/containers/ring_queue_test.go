package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueueFIFO(t *testing.T) {
	rq := NewRingQueue[string](3)
	assert.True(t, rq.IsEmpty())

	require.NoError(t, rq.Enqueue("a"))
	require.NoError(t, rq.Enqueue("b"))
	require.NoError(t, rq.Enqueue("c"))
	assert.True(t, rq.IsFull())

	assert.ErrorIs(t, rq.Enqueue("d"), ErrQueueFull)

	for _, want := range []string{"a", "b", "c"} {
		got, err := rq.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := rq.Dequeue()
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestRingQueueWrapAround(t *testing.T) {
	rq := NewRingQueue[int](2)

	require.NoError(t, rq.Enqueue(1))
	require.NoError(t, rq.Enqueue(2))

	got, err := rq.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	require.NoError(t, rq.Enqueue(3))
	assert.Equal(t, 2, rq.Len())

	got, err = rq.Peek()
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}
