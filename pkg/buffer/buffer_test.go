package buffer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircularBuffer_WriteRead(t *testing.T) {
	buf, err := NewCircular[int](4)
	require.NoError(t, err)
	defer buf.Close()

	assert.True(t, buf.IsEmpty())
	assert.Equal(t, 4, buf.Capacity())

	for i := 1; i <= 3; i++ {
		require.NoError(t, buf.Write(i))
	}
	assert.Equal(t, 3, buf.Size())

	v, ok := buf.Read()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	got := buf.ReadBatch(10)
	assert.Equal(t, []int{2, 3}, got)
	assert.True(t, buf.IsEmpty())

	_, ok = buf.Read()
	assert.False(t, ok)
}

func TestCircularBuffer_DropOldest(t *testing.T) {
	var dropped []int
	buf, err := NewCircular[int](2,
		WithOverflowPolicy[int](DropOldest),
		WithDropCallback[int](func(item int) { dropped = append(dropped, item) }),
	)
	require.NoError(t, err)
	defer buf.Close()

	require.NoError(t, buf.Write(1))
	require.NoError(t, buf.Write(2))
	require.NoError(t, buf.Write(3))
	require.NoError(t, buf.Write(4))

	assert.Equal(t, []int{1, 2}, dropped)
	assert.Equal(t, []int{3, 4}, buf.ReadBatch(10))
	assert.Equal(t, int64(2), buf.Stats().Drops())
}

func TestCircularBuffer_DropNewest(t *testing.T) {
	buf, err := NewCircular[int](2, WithOverflowPolicy[int](DropNewest))
	require.NoError(t, err)
	defer buf.Close()

	require.NoError(t, buf.Write(1))
	require.NoError(t, buf.Write(2))
	err = buf.Write(3)
	assert.ErrorIs(t, err, ErrFull)

	assert.Equal(t, []int{1, 2}, buf.ReadBatch(10))
	assert.Equal(t, int64(1), buf.Stats().Drops())
}

func TestCircularBuffer_Wraparound(t *testing.T) {
	buf, err := NewCircular[int](3)
	require.NoError(t, err)
	defer buf.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, buf.Write(i))
		v, ok := buf.Read()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	assert.True(t, buf.IsEmpty())
}

func TestCircularBuffer_Clear(t *testing.T) {
	buf, err := NewCircular[string](4)
	require.NoError(t, err)
	defer buf.Close()

	require.NoError(t, buf.Write("a"))
	require.NoError(t, buf.Write("b"))
	buf.Clear()
	assert.True(t, buf.IsEmpty())

	require.NoError(t, buf.Write("c"))
	v, ok := buf.Read()
	require.True(t, ok)
	assert.Equal(t, "c", v)
}

func TestCircularBuffer_Closed(t *testing.T) {
	buf, err := NewCircular[int](2)
	require.NoError(t, err)

	require.NoError(t, buf.Write(1))
	require.NoError(t, buf.Close())
	require.NoError(t, buf.Close())

	err = buf.Write(2)
	assert.ErrorIs(t, err, ErrClosed)

	// Reads still drain what was buffered before close.
	v, ok := buf.Read()
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestCircularBuffer_InvalidCapacity(t *testing.T) {
	_, err := NewCircular[int](0)
	assert.Error(t, err)
}

func TestCircularBuffer_ConcurrentWriters(t *testing.T) {
	buf, err := NewCircular[int](128)
	require.NoError(t, err)
	defer buf.Close()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				_ = buf.Write(i)
			}
		}()
	}
	wg.Wait()

	// Under DropOldest every call stores its item, so writes count all
	// 8000 calls and drops account for everything evicted to make room.
	stats := buf.Stats()
	assert.Equal(t, int64(8000), stats.Writes())
	assert.Equal(t, stats.Writes()-int64(buf.Size()), stats.Drops())
	assert.LessOrEqual(t, buf.Size(), buf.Capacity())
}
