package threadctx

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRingCap(t *testing.T) uint64 {
	t.Helper()
	page := uint64(os.Getpagesize())
	p := uint64(1)
	for p < page {
		p <<= 1
	}
	return p
}

func TestLocal_StableWithinGoroutine(t *testing.T) {
	reg := NewRegistry(testRingCap(t))

	a, err := reg.Local()
	require.NoError(t, err)
	b, err := reg.Local()
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 1, reg.Len())
}

func TestLocal_DistinctAcrossGoroutines(t *testing.T) {
	reg := NewRegistry(testRingCap(t))

	const n = 8
	contexts := make([]*Context, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			c, err := reg.Local()
			assert.NoError(t, err)
			contexts[i] = c
		}()
	}
	wg.Wait()

	seen := make(map[*Context]struct{})
	for _, c := range contexts {
		require.NotNil(t, c)
		seen[c] = struct{}{}
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, reg.Len())
}

func TestEnumerate_SnapshotsAllContexts(t *testing.T) {
	reg := NewRegistry(testRingCap(t))
	_, err := reg.Local()
	require.NoError(t, err)

	snap := reg.Enumerate()
	assert.Len(t, snap, 1)
}

func TestReap_RemovesStaleEmptyContexts(t *testing.T) {
	reg := NewRegistry(testRingCap(t))
	reg.SetStaleWindow(time.Millisecond)

	c, err := reg.Local()
	require.NoError(t, err)
	require.True(t, c.Valid())

	time.Sleep(5 * time.Millisecond)
	removed := reg.Reap()

	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, reg.Len())
	assert.False(t, c.Valid())
}

func TestReap_KeepsStaleButNonEmptyContext(t *testing.T) {
	reg := NewRegistry(testRingCap(t))
	reg.SetStaleWindow(time.Millisecond)

	c, err := reg.Local()
	require.NoError(t, err)
	buf, err := c.Ring().PrepareWrite(4)
	require.NoError(t, err)
	c.Ring().CommitWrite(uint64(len(buf)))

	time.Sleep(5 * time.Millisecond)
	removed := reg.Reap()

	assert.Equal(t, 0, removed)
	assert.False(t, c.Valid())
	assert.Equal(t, 1, reg.Len())
}

func TestRelease_InvalidatesImmediately(t *testing.T) {
	reg := NewRegistry(testRingCap(t))
	c, err := reg.Local()
	require.NoError(t, err)

	c.Release()
	assert.False(t, c.Valid())

	removed := reg.Reap()
	assert.Equal(t, 1, removed)
}
