package ingest

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSorterGlobalOrder(t *testing.T) {
	s, err := NewSorter(t.TempDir(), 1024) // tiny chunks force spilling
	require.NoError(t, err)
	defer s.Close()

	rng := rand.New(rand.NewSource(42))
	const n = 1000
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%08d", rng.Intn(100_000))
		val := fmt.Sprintf("val-%d", i)
		require.NoError(t, s.Put([]byte(key), []byte(val)))
	}

	var prev []byte
	count := 0
	err = s.Merge(func(key, val []byte) error {
		if prev != nil && bytes.Compare(prev, key) > 0 {
			t.Errorf("key %q sorts before predecessor %q", key, prev)
		}
		prev = bytes.Clone(key)
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, n, count)
}

func TestSorterScratchRemoved(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSorter(dir, 64)
	require.NoError(t, err)
	require.NoError(t, s.Put([]byte("b"), []byte("2")))
	require.NoError(t, s.Put([]byte("a"), []byte("1")))
	require.NoError(t, s.Merge(func(key, val []byte) error { return nil }))
	require.NoError(t, s.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch directory not cleaned up")
}

func TestSorterEmpty(t *testing.T) {
	s, err := NewSorter(t.TempDir(), 0)
	require.NoError(t, err)
	defer s.Close()
	called := false
	require.NoError(t, s.Merge(func(key, val []byte) error {
		called = true
		return nil
	}))
	assert.False(t, called)
}
