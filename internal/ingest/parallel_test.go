package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annokv/annokv/internal/keys"
)

func TestFileSlicesCoverEveryLineOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.tsv")
	var want []string
	var buf []byte
	for i := 0; i < 500; i++ {
		line := fmt.Sprintf("line-%04d\tpayload-%d", i, i*i)
		want = append(want, line)
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	require.NoError(t, os.WriteFile(path, buf, 0o644))

	slices, err := FileSlices(path, 7)
	require.NoError(t, err)
	require.Greater(t, len(slices), 1)

	var mu sync.Mutex
	var got []string
	err = RunPool(slices, 4, func(sl Slice) error {
		return ScanSlice(sl, func(line string) error {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
			return nil
		})
	})
	require.NoError(t, err)

	sort.Strings(got)
	sort.Strings(want)
	assert.Equal(t, want, got)
}

func TestBuildWindows(t *testing.T) {
	windows := BuildWindows(keys.GRCh37, 100_000_000)
	// MT fits in a single window.
	var mt []Window
	for _, w := range windows {
		if w.Chrom == "MT" {
			mt = append(mt, w)
		}
	}
	require.Len(t, mt, 1)
	assert.Equal(t, Window{Chrom: "MT", Start: 1, Stop: 16_569}, mt[0])

	// Windows tile each chromosome without gaps or overlap.
	prevStop := map[string]uint32{}
	for _, w := range windows {
		if prev, ok := prevStop[w.Chrom]; ok {
			assert.Equal(t, prev+1, w.Start, "gap on %s", w.Chrom)
		} else {
			assert.Equal(t, uint32(1), w.Start, "first window of %s", w.Chrom)
		}
		prevStop[w.Chrom] = w.Stop
	}
	assert.Equal(t, ChromLength(keys.GRCh37, "1"), prevStop["1"])
}
