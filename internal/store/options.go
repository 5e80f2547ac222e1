package store

import (
	"runtime"

	"github.com/cockroachdb/pebble"
)

// Options are the tuning knobs of the ordered store. They are fixed per
// dataset based on its expected size class rather than exposed to end users.
type Options struct {
	// WriteBufferSize is the memtable size in bytes.
	WriteBufferSize uint64
	// MaxBackgroundJobs bounds concurrent compactions.
	MaxBackgroundJobs int
	// EnableStatistics attaches an event listener that counts flushes and
	// compactions into the prometheus registry.
	EnableStatistics bool
	// WALDir optionally places write-ahead log files outside the database
	// directory.
	WALDir string
}

// DefaultOptions are suitable for mid-sized datasets (ClinVar, genes).
func DefaultOptions() Options {
	return Options{
		WriteBufferSize:   64 << 20,
		MaxBackgroundJobs: runtime.NumCPU(),
		EnableStatistics:  false,
	}
}

// BulkOptions are tuned for large coordinate-indexed imports (gnomAD, TSV
// scores): a large memtable and all cores compacting.
func BulkOptions() Options {
	opts := DefaultOptions()
	opts.WriteBufferSize = 256 << 20
	return opts
}

// pebbleOptions maps Options onto the underlying engine. Every level is
// zstd-compressed; the bottommost level is where virtually all data lives
// after the end-of-ingest compaction.
func (o Options) pebbleOptions(readOnly bool) *pebble.Options {
	po := &pebble.Options{
		ReadOnly:     readOnly,
		MemTableSize: o.WriteBufferSize,
		MaxConcurrentCompactions: func() int {
			if o.MaxBackgroundJobs > 0 {
				return o.MaxBackgroundJobs
			}
			return 1
		},
		WALDir: o.WALDir,
	}
	po.Levels = make([]pebble.LevelOptions, 7)
	for i := range po.Levels {
		po.Levels[i].Compression = pebble.ZstdCompression
		po.Levels[i].EnsureDefaults()
	}
	if o.EnableStatistics {
		listener := pebble.EventListener{
			FlushEnd: func(pebble.FlushInfo) {
				flushCounter.Inc()
			},
			CompactionEnd: func(pebble.CompactionInfo) {
				compactionCounter.Inc()
			},
		}
		po.EventListener = &listener
	}
	return po
}
