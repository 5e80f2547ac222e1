package ingest

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/annokv/annokv/internal/store"
)

// Job carries the identity metadata of one ingest run.
type Job struct {
	ID            string
	DBName        string
	DBVersion     string
	GenomeRelease string
	CFNames       []string
	// CreatedFrom lists upstream source name/version pairs.
	CreatedFrom [][2]string
	// Extra holds dataset-specific metadata entries.
	Extra map[string]string

	Logger *zap.Logger
	start  time.Time
}

// NewJob creates a job with a fresh ID.
func NewJob(dbName, dbVersion, genomeRelease string, cfNames []string, logger *zap.Logger) *Job {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{
		ID:            uuid.NewString(),
		DBName:        dbName,
		DBVersion:     dbVersion,
		GenomeRelease: genomeRelease,
		CFNames:       cfNames,
		Logger:        logger,
		start:         time.Now(),
	}
}

// Finish completes the ingest: it writes all metadata entries in one batch
// (the atomicity marker), compacts the database, closes it, and removes the
// write-ahead log artifacts. On any earlier failure the caller simply does
// not reach this point, leaving a directory without metadata that the
// open-time check refuses.
func (j *Job) Finish(s *store.Store) error {
	entries := map[string]string{
		store.MetaDBName:        j.DBName,
		store.MetaDBVersion:     j.DBVersion,
		store.MetaSchemaVersion: "1",
		store.MetaGenomeRelease: j.GenomeRelease,
		store.MetaCFNames:       store.EncodeCFNames(j.CFNames),
		store.MetaImportJobID:   j.ID,
	}
	for _, nv := range j.CreatedFrom {
		entries["created-from/"+nv[0]] = nv[1]
	}
	for name, value := range j.Extra {
		entries[name] = value
	}
	j.Logger.Info("writing metadata", zap.Int("entries", len(entries)))
	if err := s.WriteMeta(entries); err != nil {
		return err
	}
	j.Logger.Info("compacting database")
	if err := s.CompactAll(); err != nil {
		return err
	}
	path := s.Path()
	if err := s.Close(); err != nil {
		return err
	}
	if err := store.RemoveWALArtifacts(path); err != nil {
		return err
	}
	j.Logger.Info("ingest finished",
		zap.String("job-id", j.ID),
		zap.Duration("elapsed", time.Since(j.start)))
	return nil
}
