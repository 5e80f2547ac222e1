package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/pebble"

	"github.com/annokv/annokv/internal/annoerr"
)

// Standard metadata keys. The metadata column family is written last in
// every ingest job and doubles as the atomicity marker: a database missing
// these keys is in-progress or corrupt.
const (
	MetaDBName        = "db-name"
	MetaDBVersion     = "db-version"
	MetaSchemaVersion = "db-schema-version"
	MetaGenomeRelease = "genome-release"
	MetaCFNames       = "cf-names"
	MetaImportJobID   = "import-job-id"
)

// SchemaVersion is the database schema version this build reads and writes.
// Readers refuse databases with a larger version.
const SchemaVersion = 1

// MetaGet returns the metadata value for name, or "" if absent.
func (s *Store) MetaGet(name string) (string, error) {
	val, err := s.Get(MetaCF, []byte(name))
	if err != nil {
		return "", err
	}
	return string(val), nil
}

// MetaPut writes one metadata entry, synchronously.
func (s *Store) MetaPut(name, value string) error {
	if err := s.db.Set(physKey(MetaCF, []byte(name)), []byte(value), pebble.Sync); err != nil {
		return fmt.Errorf("%w: writing meta %q: %v", annoerr.ErrStore, name, err)
	}
	return nil
}

// WriteMeta writes all entries in one synchronous batch. This is the last
// write of every ingest job.
func (s *Store) WriteMeta(entries map[string]string) error {
	b := s.db.NewBatch()
	for name, value := range entries {
		if err := b.Set(physKey(MetaCF, []byte(name)), []byte(value), nil); err != nil {
			return fmt.Errorf("%w: staging meta %q: %v", annoerr.ErrStore, name, err)
		}
	}
	if err := s.db.Apply(b, pebble.Sync); err != nil {
		return fmt.Errorf("%w: writing metadata: %v", annoerr.ErrStore, err)
	}
	return b.Close()
}

// GenomeRelease returns the genome-release metadata entry.
func (s *Store) GenomeRelease() (string, error) {
	return s.MetaGet(MetaGenomeRelease)
}

// CFNames returns the column families declared in the metadata.
func (s *Store) CFNames() ([]string, error) {
	raw, err := s.MetaGet(MetaCFNames)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("%w: bad cf-names metadata: %v", annoerr.ErrStore, err)
	}
	return names, nil
}

// EncodeCFNames serializes a column family list for the cf-names entry.
func EncodeCFNames(names []string) string {
	buf, _ := json.Marshal(names)
	return string(buf)
}

// checkMeta verifies the open-time invariants: metadata present, schema
// version readable, required column families declared.
func (s *Store) checkMeta(requiredCFs []string) error {
	release, err := s.MetaGet(MetaGenomeRelease)
	if err != nil {
		return err
	}
	if release == "" {
		return fmt.Errorf(
			"%w: database %q has no genome-release metadata (in-progress or corrupt)",
			annoerr.ErrNotFound, s.path)
	}
	if v, err := s.MetaGet(MetaSchemaVersion); err != nil {
		return err
	} else if v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n > SchemaVersion {
			return fmt.Errorf(
				"%w: database schema version %q exceeds supported %d",
				annoerr.ErrStore, v, SchemaVersion)
		}
	}
	if len(requiredCFs) == 0 {
		return nil
	}
	declared, err := s.CFNames()
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(declared))
	for _, cf := range declared {
		have[cf] = true
	}
	for _, cf := range requiredCFs {
		if cf == MetaCF {
			continue
		}
		if !have[cf] {
			return fmt.Errorf("%w: column family %q missing in %q", annoerr.ErrNotFound, cf, s.path)
		}
	}
	return nil
}

// CheckAssembly verifies that the query assembly matches the stored
// genome-release, case-insensitively. It runs before any data access.
func (s *Store) CheckAssembly(assembly string) error {
	release, err := s.GenomeRelease()
	if err != nil {
		return err
	}
	if !strings.EqualFold(assembly, release) {
		return fmt.Errorf(
			"%w: query uses %q but database is %q", annoerr.ErrAssemblyMismatch, assembly, release)
	}
	return nil
}
