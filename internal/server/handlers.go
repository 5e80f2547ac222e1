package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/annokv/annokv/internal/annoerr"
	"github.com/annokv/annokv/internal/keys"
)

// parseVariantParams reads assembly/chrom/pos/ref/alt query parameters.
func parseVariantParams(c *gin.Context) (keys.Assembly, keys.Variant, error) {
	assembly, err := keys.ParseAssembly(c.DefaultQuery("genome_release", "grch37"))
	if err != nil {
		return "", keys.Variant{}, err
	}
	pos, err := strconv.ParseUint(c.Query("pos"), 10, 32)
	if err != nil {
		return "", keys.Variant{}, fmt.Errorf("%w: bad position %q", annoerr.ErrInvalidInput, c.Query("pos"))
	}
	v, err := keys.Variant{
		Chrom: c.Query("chrom"),
		Pos:   uint32(pos),
		Ref:   c.Query("ref"),
		Alt:   c.Query("alt"),
	}.Canonicalize()
	if err != nil {
		return "", keys.Variant{}, err
	}
	return assembly, v, nil
}

// handleAnnosVariant fans one variant out to every opened variant dataset.
// Per-dataset failures degrade to null with a warning; the bundle itself
// succeeds.
func (s *Server) handleAnnosVariant(c *gin.Context) {
	assembly, v, err := parseVariantParams(c)
	if err != nil {
		abortError(c, err)
		return
	}

	result := gin.H{
		"genome_release": string(assembly),
		"chrom":          v.Chrom,
		"pos":            v.Pos,
		"ref":            v.Ref,
		"alt":            v.Alt,
	}
	annos := gin.H{}
	// Every bundle dataset is present; unconfigured ones stay null.
	for _, name := range []string{"gnomad-nuclear", "gnomad-mtdna", "helixmtdb", "clinvar", "dbsnp", "tsv"} {
		annos[name] = nil
	}
	fetch := func(name string, fn func() (any, error)) {
		rec, err := fn()
		if err != nil {
			s.logger.Warn("dataset query failed in bundle",
				zap.String("dataset", name), zap.Error(err))
			annos[name] = nil
			return
		}
		annos[name] = rec
	}

	if s.nuclearDB != nil {
		fetch("gnomad-nuclear", func() (any, error) { return nullable(s.nuclearDB.QueryVariant(assembly, v)) })
	}
	if s.mtdnaDB != nil {
		fetch("gnomad-mtdna", func() (any, error) { return nullable(s.mtdnaDB.QueryVariant(assembly, v)) })
	}
	if s.helixDB != nil {
		fetch("helixmtdb", func() (any, error) { return nullable(s.helixDB.QueryVariant(assembly, v)) })
	}
	if s.clinvarDB != nil {
		fetch("clinvar", func() (any, error) { return nullable(s.clinvarDB.QueryVariant(assembly, v)) })
	}
	if s.dbsnpDB != nil {
		fetch("dbsnp", func() (any, error) { return nullable(s.dbsnpDB.QueryVariant(assembly, v)) })
	}
	if s.tsvDB != nil {
		fetch("tsv", func() (any, error) {
			row, err := s.tsvDB.QueryVariant(assembly, v)
			if err != nil || row == nil {
				return nil, err
			}
			return row, nil
		})
	}
	result["annos"] = annos
	c.JSON(http.StatusOK, result)
}

// nullable converts a typed nil pointer into an untyped nil so that JSON
// renders null instead of an empty object.
func nullable[T any](rec *T, err error) (any, error) {
	if err != nil || rec == nil {
		return nil, err
	}
	return rec, nil
}

// handleAnnosRange runs range queries against the interval datasets and
// variant range scans against the point datasets.
func (s *Server) handleAnnosRange(c *gin.Context) {
	assembly, err := keys.ParseAssembly(c.DefaultQuery("genome_release", "grch37"))
	if err != nil {
		abortError(c, err)
		return
	}
	start, err1 := strconv.ParseUint(c.Query("start"), 10, 32)
	stop, err2 := strconv.ParseUint(c.Query("stop"), 10, 32)
	if err1 != nil || err2 != nil {
		abortError(c, fmt.Errorf("%w: bad range coordinates", annoerr.ErrInvalidInput))
		return
	}
	iv, err := keys.Interval{
		Chrom: c.Query("chrom"), Start: uint32(start), Stop: uint32(stop),
	}.Canonicalize()
	if err != nil {
		abortError(c, err)
		return
	}

	annos := gin.H{}
	warn := func(name string, err error) {
		s.logger.Warn("dataset query failed in bundle",
			zap.String("dataset", name), zap.Error(err))
		annos[name] = nil
	}
	if s.nuclearDB != nil {
		if recs, err := s.nuclearDB.QueryRange(assembly, iv); err != nil {
			warn("gnomad-nuclear", err)
		} else {
			annos["gnomad-nuclear"] = recs
		}
	}
	if s.svDB != nil {
		if recs, err := s.svDB.QueryRange(assembly, iv); err != nil {
			warn("gnomad-sv", err)
		} else {
			annos["gnomad-sv"] = recs
		}
	}
	if s.clinvarDB != nil {
		if recs, err := s.clinvarDB.QueryRange(assembly, iv); err != nil {
			warn("clinvar", err)
		} else {
			annos["clinvar"] = recs
		}
	}
	if s.clinvarSvDB != nil {
		if recs, err := s.clinvarSvDB.QueryRange(assembly, iv); err != nil {
			warn("clinvar-sv", err)
		} else {
			annos["clinvar-sv"] = recs
		}
	}
	if s.tsvDB != nil {
		if rows, err := s.tsvDB.QueryRange(assembly, iv); err != nil {
			warn("tsv", err)
		} else {
			annos["tsv"] = rows
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"genome_release": string(assembly),
		"chrom":          iv.Chrom,
		"start":          iv.Start,
		"stop":           iv.Stop,
		"annos":          annos,
	})
}

// handleGeneLookup resolves any gene identifier to its record.
func (s *Server) handleGeneLookup(c *gin.Context) {
	if s.genesDB == nil {
		abortError(c, fmt.Errorf("%w: no gene database configured", annoerr.ErrNotFound))
		return
	}
	identifier := c.Query("q")
	if identifier == "" {
		abortError(c, fmt.Errorf("%w: missing q parameter", annoerr.ErrInvalidInput))
		return
	}
	rec, err := s.genesDB.Lookup(identifier)
	if err != nil {
		abortError(c, err)
		return
	}
	if rec == nil {
		c.JSON(http.StatusOK, gin.H{"gene": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"gene": rec})
}

// handleGeneInfo returns the record of one HGNC ID.
func (s *Server) handleGeneInfo(c *gin.Context) {
	if s.genesDB == nil {
		abortError(c, fmt.Errorf("%w: no gene database configured", annoerr.ErrNotFound))
		return
	}
	hgncID := c.Query("hgnc_id")
	if hgncID == "" {
		abortError(c, fmt.Errorf("%w: missing hgnc_id parameter", annoerr.ErrInvalidInput))
		return
	}
	rec, err := s.genesDB.QueryHgnc(hgncID)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gene": rec})
}

// handleDBInfo dumps the metadata of every opened database.
func (s *Server) handleDBInfo(c *gin.Context) {
	info := gin.H{}
	add := func(name string, st interface {
		MetaGet(string) (string, error)
	}) {
		entries := gin.H{}
		for _, key := range []string{"db-name", "db-version", "db-schema-version", "genome-release"} {
			if v, err := st.MetaGet(key); err == nil && v != "" {
				entries[key] = v
			}
		}
		info[name] = entries
	}
	if s.genesDB != nil {
		add("genes", s.genesDB.Store)
	}
	if s.nuclearDB != nil {
		add("gnomad-nuclear", s.nuclearDB.Store)
	}
	if s.mtdnaDB != nil {
		add("gnomad-mtdna", s.mtdnaDB.Store)
	}
	if s.svDB != nil {
		add("gnomad-sv", s.svDB.Store)
	}
	if s.helixDB != nil {
		add("helixmtdb", s.helixDB.Store)
	}
	if s.clinvarDB != nil {
		add("clinvar", s.clinvarDB.Store)
	}
	if s.clinvarSvDB != nil {
		add("clinvar-sv", s.clinvarSvDB.Store)
	}
	if s.dbsnpDB != nil {
		add("dbsnp", s.dbsnpDB.Store)
	}
	if s.freqsDB != nil {
		add("freqs", s.freqsDB.Store)
	}
	if s.tsvDB != nil {
		add("tsv", s.tsvDB.Store)
	}
	c.JSON(http.StatusOK, info)
}
