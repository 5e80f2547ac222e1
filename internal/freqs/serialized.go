// Package freqs implements the combined frequency database: gnomAD exomes
// and genomes merged per variant, with separate column families for
// autosomal, gonosomal, and mitochondrial variants.
//
// Values are fixed-width little-endian count blocks rather than a general
// record codec; the layouts below are bit-exact contracts.
package freqs

import (
	"encoding/binary"
	"fmt"

	"github.com/annokv/annokv/internal/annoerr"
)

// Column families of frequency databases.
const (
	AutosomalCF     = "autosomal"
	GonosomalCF     = "gonosomal"
	MitochondrialCF = "mitochondrial"
)

// AutoCounts are the counts of one source on the autosomes. 12 bytes.
type AutoCounts struct {
	AN    uint32 `json:"an"`
	ACHom uint32 `json:"ac_hom"`
	ACHet uint32 `json:"ac_het"`
}

const autoCountsLen = 12

func (c *AutoCounts) toBuf(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], c.AN)
	binary.LittleEndian.PutUint32(buf[4:8], c.ACHom)
	binary.LittleEndian.PutUint32(buf[8:12], c.ACHet)
}

func autoCountsFromBuf(buf []byte) AutoCounts {
	return AutoCounts{
		AN:    binary.LittleEndian.Uint32(buf[0:4]),
		ACHom: binary.LittleEndian.Uint32(buf[4:8]),
		ACHet: binary.LittleEndian.Uint32(buf[8:12]),
	}
}

// AutoRecord is the autosomal value: exomes then genomes. 24 bytes.
type AutoRecord struct {
	Exomes  AutoCounts `json:"gnomad_exomes"`
	Genomes AutoCounts `json:"gnomad_genomes"`
}

// Encode serializes the record value.
func (r *AutoRecord) Encode() []byte {
	buf := make([]byte, 2*autoCountsLen)
	r.Exomes.toBuf(buf[0:autoCountsLen])
	r.Genomes.toBuf(buf[autoCountsLen:])
	return buf
}

// DecodeAutoRecord deserializes an autosomal value.
func DecodeAutoRecord(buf []byte) (*AutoRecord, error) {
	if len(buf) != 2*autoCountsLen {
		return nil, fmt.Errorf("%w: autosomal record has %d bytes, want %d",
			annoerr.ErrStore, len(buf), 2*autoCountsLen)
	}
	return &AutoRecord{
		Exomes:  autoCountsFromBuf(buf[0:autoCountsLen]),
		Genomes: autoCountsFromBuf(buf[autoCountsLen:]),
	}, nil
}

// XYCounts are the counts of one source on the gonosomes. 16 bytes.
type XYCounts struct {
	AN     uint32 `json:"an"`
	ACHom  uint32 `json:"ac_hom"`
	ACHet  uint32 `json:"ac_het"`
	ACHemi uint32 `json:"ac_hemi"`
}

const xyCountsLen = 16

func (c *XYCounts) toBuf(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], c.AN)
	binary.LittleEndian.PutUint32(buf[4:8], c.ACHom)
	binary.LittleEndian.PutUint32(buf[8:12], c.ACHet)
	binary.LittleEndian.PutUint32(buf[12:16], c.ACHemi)
}

func xyCountsFromBuf(buf []byte) XYCounts {
	return XYCounts{
		AN:     binary.LittleEndian.Uint32(buf[0:4]),
		ACHom:  binary.LittleEndian.Uint32(buf[4:8]),
		ACHet:  binary.LittleEndian.Uint32(buf[8:12]),
		ACHemi: binary.LittleEndian.Uint32(buf[12:16]),
	}
}

// XYRecord is the gonosomal value: exomes then genomes. 32 bytes.
type XYRecord struct {
	Exomes  XYCounts `json:"gnomad_exomes"`
	Genomes XYCounts `json:"gnomad_genomes"`
}

// Encode serializes the record value.
func (r *XYRecord) Encode() []byte {
	buf := make([]byte, 2*xyCountsLen)
	r.Exomes.toBuf(buf[0:xyCountsLen])
	r.Genomes.toBuf(buf[xyCountsLen:])
	return buf
}

// DecodeXYRecord deserializes a gonosomal value.
func DecodeXYRecord(buf []byte) (*XYRecord, error) {
	if len(buf) != 2*xyCountsLen {
		return nil, fmt.Errorf("%w: gonosomal record has %d bytes, want %d",
			annoerr.ErrStore, len(buf), 2*xyCountsLen)
	}
	return &XYRecord{
		Exomes:  xyCountsFromBuf(buf[0:xyCountsLen]),
		Genomes: xyCountsFromBuf(buf[xyCountsLen:]),
	}, nil
}

// MTCounts are the counts of one source on the mitochondrion. 12 bytes.
type MTCounts struct {
	AN    uint32 `json:"an"`
	ACHom uint32 `json:"ac_hom"`
	ACHet uint32 `json:"ac_het"`
}

const mtCountsLen = 12

func (c *MTCounts) toBuf(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], c.AN)
	binary.LittleEndian.PutUint32(buf[4:8], c.ACHom)
	binary.LittleEndian.PutUint32(buf[8:12], c.ACHet)
}

func mtCountsFromBuf(buf []byte) MTCounts {
	return MTCounts{
		AN:    binary.LittleEndian.Uint32(buf[0:4]),
		ACHom: binary.LittleEndian.Uint32(buf[4:8]),
		ACHet: binary.LittleEndian.Uint32(buf[8:12]),
	}
}

// MTRecord is the mitochondrial value: gnomAD mtDNA then HelixMtDb. 24
// bytes.
type MTRecord struct {
	GnomadMtdna MTCounts `json:"gnomad_mtdna"`
	HelixMtdb   MTCounts `json:"helix_mtdb"`
}

// Encode serializes the record value.
func (r *MTRecord) Encode() []byte {
	buf := make([]byte, 2*mtCountsLen)
	r.GnomadMtdna.toBuf(buf[0:mtCountsLen])
	r.HelixMtdb.toBuf(buf[mtCountsLen:])
	return buf
}

// DecodeMTRecord deserializes a mitochondrial value.
func DecodeMTRecord(buf []byte) (*MTRecord, error) {
	if len(buf) != 2*mtCountsLen {
		return nil, fmt.Errorf("%w: mitochondrial record has %d bytes, want %d",
			annoerr.ErrStore, len(buf), 2*mtCountsLen)
	}
	return &MTRecord{
		GnomadMtdna: mtCountsFromBuf(buf[0:mtCountsLen]),
		HelixMtdb:   mtCountsFromBuf(buf[mtCountsLen:]),
	}, nil
}
