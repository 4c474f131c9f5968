// Package rnaseq loads RNA-seq quantification tables into read-only lookups
// used by the filtering, scoring, and validation stages.
package rnaseq

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"gopkg.in/guregu/null.v3"

	"github.com/inodb/neovex/internal/csq"
)

// GenePrefix restricts quantification rows to Ensembl gene entries; summary
// rows like N_unmapped carry other identifiers and are dropped.
const GenePrefix = "ENSG"

// Row is one gene record from an RNA-seq quantification table (STAR-Counts
// layout, comma-delimited). Columns absent from a file parse as invalid.
type Row struct {
	GeneID         string     `csv:"gene_id"`
	GeneName       string     `csv:"gene_name"`
	GeneType       string     `csv:"gene_type"`
	Unstranded     null.Float `csv:"unstranded"`
	FPKMUnstranded null.Float `csv:"fpkm_unstranded"`
	TPMUnstranded  null.Float `csv:"tpm_unstranded"`
}

// Table holds the Ensembl-gene rows of one quantification table.
type Table struct {
	Rows []Row
}

// Load reads a comma-delimited RNA-seq table. Lines beginning with "#" are
// skipped, as are rows whose gene_id does not start with GenePrefix.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rna table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	r.LazyQuotes = true

	var rows []Row
	if err := gocsv.UnmarshalCSV(r, &rows); err != nil {
		return nil, fmt.Errorf("parse rna table: %w", err)
	}

	t := &Table{Rows: make([]Row, 0, len(rows))}
	for _, row := range rows {
		if !strings.HasPrefix(row.GeneID, GenePrefix) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// TPMLookup returns version-stripped gene id to TPM. Rows without a TPM
// value are omitted: an absent key means "unknown", distinct from a present
// zero.
func (t *Table) TPMLookup() map[string]float64 {
	lookup := make(map[string]float64, len(t.Rows))
	for _, row := range t.Rows {
		if !row.TPMUnstranded.Valid {
			continue
		}
		lookup[csq.StripVersion(row.GeneID)] = row.TPMUnstranded.Float64
	}
	return lookup
}

// GeneSet returns the version-stripped gene ids present in the table.
// Presence in the patient's quantification is what counts as "expressed"
// for filtering; the TPM value itself is not consulted here.
func (t *Table) GeneSet() map[string]bool {
	genes := make(map[string]bool, len(t.Rows))
	for _, row := range t.Rows {
		genes[csq.StripVersion(row.GeneID)] = true
	}
	return genes
}

// ByGeneID returns rows keyed by version-stripped gene id. When a gene
// appears more than once the first row wins.
func (t *Table) ByGeneID() map[string]Row {
	byGene := make(map[string]Row, len(t.Rows))
	for _, row := range t.Rows {
		id := csq.StripVersion(row.GeneID)
		if _, ok := byGene[id]; ok {
			continue
		}
		byGene[id] = row
	}
	return byGene
}

// HasCounts reports whether any row carries a raw unstranded count; tables
// exported without count columns make count-based comparisons impossible.
func (t *Table) HasCounts() bool {
	for _, row := range t.Rows {
		if row.Unstranded.Valid {
			return true
		}
	}
	return false
}
