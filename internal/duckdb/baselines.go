package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// BaselineRow is one cached GTEx median-expression lookup. Found is false
// when the portal had no record for the gene, so negative lookups are
// cached too and not retried every run.
type BaselineRow struct {
	GeneID    string
	Tissue    string
	GencodeID string
	MedianTPM float64
	Found     bool
	FetchedAt time.Time
}

// UpsertBaseline inserts or replaces the cached baseline for a gene and
// tissue, stamping it with the current time.
func (s *Store) UpsertBaseline(row BaselineRow) error {
	if row.FetchedAt.IsZero() {
		row.FetchedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO gtex_baselines
		(gene_id, tissue, gencode_id, median_tpm, found, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		row.GeneID, row.Tissue, row.GencodeID, row.MedianTPM, row.Found, row.FetchedAt)
	if err != nil {
		return fmt.Errorf("upsert baseline: %w", err)
	}
	return nil
}

// LookupBaseline fetches the cached baseline for a gene and tissue. Entries
// older than maxAge are treated as absent; maxAge <= 0 disables the age
// check.
func (s *Store) LookupBaseline(geneID, tissue string, maxAge time.Duration) (BaselineRow, bool, error) {
	row := BaselineRow{GeneID: geneID, Tissue: tissue}
	err := s.db.QueryRow(
		`SELECT gencode_id, median_tpm, found, fetched_at FROM gtex_baselines
		WHERE gene_id=? AND tissue=?`,
		geneID, tissue,
	).Scan(&row.GencodeID, &row.MedianTPM, &row.Found, &row.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return BaselineRow{}, false, nil
	}
	if err != nil {
		return BaselineRow{}, false, fmt.Errorf("query baseline: %w", err)
	}
	if maxAge > 0 && time.Since(row.FetchedAt) > maxAge {
		return BaselineRow{}, false, nil
	}
	return row, true, nil
}
