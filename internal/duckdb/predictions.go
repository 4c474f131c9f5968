package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/neovex/internal/output"
)

// WritePredictions batch-inserts predictions for a tissue using the
// Appender API and returns the number of rows written. Rows whose key is
// already cached are skipped, as are in-batch duplicates, so a run that
// mixes cached and fresh results never violates the primary key.
func (s *Store) WritePredictions(tissue string, preds []output.Prediction) (int, error) {
	if len(preds) == 0 {
		return 0, nil
	}

	existing, err := s.PredictionKeys(tissue)
	if err != nil {
		return 0, err
	}

	seen := make(map[output.VariantKey]bool, len(preds))
	deduped := make([]output.Prediction, 0, len(preds))
	for _, p := range preds {
		k := p.Key()
		if existing[k] || seen[k] {
			continue
		}
		seen[k] = true
		deduped = append(deduped, p)
	}
	if len(deduped) == 0 {
		return 0, nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return 0, fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "predictions")
		return err
	}); err != nil {
		return 0, fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	now := time.Now().UTC()
	for _, p := range deduped {
		if err := appender.AppendRow(
			p.Chrom, p.Pos, p.Ref, p.Alt,
			p.Gene, p.GeneID, tissue,
			p.RefExpr, p.AltExpr, now,
		); err != nil {
			return 0, fmt.Errorf("append prediction: %w", err)
		}
	}

	if err := appender.Flush(); err != nil {
		return 0, err
	}
	return len(deduped), nil
}

// PredictionKeys returns the variant keys already cached for a tissue.
func (s *Store) PredictionKeys(tissue string) (map[output.VariantKey]bool, error) {
	rows, err := s.db.Query(
		`SELECT chrom, pos, ref, alt FROM predictions WHERE tissue=?`, tissue)
	if err != nil {
		return nil, fmt.Errorf("query prediction keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[output.VariantKey]bool)
	for rows.Next() {
		var k output.VariantKey
		if err := rows.Scan(&k.Chrom, &k.Pos, &k.Ref, &k.Alt); err != nil {
			return nil, fmt.Errorf("scan prediction key: %w", err)
		}
		keys[k] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prediction keys: %w", err)
	}
	return keys, nil
}

// LookupPrediction fetches a cached prediction for one variant. The second
// return value reports whether the variant was cached.
func (s *Store) LookupPrediction(tissue string, key output.VariantKey) (output.Prediction, bool, error) {
	p := output.Prediction{
		Chrom: key.Chrom, Pos: key.Pos, Ref: key.Ref, Alt: key.Alt,
	}
	err := s.db.QueryRow(
		`SELECT gene_symbol, gene_id, ref_expr, alt_expr FROM predictions
		WHERE chrom=? AND pos=? AND ref=? AND alt=? AND tissue=?`,
		key.Chrom, key.Pos, key.Ref, key.Alt, tissue,
	).Scan(&p.Gene, &p.GeneID, &p.RefExpr, &p.AltExpr)
	if errors.Is(err, sql.ErrNoRows) {
		return output.Prediction{}, false, nil
	}
	if err != nil {
		return output.Prediction{}, false, fmt.Errorf("query prediction: %w", err)
	}
	return p, true, nil
}

// ClearPredictions removes all cached predictions for a tissue.
func (s *Store) ClearPredictions(tissue string) error {
	_, err := s.db.Exec(`DELETE FROM predictions WHERE tissue=?`, tissue)
	return err
}
