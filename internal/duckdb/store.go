// Package duckdb caches results fetched from remote services: expression
// predictions from the scoring API and median baselines from the GTEx
// portal. Both are keyed so repeat pipeline runs skip network calls.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for caching remote lookups.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS predictions (
		chrom VARCHAR,
		pos BIGINT,
		ref VARCHAR,
		alt VARCHAR,
		gene_symbol VARCHAR,
		gene_id VARCHAR,
		tissue VARCHAR,
		ref_expr DOUBLE,
		alt_expr DOUBLE,
		fetched_at TIMESTAMP,
		PRIMARY KEY (chrom, pos, ref, alt, tissue)
	)`); err != nil {
		return err
	}

	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS gtex_baselines (
		gene_id VARCHAR,
		tissue VARCHAR,
		gencode_id VARCHAR,
		median_tpm DOUBLE,
		found BOOLEAN,
		fetched_at TIMESTAMP,
		PRIMARY KEY (gene_id, tissue)
	)`)
	return err
}
