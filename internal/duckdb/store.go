// Package duckdb stores annotated result rows in DuckDB so they can be
// queried with SQL after a run.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

const annotationsTable = "gene_annotations"

// Store manages a DuckDB connection holding annotated genes.
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
			return nil, fmt.Errorf("create database directory: %w", err)
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

// Path returns the database path ("" for in-memory).
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if err := s.ensureAnnotationsSchema(); err != nil {
		return err
	}
	return s.ensureSourcesSchema()
}

func (s *Store) ensureAnnotationsSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS ` + annotationsTable + ` (
		source_file VARCHAR,
		sheet VARCHAR,
		row_index INTEGER,
		gene VARCHAR,
		padj DOUBLE,
		log2_fold_change DOUBLE,
		obo_names VARCHAR,
		fb_ids VARCHAR,
		go_ids VARCHAR
	)`)
	return err
}
