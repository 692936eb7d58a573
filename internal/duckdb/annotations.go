package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"
)

// AnnotationRow is one annotated gene in one sheet of one result file.
// The three summary fields are NULL when the gene could not be annotated.
type AnnotationRow struct {
	SourceFile     string
	Sheet          string
	RowIndex       int
	Gene           string
	Padj           float64
	Log2FoldChange float64
	OBONames       sql.NullString
	FBIDs          sql.NullString
	GOIDs          sql.NullString
}

// ReplaceSource deletes any rows previously stored for source and appends
// rows using the Appender API, so re-running a file leaves one copy. The
// delete and the append run in one transaction on a single connection; if
// any row fails, the rows stored earlier for source are kept.
func (s *Store) ReplaceSource(source string, rows []AnnotationRow) error {
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	// The appender needs the raw driver connection, so the transaction is
	// opened with SQL on conn rather than through database/sql.
	if _, err := conn.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := replaceRows(ctx, conn, source, rows); err != nil {
		if _, rbErr := conn.ExecContext(ctx, "ROLLBACK"); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit source %s: %w", source, err)
	}
	return nil
}

func replaceRows(ctx context.Context, conn *sql.Conn, source string, rows []AnnotationRow) error {
	if _, err := conn.ExecContext(ctx, "DELETE FROM "+annotationsTable+" WHERE source_file = ?", source); err != nil {
		return fmt.Errorf("clear source %s: %w", source, err)
	}
	if len(rows) == 0 {
		return nil
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", annotationsTable)
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}

	for _, r := range rows {
		if err := appender.AppendRow(
			source, r.Sheet, int32(r.RowIndex), r.Gene,
			r.Padj, r.Log2FoldChange,
			nullable(r.OBONames), nullable(r.FBIDs), nullable(r.GOIDs),
		); err != nil {
			appender.Close()
			return fmt.Errorf("append annotation row: %w", err)
		}
	}

	// Close flushes the remaining rows.
	if err := appender.Close(); err != nil {
		return fmt.Errorf("flush annotation rows: %w", err)
	}
	return nil
}

// Count returns the number of stored rows.
func (s *Store) Count() (int64, error) {
	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + annotationsTable).Scan(&n); err != nil {
		return 0, fmt.Errorf("count annotations: %w", err)
	}
	return n, nil
}

// SearchByGene returns all stored rows for a gene.
func (s *Store) SearchByGene(gene string) ([]AnnotationRow, error) {
	rows, err := s.db.Query(selectColumns+` WHERE gene = ? ORDER BY source_file, sheet, row_index`, gene)
	if err != nil {
		return nil, fmt.Errorf("query by gene: %w", err)
	}
	defer rows.Close()

	return scanAnnotationRows(rows)
}

// SearchByGOID returns all stored rows whose GO ID list contains goID.
func (s *Store) SearchByGOID(goID string) ([]AnnotationRow, error) {
	rows, err := s.db.Query(selectColumns+`
		WHERE go_ids IS NOT NULL AND list_contains(string_split(go_ids, '|'), ?)
		ORDER BY source_file, sheet, row_index`, goID)
	if err != nil {
		return nil, fmt.Errorf("query by GO ID: %w", err)
	}
	defer rows.Close()

	return scanAnnotationRows(rows)
}

const selectColumns = `SELECT
	source_file, sheet, row_index, gene, padj, log2_fold_change,
	obo_names, fb_ids, go_ids
	FROM ` + annotationsTable

// scanAnnotationRows scans rows into AnnotationRow slices.
func scanAnnotationRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]AnnotationRow, error) {
	var out []AnnotationRow
	for rows.Next() {
		var r AnnotationRow
		var idx int32
		if err := rows.Scan(
			&r.SourceFile, &r.Sheet, &idx, &r.Gene, &r.Padj, &r.Log2FoldChange,
			&r.OBONames, &r.FBIDs, &r.GOIDs,
		); err != nil {
			return nil, fmt.Errorf("scan annotation row: %w", err)
		}
		r.RowIndex = int(idx)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate annotation rows: %w", err)
	}
	return out, nil
}

func nullable(ns sql.NullString) driver.Value {
	if !ns.Valid {
		return nil
	}
	return ns.String
}
