// Package results reads differential-expression result tables.
package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Column names.
const (
	ColGene           = "gene" // the first column is always renamed to this
	ColPadj           = "padj"
	ColLog2FoldChange = "log2FoldChange"
)

// naValues are cells read as missing numbers.
var naValues = map[string]bool{
	"":     true,
	"NA":   true,
	"NaN":  true,
	"nan":  true,
	"N/A":  true,
	"NULL": true,
	"null": true,
}

// MissingColumnError is returned when a required column is absent.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("required column %q not found in header", e.Column)
}

// ParseError represents an error during table parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("result table parse error at line %d: %s", e.Line, e.Message)
}

// Row is one gene-level result.
type Row struct {
	Line           int
	Values         []string // raw cells, aligned with Table.Columns
	Gene           string
	Padj           float64 // NaN when missing
	Log2FoldChange float64 // NaN when missing
}

// Table is a parsed result file.
type Table struct {
	Columns []string
	Rows    []Row
}

// Read parses the CSV file at path.
func Read(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open result table: %w", err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// Parse reads a comma-separated table with a header row. The first column
// is renamed to "gene"; padj and log2FoldChange must be present.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Line: 1, Message: "no header line found"}
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := append([]string(nil), header...)
	columns[0] = ColGene

	padjIdx := indexOf(columns, ColPadj)
	if padjIdx < 0 {
		return nil, &MissingColumnError{Column: ColPadj}
	}
	lfcIdx := indexOf(columns, ColLog2FoldChange)
	if lfcIdx < 0 {
		return nil, &MissingColumnError{Column: ColLog2FoldChange}
	}

	t := &Table{Columns: columns}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := cr.FieldPos(0)

		// Short rows are padded; extra cells are dropped.
		values := make([]string, len(columns))
		copy(values, record)

		padj, err := parseNumber(values[padjIdx])
		if err != nil {
			return nil, &ParseError{Line: line, Message: fmt.Sprintf("invalid %s: %q", ColPadj, values[padjIdx])}
		}
		lfc, err := parseNumber(values[lfcIdx])
		if err != nil {
			return nil, &ParseError{Line: line, Message: fmt.Sprintf("invalid %s: %q", ColLog2FoldChange, values[lfcIdx])}
		}

		t.Rows = append(t.Rows, Row{
			Line:           line,
			Values:         values,
			Gene:           values[0],
			Padj:           padj,
			Log2FoldChange: lfc,
		})
	}
	return t, nil
}

// parseNumber parses a numeric cell, mapping NA markers to NaN.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if naValues[s] {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func indexOf(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	return -1
}
