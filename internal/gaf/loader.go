package gaf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/pgzip"
	"go.uber.org/zap"
)

// Positional GAF columns (0-indexed).
const (
	ColFBID      = 1
	ColName      = 2
	ColKeyword   = 3
	ColGOID      = 4
	ColReference = 5
	ColEvidence  = 6
	ColCategory  = 8
	ColFullName  = 9
	ColAltNames  = 10
)

const (
	// CategoryProcess is the aspect marker for biological process annotations.
	CategoryProcess = "P"
	// NegationMarker in the keyword column excludes a row (case-insensitive).
	NegationMarker = "NOT"
	// DefaultSkipLines is the number of header lines skipped before data.
	DefaultSkipLines = 5

	commentPrefix     = "!"
	scannerBufferSize = 1 << 20
)

// MissingColumnError is returned when no data line reaches a required column.
type MissingColumnError struct {
	Column int
	Found  int // widest row seen
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("gene association file: required column %d not found (widest row has %d columns)", e.Column, e.Found)
}

// Loader builds a Table from a tab-delimited association file.
type Loader struct {
	skipLines int
	category  string
	logger    *zap.Logger
}

// NewLoader creates a loader that skips DefaultSkipLines lines and keeps
// biological process rows.
func NewLoader() *Loader {
	return &Loader{
		skipLines: DefaultSkipLines,
		category:  CategoryProcess,
		logger:    zap.NewNop(),
	}
}

// SetSkipLines sets how many leading lines to discard.
func (l *Loader) SetSkipLines(n int) {
	l.skipLines = n
}

// SetCategory sets the aspect to keep.
func (l *Loader) SetCategory(c string) {
	l.category = c
}

// SetLogger sets the logger.
func (l *Loader) SetLogger(logger *zap.Logger) {
	l.logger = logger
}

// Load reads the association file at path. Gzipped files are detected by
// their magic bytes.
func (l *Loader) Load(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gene association file: %w", err)
	}
	defer file.Close()

	br := bufio.NewReader(file)
	var r io.Reader = br

	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := pgzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	t, err := l.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}

// Parse reads association rows from r, keeps rows in the configured
// category whose keyword lacks the negation marker, and wraps alias lists.
func (l *Loader) Parse(r io.Reader) (*Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), scannerBufferSize)

	var (
		rows      []Association
		lineNo    int
		dataLines int
		widest    int
		negated   int
	)

	for scanner.Scan() {
		lineNo++
		if lineNo <= l.skipLines {
			continue
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}
		dataLines++

		fields := strings.Split(line, "\t")
		widest = max(widest, len(fields))

		a := Association{
			FBID:      field(fields, ColFBID),
			Name:      field(fields, ColName),
			Keyword:   field(fields, ColKeyword),
			GOID:      field(fields, ColGOID),
			Reference: field(fields, ColReference),
			Evidence:  field(fields, ColEvidence),
			Category:  field(fields, ColCategory),
			FullName:  field(fields, ColFullName),
			AltNames:  field(fields, ColAltNames),
		}

		if a.Category != l.category {
			continue
		}
		if strings.Contains(strings.ToUpper(a.Keyword), NegationMarker) {
			negated++
			continue
		}
		a.AltNames = wrapAliases(a.AltNames)
		rows = append(rows, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read gene association file: %w", err)
	}

	if dataLines == 0 || widest <= ColAltNames {
		return nil, &MissingColumnError{Column: ColAltNames, Found: widest}
	}

	l.logger.Debug("built association table",
		zap.Int("data_lines", dataLines),
		zap.Int("retained", len(rows)),
		zap.Int("negated", negated),
		zap.String("category", l.category))

	return &Table{rows: rows}, nil
}

// field returns fields[i], or "" when the row is short.
func field(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}
