package output

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	annoSuffix  = "_ANNO"
	workbookExt = ".xlsx"
)

// Sheet is one worksheet: a header row followed by data rows. A nil cell
// is written as an empty cell.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

// OutputPaths returns the annotation directory and workbook path for a
// result file: <dir>_ANNO/<base>_ANNO.xlsx, with dir made absolute.
func OutputPaths(csvPath string) (dir, file string, err error) {
	abs, err := filepath.Abs(csvPath)
	if err != nil {
		return "", "", fmt.Errorf("resolve %s: %w", csvPath, err)
	}
	base := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	dir = filepath.Dir(abs) + annoSuffix
	return dir, filepath.Join(dir, base+annoSuffix+workbookExt), nil
}

// WriteWorkbook writes sheets, in order, to a single workbook at path.
// The workbook is built in a temporary file next to path and renamed into
// place, so readers never observe a partial file.
func WriteWorkbook(path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("write workbook: no sheets")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.Name); err != nil {
				return fmt.Errorf("rename sheet %s: %w", s.Name, err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return fmt.Errorf("create sheet %s: %w", s.Name, err)
		}
		if err := writeSheet(f, s); err != nil {
			return fmt.Errorf("write sheet %s: %w", s.Name, err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".anno-*"+workbookExt)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chmod workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close workbook: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, s Sheet) error {
	sw, err := f.NewStreamWriter(s.Name)
	if err != nil {
		return err
	}

	header := make([]any, len(s.Header))
	for i, h := range s.Header {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i, row := range s.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}

// Cell converts a raw text cell to a workbook value. Finite numbers become
// float64, empty strings become empty cells, anything else stays text.
func Cell(s string) any {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return s
	}
	return v
}

// RowCells converts the raw cells of a result row. The first column holds
// the gene identifier and stays text, so IDs such as "0123" or "1e3" are
// written unchanged; the rest go through Cell.
func RowCells(values []string) []any {
	cells := make([]any, 0, len(values))
	for i, v := range values {
		if i == 0 {
			cells = append(cells, v)
			continue
		}
		cells = append(cells, Cell(v))
	}
	return cells
}
