// Package batch annotates whole result files: discovery, significance
// split, annotation, workbook output and the optional store and plot.
package batch

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/inodb/vibe-goa/internal/annotate"
	"github.com/inodb/vibe-goa/internal/duckdb"
	"github.com/inodb/vibe-goa/internal/output"
	"github.com/inodb/vibe-goa/internal/plot"
	"github.com/inodb/vibe-goa/internal/results"
)

const volcanoSuffix = "_volcano.png"

// Store records annotated rows. *duckdb.Store satisfies it.
type Store interface {
	ReplaceSource(source string, rows []duckdb.AnnotationRow) error
}

// SheetReport summarizes one written sheet.
type SheetReport struct {
	Name         string
	Rows         int
	Failed       []string // genes with null annotation fields
	MeanLog2FC   float64  // NaN for an empty sheet
	StdDevLog2FC float64  // NaN with fewer than two rows
}

// Report describes one processed input file.
type Report struct {
	Input     string
	Workbook  string
	Plot      string // empty when plotting is disabled
	TotalRows int
	Sheets    []SheetReport
}

// RunSummary counts the outcome of a Run.
type RunSummary struct {
	Files     int
	Succeeded int
	Failed    int
	Reports   []*Report
}

// Processor turns result files into annotated workbooks.
type Processor struct {
	annotator  *annotate.Annotator
	thresholds results.Thresholds
	workers    int
	store      Store
	plot       bool
	logger     *zap.Logger
}

// NewProcessor creates a processor with default thresholds and one worker.
func NewProcessor(a *annotate.Annotator) *Processor {
	return &Processor{
		annotator:  a,
		thresholds: results.DefaultThresholds(),
		workers:    1,
		logger:     zap.NewNop(),
	}
}

// SetThresholds sets the significance cutoffs.
func (p *Processor) SetThresholds(th results.Thresholds) {
	p.thresholds = th
}

// SetWorkers sets the number of annotation workers.
func (p *Processor) SetWorkers(n int) {
	p.workers = n
}

// SetStore enables recording annotated rows. A nil store disables it.
func (p *Processor) SetStore(s Store) {
	p.store = s
}

// SetPlot enables volcano plot output.
func (p *Processor) SetPlot(enabled bool) {
	p.plot = enabled
}

// SetLogger sets the logger.
func (p *Processor) SetLogger(l *zap.Logger) {
	p.logger = l
}

// Run processes every file. A failing file is logged and counted and the
// rest still run; the returned error is non-nil when any file failed.
func (p *Processor) Run(paths []string) (RunSummary, error) {
	var sum RunSummary
	for _, path := range paths {
		sum.Files++
		rep, err := p.ProcessFile(path)
		if err != nil {
			sum.Failed++
			p.logger.Error("failed to annotate file",
				zap.String("file", path),
				zap.Error(err))
			continue
		}
		sum.Succeeded++
		sum.Reports = append(sum.Reports, rep)
	}

	if sum.Failed > 0 {
		return sum, fmt.Errorf("%d of %d files failed", sum.Failed, sum.Files)
	}
	return sum, nil
}

// ProcessFile annotates one result file and writes its workbook.
func (p *Processor) ProcessFile(path string) (*Report, error) {
	table, err := results.Read(path)
	if err != nil {
		return nil, err
	}

	annoDir, workbook, err := output.OutputPaths(path)
	if err != nil {
		return nil, err
	}

	split := p.thresholds.Split(table)

	// Down and up are subsets of both, so each gene is looked up once.
	lookups := p.lookupRows(split.Both)

	categories := []struct {
		name string
		rows []results.Row
	}{
		{results.SheetDown, split.Down},
		{results.SheetUp, split.Up},
		{results.SheetBoth, split.Both},
	}

	header := append(append([]string(nil), table.Columns...), annotate.SummaryColumns...)
	rep := &Report{Input: path, Workbook: workbook, TotalRows: len(table.Rows)}
	sheets := make([]output.Sheet, 0, len(categories))
	var stored []duckdb.AnnotationRow

	for _, c := range categories {
		sheet := output.Sheet{Name: c.name, Header: header, Rows: make([][]any, 0, len(c.rows))}
		sr := SheetReport{Name: c.name, Rows: len(c.rows)}
		lfc := make([]float64, 0, len(c.rows))

		for i, r := range c.rows {
			l := lookups[r.Line]
			sheet.Rows = append(sheet.Rows, append(output.RowCells(r.Values), l.Values()...))

			if !l.OK() {
				sr.Failed = append(sr.Failed, r.Gene)
			}
			if !math.IsNaN(r.Log2FoldChange) {
				lfc = append(lfc, r.Log2FoldChange)
			}
			if p.store != nil {
				stored = append(stored, storeRow(path, c.name, i, r, l))
			}
		}

		sr.MeanLog2FC, sr.StdDevLog2FC = meanStdDev(lfc)
		sheets = append(sheets, sheet)
		rep.Sheets = append(rep.Sheets, sr)
	}

	if err := os.MkdirAll(annoDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if err := output.WriteWorkbook(workbook, sheets); err != nil {
		return nil, err
	}
	p.logger.Info("saved annotated workbook",
		zap.String("input", path),
		zap.String("workbook", workbook),
		zap.Int("down", len(split.Down)),
		zap.Int("up", len(split.Up)),
		zap.Int("both", len(split.Both)))

	if p.store != nil {
		if err := p.store.ReplaceSource(path, stored); err != nil {
			return nil, fmt.Errorf("store annotations: %w", err)
		}
	}

	if p.plot {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		rep.Plot = filepath.Join(annoDir, base+volcanoSuffix)
		if err := plot.Volcano(rep.Plot, volcanoPoints(table), p.thresholds.Padj, p.thresholds.Log2FC); err != nil {
			return nil, err
		}
		p.logger.Debug("saved volcano plot", zap.String("plot", rep.Plot))
	}

	return rep, nil
}

// lookupRows annotates rows and keys the results by source line.
func (p *Processor) lookupRows(rows []results.Row) map[int]annotate.Lookup {
	genes := make([]string, len(rows))
	for i, r := range rows {
		genes[i] = r.Gene
	}
	lookups := p.annotator.AnnotateAll(genes, p.workers)

	byLine := make(map[int]annotate.Lookup, len(rows))
	for i, r := range rows {
		byLine[r.Line] = lookups[i]
	}
	return byLine
}

func storeRow(source, sheet string, idx int, r results.Row, l annotate.Lookup) duckdb.AnnotationRow {
	row := duckdb.AnnotationRow{
		SourceFile:     source,
		Sheet:          sheet,
		RowIndex:       idx,
		Gene:           r.Gene,
		Padj:           r.Padj,
		Log2FoldChange: r.Log2FoldChange,
	}
	if l.OK() {
		row.OBONames = sql.NullString{String: l.Summary.OBONames, Valid: true}
		row.FBIDs = sql.NullString{String: l.Summary.FBIDs, Valid: true}
		row.GOIDs = sql.NullString{String: l.Summary.GOIDs, Valid: true}
	}
	return row
}

func volcanoPoints(t *results.Table) []plot.Point {
	pts := make([]plot.Point, 0, len(t.Rows))
	for _, r := range t.Rows {
		pts = append(pts, plot.Point{Log2FoldChange: r.Log2FoldChange, Padj: r.Padj})
	}
	return pts
}

func meanStdDev(x []float64) (mean, std float64) {
	if len(x) == 0 {
		return math.NaN(), math.NaN()
	}
	mean = stat.Mean(x, nil)
	if len(x) < 2 {
		return mean, math.NaN()
	}
	return mean, stat.StdDev(x, nil)
}
