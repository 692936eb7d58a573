// Package plot renders diagnostic charts for annotated result tables.
package plot

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Point is one gene on a volcano plot.
type Point struct {
	Log2FoldChange float64
	Padj           float64
}

var (
	colorDown = color.RGBA{R: 50, G: 100, B: 200, A: 255}
	colorUp   = color.RGBA{R: 200, G: 50, B: 50, A: 255}
	colorNS   = color.RGBA{R: 160, G: 160, B: 160, A: 255}
	colorLine = color.RGBA{A: 160}
)

// Volcano writes a volcano plot of points to path. The image format is
// taken from the extension (png, svg, pdf). Genes pass the cutoffs when
// padj < padjCut and |log2FoldChange| > lfcCut. Points with a NaN value
// are not drawn; padj values of zero are clamped to the smallest positive
// padj present so they stay on the chart.
func Volcano(path string, points []Point, padjCut, lfcCut float64) error {
	floor := minPositivePadj(points)

	var down, up, ns plotter.XYs
	maxY := -math.Log10(padjCut)
	for _, pt := range points {
		if math.IsNaN(pt.Log2FoldChange) || math.IsNaN(pt.Padj) {
			continue
		}
		y := negLog10(pt.Padj, floor)
		if y > maxY {
			maxY = y
		}
		xy := plotter.XY{X: pt.Log2FoldChange, Y: y}
		switch {
		case pt.Padj < padjCut && pt.Log2FoldChange < -lfcCut:
			down = append(down, xy)
		case pt.Padj < padjCut && pt.Log2FoldChange > lfcCut:
			up = append(up, xy)
		default:
			ns = append(ns, xy)
		}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Volcano plot (%s)", filepath.Base(path))
	p.X.Label.Text = "log2 fold change"
	p.Y.Label.Text = "-log10 adjusted p-value"
	p.Legend.Top = true

	for _, series := range []struct {
		label string
		xys   plotter.XYs
		color color.Color
	}{
		{"not significant", ns, colorNS},
		{"down", down, colorDown},
		{"up", up, colorUp},
	} {
		if len(series.xys) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(series.xys)
		if err != nil {
			return fmt.Errorf("scatter %s: %w", series.label, err)
		}
		sc.GlyphStyle.Color = series.color
		sc.GlyphStyle.Radius = vg.Points(1.5)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
		p.Legend.Add(fmt.Sprintf("%s (%d)", series.label, len(series.xys)), sc)
	}

	guides, err := guideLines(padjCut, lfcCut, maxY)
	if err != nil {
		return err
	}
	for _, g := range guides {
		p.Add(g)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create plot directory: %w", err)
		}
	}
	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save volcano plot: %w", err)
	}
	return nil
}

// guideLines draws the two fold-change cutoffs and the padj cutoff.
func guideLines(padjCut, lfcCut, maxY float64) ([]*plotter.Line, error) {
	yCut := -math.Log10(padjCut)
	xMax := lfcCut * 4
	if xMax < 2 {
		xMax = 2
	}
	segments := []plotter.XYs{
		{{X: -lfcCut, Y: 0}, {X: -lfcCut, Y: maxY}},
		{{X: lfcCut, Y: 0}, {X: lfcCut, Y: maxY}},
		{{X: -xMax, Y: yCut}, {X: xMax, Y: yCut}},
	}

	lines := make([]*plotter.Line, 0, len(segments))
	for _, seg := range segments {
		l, err := plotter.NewLine(seg)
		if err != nil {
			return nil, fmt.Errorf("guide line: %w", err)
		}
		l.LineStyle.Color = colorLine
		l.LineStyle.Width = vg.Points(0.5)
		l.LineStyle.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
		lines = append(lines, l)
	}
	return lines, nil
}

func minPositivePadj(points []Point) float64 {
	floor := math.MaxFloat64
	for _, pt := range points {
		if pt.Padj > 0 && pt.Padj < floor {
			floor = pt.Padj
		}
	}
	if floor == math.MaxFloat64 {
		return math.SmallestNonzeroFloat64
	}
	return floor
}

func negLog10(padj, floor float64) float64 {
	if padj < floor {
		padj = floor
	}
	return -math.Log10(padj)
}
