package results

import "math"

// Sheet names for the three regulation categories.
const (
	SheetDown = "down_regulated"
	SheetUp   = "up_regulated"
	SheetBoth = "both"
)

// Thresholds control which rows are significant and regulated.
type Thresholds struct {
	Padj   float64 // keep rows with padj strictly below this
	Log2FC float64 // |log2FoldChange| must strictly exceed this
}

// DefaultThresholds returns padj < 0.05 and |log2FoldChange| > 1.
func DefaultThresholds() Thresholds {
	return Thresholds{Padj: 0.05, Log2FC: 1}
}

// Split holds the rows of each category in input order.
type Split struct {
	Down []Row
	Up   []Row
	Both []Row
}

// Split drops rows with a missing padj, keeps significant rows and
// classifies them by fold-change sign. Both is the union of Down and Up.
func (th Thresholds) Split(t *Table) Split {
	var s Split
	for _, r := range t.Rows {
		if !th.Significant(r) {
			continue
		}
		down := r.Log2FoldChange < -th.Log2FC
		up := r.Log2FoldChange > th.Log2FC
		if down {
			s.Down = append(s.Down, r)
		}
		if up {
			s.Up = append(s.Up, r)
		}
		if down || up {
			s.Both = append(s.Both, r)
		}
	}
	return s
}

// Significant reports whether r passes the padj cut.
func (th Thresholds) Significant(r Row) bool {
	return !math.IsNaN(r.Padj) && r.Padj < th.Padj
}
