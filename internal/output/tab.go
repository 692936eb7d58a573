// Package output provides annotation output formatters.
package output

import (
	"bufio"
	"io"
	"strings"

	"github.com/inodb/vibe-goa/internal/annotate"
)

// TabWriter writes gene lookups in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"gene",
			annotate.ColOBONames,
			annotate.ColFBIDs,
			annotate.ColGOIDs,
		},
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single lookup. Failed lookups and empty fields are shown as "-".
func (tw *TabWriter) Write(l annotate.Lookup) error {
	values := []string{dash(l.Gene), "-", "-", "-"}
	if l.OK() {
		values[1] = dash(l.Summary.OBONames)
		values[2] = dash(l.Summary.FBIDs)
		values[3] = dash(l.Summary.GOIDs)
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
