// Package gaf loads gene-association (GAF) files into a filtered lookup
// table and resolves gene names against it.
package gaf

import (
	"slices"
	"strings"
)

// AliasSeparator delimits entries in Association.AltNames.
const AliasSeparator = "|"

// Association is one retained gene to GO term link.
type Association struct {
	FBID      string // DB object ID, e.g. "FBgn0000008"
	Name      string // primary gene symbol
	Keyword   string // qualifier, e.g. "NOT" or "involved_in"
	GOID      string // join key into the ontology, e.g. "GO:0007155"
	Reference string
	Evidence  string
	Category  string // aspect: P, F or C
	FullName  string
	AltNames  string // always wrapped: "|alias1|alias2|"
}

// Table is an immutable set of associations.
type Table struct {
	rows []Association
}

// NewTable wraps rows in a Table. The slice is copied.
func NewTable(rows []Association) *Table {
	return &Table{rows: slices.Clone(rows)}
}

// Len returns the number of associations.
func (t *Table) Len() int {
	return len(t.rows)
}

// Rows returns a copy of all associations.
func (t *Table) Rows() []Association {
	return slices.Clone(t.rows)
}

// Resolve returns every association whose alias list contains name as a
// whole "|name|" token, or whose primary name contains name as a
// substring. Matching is literal and case-sensitive. Rows appear once, in
// table order. No match returns nil.
func (t *Table) Resolve(name string) []Association {
	token := AliasSeparator + name + AliasSeparator

	var matched []Association
	for _, a := range t.rows {
		if strings.Contains(a.AltNames, token) || strings.Contains(a.Name, name) {
			matched = append(matched, a)
		}
	}
	return matched
}

// wrapAliases normalises an alias field to "|...|".
func wrapAliases(s string) string {
	return AliasSeparator + strings.Trim(s, AliasSeparator) + AliasSeparator
}
