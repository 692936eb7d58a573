package annotate

import "strings"

// Separator joins flattened values in summary fields.
const Separator = "|"

// Output column names for the summary fields.
const (
	ColOBONames = "OBO_names"
	ColFBIDs    = "FB_IDs"
	ColGOIDs    = "GO_IDs"
)

// SummaryColumns lists the derived columns in output order.
var SummaryColumns = []string{ColOBONames, ColFBIDs, ColGOIDs}

// Match is one projected join row.
type Match struct {
	FBID    string
	GOID    string
	Name    string // association gene symbol
	NameOBO string // ontology term name; empty when HasTerm is false
	HasTerm bool
}

// Summary is the flattened form of a gene's matches.
type Summary struct {
	OBONames string // every term name, "|"-joined; unmatched terms give empty segments
	FBIDs    string // unique FlyBase IDs in first-seen order
	GOIDs    string // every GO ID, not deduplicated, aligned with OBONames
}

// Summarize flattens matches into pipe-delimited fields.
func Summarize(matches []Match) Summary {
	names := make([]string, len(matches))
	goIDs := make([]string, len(matches))
	var fbIDs []string
	seen := make(map[string]bool, len(matches))

	for i, m := range matches {
		names[i] = m.NameOBO
		goIDs[i] = m.GOID
		if !seen[m.FBID] {
			seen[m.FBID] = true
			fbIDs = append(fbIDs, m.FBID)
		}
	}

	return Summary{
		OBONames: strings.Join(names, Separator),
		FBIDs:    strings.Join(fbIDs, Separator),
		GOIDs:    strings.Join(goIDs, Separator),
	}
}

// Lookup is the typed outcome of annotating one gene.
type Lookup struct {
	Gene    string
	Summary Summary
	Err     error // non-nil when the gene could not be annotated
}

// OK reports whether the lookup succeeded.
func (l Lookup) OK() bool {
	return l.Err == nil
}

// Values returns the summary fields in SummaryColumns order, or three nils
// for a failed lookup.
func (l Lookup) Values() []any {
	if !l.OK() {
		return []any{nil, nil, nil}
	}
	return []any{l.Summary.OBONames, l.Summary.FBIDs, l.Summary.GOIDs}
}
