// Package obo parses Gene Ontology term definitions from OBO files.
package obo

// Term is a single [Term] stanza.
type Term struct {
	ID         string   // e.g. "GO:0008150"
	Name       string   // exposed as name_obo in joined output
	Namespace  string   // e.g. "biological_process"
	Definition string   // def: value with surrounding quotes removed
	IsA        []string // parent references in file order, e.g. "GO:0008150 ! biological_process"
}

// Index maps GO IDs to the terms that carry them.
// It is read-only after construction and safe for concurrent use.
type Index struct {
	byID  map[string][]Term
	count int
}

// NewIndex builds an Index over terms. Terms sharing an ID are kept in
// file order so that a join yields one row per term.
func NewIndex(terms []Term) *Index {
	idx := &Index{
		byID:  make(map[string][]Term, len(terms)),
		count: len(terms),
	}
	for _, t := range terms {
		idx.byID[t.ID] = append(idx.byID[t.ID], t)
	}
	return idx
}

// Terms returns the terms with the given ID, or nil.
func (idx *Index) Terms(id string) []Term {
	return idx.byID[id]
}

// Len returns the number of indexed terms.
func (idx *Index) Len() int {
	return idx.count
}
