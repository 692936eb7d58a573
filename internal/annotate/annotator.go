// Package annotate joins gene names to GO biological-process terms.
package annotate

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-goa/internal/gaf"
	"github.com/inodb/vibe-goa/internal/obo"
)

var (
	// ErrNoMatch is returned when a gene name resolves to no association rows.
	ErrNoMatch = errors.New("gene not found in association data")
	// ErrEmptyName is returned for a blank gene name.
	ErrEmptyName = errors.New("empty gene name")
)

// AssociationLookup resolves a gene name to association rows.
type AssociationLookup interface {
	Resolve(name string) []gaf.Association
}

// TermLookup finds ontology terms by GO ID.
type TermLookup interface {
	Terms(id string) []obo.Term
}

// Annotator annotates gene names with GO terms.
// It holds only read-only lookups and may be shared between goroutines.
type Annotator struct {
	assoc  AssociationLookup
	terms  TermLookup
	logger *zap.Logger
}

// NewAnnotator creates a new annotator over the given lookups.
func NewAnnotator(assoc AssociationLookup, terms TermLookup) *Annotator {
	return &Annotator{
		assoc:  assoc,
		terms:  terms,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for warning and info messages.
func (a *Annotator) SetLogger(l *zap.Logger) {
	a.logger = l
}

// Match resolves name and left-joins each association row with the terms
// sharing its GO ID. A row with no term yields one Match with HasTerm false;
// a row with several terms yields one Match per term.
func (a *Annotator) Match(name string) ([]Match, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	rows := a.assoc.Resolve(name)
	if len(rows) == 0 {
		return nil, ErrNoMatch
	}

	matches := make([]Match, 0, len(rows))
	for _, r := range rows {
		terms := a.terms.Terms(r.GOID)
		if len(terms) == 0 {
			matches = append(matches, Match{FBID: r.FBID, GOID: r.GOID, Name: r.Name})
			continue
		}
		for _, t := range terms {
			matches = append(matches, Match{
				FBID:    r.FBID,
				GOID:    r.GOID,
				Name:    r.Name,
				NameOBO: t.Name,
				HasTerm: true,
			})
		}
	}
	return matches, nil
}

// Annotate matches and summarizes a single gene. Failures are logged with
// the gene name and reported in Lookup.Err; they never abort the caller.
func (a *Annotator) Annotate(name string) Lookup {
	matches, err := a.Match(name)
	if err != nil {
		a.logger.Warn("no FlyBase data for gene",
			zap.String("gene", name),
			zap.Error(err))
		return Lookup{Gene: name, Err: fmt.Errorf("annotate %q: %w", name, err)}
	}
	return Lookup{Gene: name, Summary: Summarize(matches)}
}

// AnnotateAll annotates every gene and returns results in input order.
// With workers <= 1 genes are annotated sequentially on the calling
// goroutine; otherwise a worker pool is used.
func (a *Annotator) AnnotateAll(genes []string, workers int) []Lookup {
	out := make([]Lookup, len(genes))
	if workers <= 1 {
		for i, g := range genes {
			out[i] = a.Annotate(g)
		}
		return out
	}

	items := make(chan WorkItem, len(genes))
	for i, g := range genes {
		items <- WorkItem{Seq: i, Gene: g}
	}
	close(items)

	// The callback never fails, so OrderedCollect cannot return an error.
	_ = OrderedCollect(a.ParallelAnnotate(items, workers), func(r WorkResult) error {
		out[r.Seq] = r.Lookup
		return nil
	})
	return out
}
