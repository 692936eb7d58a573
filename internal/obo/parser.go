package obo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

const (
	termStanza        = "[Term]"
	scannerBufferSize = 1 << 20 // 1 MB
)

// Tags recognised inside a [Term] stanza.
const (
	TagID        = "id"
	TagName      = "name"
	TagNamespace = "namespace"
	TagDef       = "def"
	TagIsA       = "is_a"
)

var tags = []string{TagID, TagName, TagNamespace, TagDef, TagIsA}

// MalformedLineError reports a recognised tag line that has no "tag: value" shape.
type MalformedLineError struct {
	Line int
	Tag  string
	Text string
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("obo parse error at line %d: %s line without %q separator: %q", e.Line, e.Tag, ": ", e.Text)
}

// Parser reads [Term] stanzas from OBO text.
type Parser struct {
	strict      bool
	stanzaAware bool
	logger      *zap.Logger
}

// NewParser creates a parser that skips malformed tag lines.
func NewParser() *Parser {
	return &Parser{logger: zap.NewNop()}
}

// SetStrict makes Parse fail on the first malformed tag line instead of
// skipping the field.
func (p *Parser) SetStrict(strict bool) {
	p.strict = strict
}

// SetStanzaAware makes any other stanza header, such as [Typedef], close
// the current term; tag lines up to the next [Term] are then ignored. By
// default only [Term] is a boundary and other header lines are skipped.
func (p *Parser) SetStanzaAware(aware bool) {
	p.stanzaAware = aware
}

// SetLogger sets the logger used for skipped lines.
func (p *Parser) SetLogger(l *zap.Logger) {
	p.logger = l
}

// Load parses the OBO file at path.
func (p *Parser) Load(path string) ([]Term, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obo file: %w", err)
	}
	defer f.Close()

	terms, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return terms, nil
}

// Parse reads all terms from r. A term is emitted when the next [Term]
// header is reached or input ends; stanzas that never set a field are
// dropped.
func (p *Parser) Parse(r io.Reader) ([]Term, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), scannerBufferSize)

	var (
		terms  []Term
		state  termState
		lineNo int
	)
	for scanner.Scan() {
		lineNo++
		next, done, err := step(state, scanner.Text(), lineNo, p.stanzaAware)
		if err != nil {
			if p.strict {
				return nil, err
			}
			p.logger.Warn("skipping malformed obo line",
				zap.Int("line", err.Line),
				zap.String("tag", err.Tag),
				zap.String("text", err.Text))
		}
		if done != nil {
			terms = append(terms, *done)
		}
		state = next
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read obo: %w", err)
	}

	if t, ok := state.flush(); ok {
		terms = append(terms, t)
	}
	return terms, nil
}

// termState is the term under construction. The zero value is the
// preamble before the first [Term] header.
type termState struct {
	term   Term
	set    bool // any field assigned
	inTerm bool
}

// flush returns the current term if any field was set.
func (s termState) flush() (Term, bool) {
	return s.term, s.set
}

// step consumes one line. It returns the next state, the term closed by
// this line (if any), and a *MalformedLineError when a tag line could not
// be split. On error the field is left untouched. With stanzaAware set,
// every "[...]" header is a boundary; otherwise only [Term] is.
func step(s termState, raw string, lineNo int, stanzaAware bool) (termState, *Term, *MalformedLineError) {
	line := strings.TrimSpace(raw)

	if line == termStanza || (stanzaAware && isStanzaHeader(line)) {
		var done *Term
		if t, ok := s.flush(); ok {
			done = &t
		}
		return termState{inTerm: line == termStanza}, done, nil
	}

	if !s.inTerm {
		return s, nil, nil
	}

	for _, tag := range tags {
		if !strings.HasPrefix(line, tag+":") {
			continue
		}
		_, val, ok := strings.Cut(line, tag+": ")
		if !ok {
			return s, nil, &MalformedLineError{Line: lineNo, Tag: tag, Text: line}
		}
		return s.assign(tag, strings.TrimSpace(val)), nil, nil
	}
	return s, nil, nil
}

func isStanzaHeader(line string) bool {
	return strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]")
}

// assign returns a copy of s with the tag value stored.
func (s termState) assign(tag, val string) termState {
	switch tag {
	case TagID:
		s.term.ID = val
	case TagName:
		s.term.Name = val
	case TagNamespace:
		s.term.Namespace = val
	case TagDef:
		s.term.Definition = unquote(val)
	case TagIsA:
		isA := make([]string, len(s.term.IsA), len(s.term.IsA)+1)
		copy(isA, s.term.IsA)
		s.term.IsA = append(isA, val)
	}
	s.set = true
	return s
}

// unquote strips one leading and one trailing double quote.
func unquote(s string) string {
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}
