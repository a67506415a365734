package search

import (
	"html"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/metrics"
)

// fieldGap separates positions of consecutive fields so phrases never match
// across a field boundary.
const fieldGap = 1

// Posting is one occurrence of a lexeme.
type Posting struct {
	Pos    int
	Weight simplecms.Weight
}

// Vector maps each lexeme of an item to its occurrences in position order.
type Vector map[string][]Posting

// Lexemes returns the vector's lexemes, sorted.
func (v Vector) Lexemes() []string {
	out := make([]string, 0, len(v))
	for lex := range v {
		out = append(out, lex)
	}
	sort.Strings(out)
	return out
}

// String renders the vector in tsvector notation, e.g. 'run':1A,4C.
func (v Vector) String() string {
	var b strings.Builder
	for i, lex := range v.Lexemes() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString("'" + strings.ReplaceAll(lex, "'", "''") + "':")
		for j, p := range v[lex] {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(p.Pos + 1))
			b.WriteString(p.Weight.Label())
		}
	}
	return b.String()
}

// Indexer derives search vectors from the weighted text fields of an item.
type Indexer struct {
	analyzer *Analyzer
	metrics  *metrics.Metrics
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithIndexerMetrics records degradations on m.
func WithIndexerMetrics(m *metrics.Metrics) IndexerOption {
	return func(ix *Indexer) {
		ix.metrics = m
	}
}

// NewIndexer creates an indexer over analyzer.
func NewIndexer(analyzer *Analyzer, opts ...IndexerOption) *Indexer {
	ix := &Indexer{analyzer: analyzer}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Analyzer returns the analyzer used for documents; queries must use the same one.
func (ix *Indexer) Analyzer() *Analyzer {
	return ix.analyzer
}

// Index builds the vector of item. It never fails: text the analyzer
// cannot process is split naively and the degradation is logged.
func (ix *Indexer) Index(item simplecms.ContentItem) Vector {
	v := make(Vector)
	pos := 0
	for _, field := range item.TextFields() {
		tokens, degraded := ix.analyzer.Analyze(PlainText(field.Text))
		if degraded {
			slog.Warn("search indexing degraded to naive tokenization",
				"type", item.ItemType(), "id", item.ItemID(), "field", field.Name)
			ix.metrics.IndexDegraded(string(item.ItemType()))
		}
		for _, tok := range tokens {
			v[tok.Term] = append(v[tok.Term], Posting{Pos: pos, Weight: field.Weight})
			pos++
		}
		pos += fieldGap
	}
	return v
}

var markupPolicy = bluemonday.StrictPolicy()

// PlainText strips markup from text.
func PlainText(text string) string {
	if !strings.ContainsAny(text, "<&") {
		return text
	}
	return html.UnescapeString(markupPolicy.Sanitize(text))
}
