package search

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/metrics"
	"github.com/tendant/simple-cms/pkg/simplecms/urlstrategy"
)

// Linker builds the canonical link of a hit.
type Linker interface {
	ItemLink(entityType simplecms.EntityType, id uuid.UUID) string
}

// Engine answers cross-type searches against a ContentStore.
type Engine struct {
	store    simplecms.ContentStore
	analyzer *Analyzer
	linker   Linker
	types    []simplecms.EntityType
	metrics  *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLinker sets the link builder. Defaults to root-relative links.
func WithLinker(l Linker) Option {
	return func(e *Engine) {
		e.linker = l
	}
}

// WithMetrics records search metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithEntityTypes restricts the searched types. Order does not matter: hits
// are always tie-broken by EntityType.Priority.
func WithEntityTypes(types ...simplecms.EntityType) Option {
	return func(e *Engine) {
		e.types = types
	}
}

// NewEngine creates an engine. analyzer must be the one the store indexes
// with.
func NewEngine(store simplecms.ContentStore, analyzer *Analyzer, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		analyzer: analyzer,
		linker:   urlstrategy.NewDefaultStrategy(),
		types:    simplecms.SearchableTypes,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Parse parses queryText with the engine's analyzer.
func (e *Engine) Parse(queryText string) simplecms.Query {
	return ParseQuery(e.analyzer, queryText)
}

// Search returns hits across all configured types, ordered by descending
// score, then newer creation time, then type priority, then identifier.
// limit <= 0 means no cap. A query without any positive term returns an
// empty result without touching the store.
func (e *Engine) Search(ctx context.Context, queryText string, limit int) ([]simplecms.SearchHit, error) {
	query := e.Parse(queryText)
	if query.IsEmpty() {
		return []simplecms.SearchHit{}, nil
	}

	ctx, span := otel.Tracer("github.com/tendant/simple-cms/search").Start(ctx, "search.Search")
	defer span.End()
	span.SetAttributes(
		attribute.String("search.query", queryText),
		attribute.Bool("search.literal", query.Literal),
	)

	start := time.Now()
	hits, err := e.search(ctx, query, limit)
	e.metrics.ObserveSearch(time.Since(start), len(hits), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("search.hits", len(hits)))
	return hits, nil
}

func (e *Engine) search(ctx context.Context, query simplecms.Query, limit int) ([]simplecms.SearchHit, error) {
	perType := make([][]simplecms.Match, len(e.types))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range e.types {
		g.Go(func() error {
			matches, err := e.store.QueryByVector(gctx, query, t, limit)
			if err != nil {
				return fmt.Errorf("search %s: %w", t, err)
			}
			perType[i] = matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var hits []simplecms.SearchHit
	for i, matches := range perType {
		for _, m := range matches {
			hits = append(hits, simplecms.SearchHit{
				Type:  e.types[i],
				Item:  m.Item,
				Score: m.Score,
				Link:  e.linker.ItemLink(e.types[i], m.Item.ItemID()),
			})
		}
	}
	Merge(hits)
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	if hits == nil {
		hits = []simplecms.SearchHit{}
	}
	return hits, nil
}

// Merge sorts hits into the result order in place.
func Merge(hits []simplecms.SearchHit) {
	slices.SortStableFunc(hits, compareHits)
}

func compareHits(a, b simplecms.SearchHit) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := b.Item.Created().Compare(a.Item.Created()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Type.Priority(), b.Type.Priority()); c != 0 {
		return c
	}
	return cmp.Compare(a.Item.ItemID().String(), b.Item.ItemID().String())
}
