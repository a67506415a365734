package media

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/metrics"
	"github.com/tendant/simple-cms/pkg/simplecms/urlstrategy"
)

// Resolution is the outcome of a lookup. URL is empty on a miss. A lookup
// served from the cache reports OutcomeCached, or OutcomeMiss for a cached
// miss.
type Resolution struct {
	URL     string
	Outcome string
	Path    string
}

// Found reports whether the reference resolved to a URL.
func (r Resolution) Found() bool {
	return r.URL != ""
}

// Resolver resolves stored media references against an AssetStore.
type Resolver struct {
	assets  simplecms.AssetStore
	urls    urlstrategy.URLStrategy
	cache   Cache
	metrics *metrics.Metrics
	group   singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithURLStrategy sets how asset paths become URLs. Defaults to
// root-relative URLs.
func WithURLStrategy(s urlstrategy.URLStrategy) Option {
	return func(r *Resolver) {
		r.urls = s
	}
}

// WithCache enables resolution caching.
func WithCache(c Cache) Option {
	return func(r *Resolver) {
		r.cache = c
	}
}

// WithMetrics records resolution outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// NewResolver creates a resolver probing assets.
func NewResolver(assets simplecms.AssetStore, opts ...Option) *Resolver {
	r := &Resolver{
		assets: assets,
		urls:   urlstrategy.NewDefaultStrategy(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the URL of ref, or defaultURL when it cannot be resolved.
// It never fails: asset store errors are logged and answered with
// defaultURL.
func (r *Resolver) Resolve(ctx context.Context, ref simplecms.MediaRef, category simplecms.MediaCategory, defaultURL string) string {
	res, err := r.Lookup(ctx, ref, category)
	if err != nil {
		slog.Error("media resolution failed", "category", category, "error", err)
		return defaultURL
	}
	if !res.Found() {
		return defaultURL
	}
	return res.URL
}

// Lookup resolves ref and reports asset store failures to the caller.
// Concurrent lookups of the same reference share one probe.
func (r *Resolver) Lookup(ctx context.Context, ref simplecms.MediaRef, category simplecms.MediaCategory) (Resolution, error) {
	p := ExtractPath(ref.Raw)
	if p == "" {
		r.metrics.ObserveResolution(string(category), metrics.OutcomeEmpty)
		return Resolution{Outcome: metrics.OutcomeEmpty}, nil
	}

	key := cacheKey(ref, category)
	if r.cache != nil {
		if val, ok := r.cache.Get(ctx, key); ok {
			r.metrics.ObserveCache(true)
			outcome := metrics.OutcomeCached
			if val == "" {
				outcome = metrics.OutcomeMiss
			}
			r.metrics.ObserveResolution(string(category), outcome)
			return Resolution{URL: val, Outcome: outcome, Path: p}, nil
		}
		r.metrics.ObserveCache(false)
	}

	// The shared lookup outlives a cancelled leader so coalesced callers
	// still get its answer.
	lookupCtx := context.WithoutCancel(ctx)
	v, err, _ := r.group.Do(key, func() (any, error) {
		res, err := r.resolve(lookupCtx, p, category)
		if err != nil {
			return res, err
		}
		if r.cache != nil {
			r.cache.Set(lookupCtx, key, res.URL)
		}
		return res, nil
	})
	res := v.(Resolution)
	if err != nil {
		return res, err
	}
	r.metrics.ObserveResolution(string(category), res.Outcome)
	if !res.Found() {
		slog.Warn("media reference unresolved", "category", category, "path", p)
	}
	return res, nil
}

// Invalidate drops the cached resolution of ref for category.
func (r *Resolver) Invalidate(ref simplecms.MediaRef, category simplecms.MediaCategory) {
	if r.cache == nil || ref.IsZero() {
		return
	}
	r.cache.Delete(context.Background(), cacheKey(ref, category))
}

func (r *Resolver) resolve(ctx context.Context, extracted string, category simplecms.MediaCategory) (Resolution, error) {
	ctx, span := otel.Tracer("github.com/tendant/simple-cms/media").Start(ctx, "media.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("media.category", string(category)))

	if IsExternal(extracted) {
		return Resolution{URL: extracted, Outcome: metrics.OutcomeExternal, Path: extracted}, nil
	}
	p := Canonicalize(extracted)
	if p == "" {
		return Resolution{Outcome: metrics.OutcomeMiss}, nil
	}

	for _, candidate := range Candidates(p, category) {
		ok, err := r.assets.Exists(ctx, candidate)
		if err != nil {
			span.RecordError(err)
			return Resolution{}, fmt.Errorf("probe %s: %w", candidate, err)
		}
		if ok {
			span.SetAttributes(attribute.String("media.outcome", metrics.OutcomeExact))
			return Resolution{URL: r.urls.AssetURL(candidate), Outcome: metrics.OutcomeExact, Path: candidate}, nil
		}
	}

	base := path.Base(p)
	for _, dir := range FuzzyDirs(category) {
		names, err := r.assets.ListDirectory(ctx, dir)
		if err != nil {
			span.RecordError(err)
			return Resolution{}, fmt.Errorf("list %s: %w", dir, err)
		}
		if name, ok := FuzzyMatch(base, names); ok {
			found := dir + "/" + name
			span.SetAttributes(attribute.String("media.outcome", metrics.OutcomeFuzzy))
			return Resolution{URL: r.urls.AssetURL(found), Outcome: metrics.OutcomeFuzzy, Path: found}, nil
		}
	}

	span.SetAttributes(attribute.String("media.outcome", metrics.OutcomeMiss))
	return Resolution{Outcome: metrics.OutcomeMiss, Path: p}, nil
}

func cacheKey(ref simplecms.MediaRef, category simplecms.MediaCategory) string {
	return string(category) + "\x00" + ref.StorageString()
}

var _ simplecms.MediaResolver = (*Resolver)(nil)
