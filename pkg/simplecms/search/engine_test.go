package search_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/repo/memory"
	"github.com/tendant/simple-cms/pkg/simplecms/search"
)

type countingStore struct {
	simplecms.ContentStore
	queries atomic.Int32
	err     error
}

func (s *countingStore) QueryByVector(ctx context.Context, q simplecms.Query, t simplecms.EntityType, limit int) ([]simplecms.Match, error) {
	s.queries.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.ContentStore.QueryByVector(ctx, q, t, limit)
}

func setup(t *testing.T) (*memory.Repository, *search.Engine) {
	t.Helper()
	analyzer := search.NewAnalyzer("english")
	repo := memory.New(search.NewIndexer(analyzer))
	return repo, search.NewEngine(repo, analyzer)
}

func book(title, description string, created time.Time) *simplecms.Book {
	return &simplecms.Book{
		ID:          uuid.New(),
		Title:       title,
		Language:    "en",
		Category:    "general",
		Cover:       simplecms.NewMediaRef("cover.jpg"),
		Description: description,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func article(title, content string, created time.Time) *simplecms.Article {
	return &simplecms.Article{
		ID:        uuid.New(),
		Title:     title,
		Summary:   "summary",
		Content:   content,
		Category:  simplecms.DefaultArticleCategory,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestEngine_EmptyQueryDoesNotTouchStore(t *testing.T) {
	repo, _ := setup(t)
	store := &countingStore{ContentStore: repo}
	engine := search.NewEngine(store, search.NewAnalyzer("english"))

	for _, q := range []string{"", "   ", "the", "-excluded"} {
		hits, err := engine.Search(context.Background(), q, 0)
		require.NoError(t, err)
		assert.NotNil(t, hits)
		assert.Empty(t, hits)
	}
	assert.Equal(t, int32(0), store.queries.Load())
}

func TestEngine_FindsWrittenItem(t *testing.T) {
	repo, engine := setup(t)
	ctx := context.Background()

	b := book("The Zephyrine Atlas", "maps", time.Now())
	require.NoError(t, repo.Write(ctx, b))

	hits, err := engine.Search(ctx, "zephyrine", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, simplecms.EntityTypeBook, hits[0].Type)
	assert.Equal(t, b.ID, hits[0].Item.ItemID())
	assert.Equal(t, "/books#book-"+b.ID.String(), hits[0].Link)
	assert.Greater(t, hits[0].Score, 0.0)

	b.Title = "The Boreal Atlas"
	require.NoError(t, repo.Write(ctx, b))

	hits, err = engine.Search(ctx, "zephyrine", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = engine.Search(ctx, "boreal", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestEngine_TitleOutranksBody(t *testing.T) {
	repo, engine := setup(t)
	ctx := context.Background()
	now := time.Now()

	bodyOnly := article("Weekly notes", "astronomy astronomy astronomy astronomy astronomy", now)
	titled := book("Astronomy", "an introduction", now.Add(-time.Hour))
	require.NoError(t, repo.Write(ctx, bodyOnly))
	require.NoError(t, repo.Write(ctx, titled))

	hits, err := engine.Search(ctx, "astronomy", 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, titled.ID, hits[0].Item.ItemID())
	assert.Equal(t, bodyOnly.ID, hits[1].Item.ItemID())
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestEngine_TieBreaks(t *testing.T) {
	repo, engine := setup(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	older := book("Nile", "", now.Add(-time.Hour))
	newerBook := book("Nile", "", now)
	newerArticle := article("Nile", "", now)
	for _, item := range []simplecms.ContentItem{older, newerArticle, newerBook} {
		require.NoError(t, repo.Write(ctx, item))
	}

	hits, err := engine.Search(ctx, "nile", 0)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, hits[0].Score, hits[2].Score)
	assert.Equal(t, newerBook.ID, hits[0].Item.ItemID(), "same score and time: book before article")
	assert.Equal(t, newerArticle.ID, hits[1].Item.ItemID())
	assert.Equal(t, older.ID, hits[2].Item.ItemID(), "older item last")
}

func TestEngine_DeterministicOrdering(t *testing.T) {
	repo, engine := setup(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 20; i++ {
		require.NoError(t, repo.Write(ctx, book("Harbor", "", now)))
		require.NoError(t, repo.Write(ctx, article("Harbor", "", now)))
	}

	first, err := engine.Search(ctx, "harbor", 0)
	require.NoError(t, err)
	require.Len(t, first, 40)
	for i := 0; i < 10; i++ {
		again, err := engine.Search(ctx, "harbor", 0)
		require.NoError(t, err)
		require.Len(t, again, len(first))
		for j := range first {
			assert.Equal(t, first[j].Item.ItemID(), again[j].Item.ItemID())
		}
	}

	limited, err := engine.Search(ctx, "harbor", 5)
	require.NoError(t, err)
	require.Len(t, limited, 5)
	for j := range limited {
		assert.Equal(t, first[j].Item.ItemID(), limited[j].Item.ItemID())
	}
}

func TestEngine_MalformedQuery(t *testing.T) {
	repo, engine := setup(t)
	ctx := context.Background()
	require.NoError(t, repo.Write(ctx, book("Desert roses", "", time.Now())))

	hits, err := engine.Search(ctx, `"desert roses`, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = engine.Search(ctx, `"unknown words`, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestEngine_Operators(t *testing.T) {
	repo, engine := setup(t)
	ctx := context.Background()
	now := time.Now()
	roses := book("Desert roses", "", now)
	tulips := book("Desert tulips", "", now)
	require.NoError(t, repo.Write(ctx, roses))
	require.NoError(t, repo.Write(ctx, tulips))

	hits, err := engine.Search(ctx, "desert -tulips", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, roses.ID, hits[0].Item.ItemID())

	hits, err = engine.Search(ctx, "roses or tulips", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = engine.Search(ctx, `"roses desert"`, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestEngine_StoreErrorPropagates(t *testing.T) {
	repo, _ := setup(t)
	store := &countingStore{ContentStore: repo, err: simplecms.ErrStoreUnavailable}
	engine := search.NewEngine(store, search.NewAnalyzer("english"))

	_, err := engine.Search(context.Background(), "anything", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, simplecms.ErrStoreUnavailable))
}
