package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/repo/sqlite"
	"github.com/tendant/simple-cms/pkg/simplecms/search"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func book(title, description string, age time.Duration) *simplecms.Book {
	created := base.Add(-age)
	return &simplecms.Book{
		ID: uuid.New(), Title: title, Language: "en", Category: "general",
		Download: simplecms.NewMediaRef("#"), Description: description,
		CreatedAt: created, UpdatedAt: created,
	}
}

func TestSQLiteStore_ContentOperations(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	b := book("Desert Flora", "Cacti and succulents", 0)
	b.Cover = simplecms.NewMediaRef("uploads/books/flora.png")
	require.NoError(t, store.Write(ctx, b))

	t.Run("Read", func(t *testing.T) {
		item, err := store.Read(ctx, simplecms.EntityTypeBook, b.ID)
		require.NoError(t, err)
		got := item.(*simplecms.Book)
		assert.Equal(t, b.ID, got.ID)
		assert.Equal(t, "Desert Flora", got.Title)
		assert.Equal(t, "uploads/books/flora.png", got.Cover.StorageString())
		assert.True(t, b.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("Read_NotFound", func(t *testing.T) {
		_, err := store.Read(ctx, simplecms.EntityTypeArticle, b.ID)
		assert.ErrorIs(t, err, simplecms.ErrContentNotFound)
	})

	t.Run("List newest first", func(t *testing.T) {
		older := book("Older", "", time.Hour)
		require.NoError(t, store.Write(ctx, older))
		items, err := store.List(ctx, simplecms.EntityTypeBook)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, b.ID, items[0].ItemID())
		assert.Equal(t, older.ID, items[1].ItemID())
	})

	t.Run("Delete", func(t *testing.T) {
		gone := book("Ephemeral", "", 0)
		require.NoError(t, store.Write(ctx, gone))
		require.NoError(t, store.Delete(ctx, simplecms.EntityTypeBook, gone.ID))
		assert.ErrorIs(t, store.Delete(ctx, simplecms.EntityTypeBook, gone.ID), simplecms.ErrContentNotFound)

		matches, err := store.QueryByVector(ctx, parse("ephemeral"), simplecms.EntityTypeBook, 0)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}

var analyzer = search.NewAnalyzer("english")

func parse(q string) simplecms.Query {
	return search.ParseQuery(analyzer, q)
}

func TestSQLiteStore_QueryByVector(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	inTitle := book("Gardening at home", "", time.Hour)
	inBody := book("Weekend projects", "A little gardening and more", 0)
	other := book("Cooking", "Bread and gardens of herbs", 2*time.Hour)
	article := &simplecms.Article{
		ID: uuid.New(), Title: "Garden diary", Summary: "notes", Content: "<p>Basil and thyme</p>",
		Category: simplecms.DefaultArticleCategory, CreatedAt: base, UpdatedAt: base,
	}
	for _, item := range []simplecms.ContentItem{inTitle, inBody, other, article} {
		require.NoError(t, store.Write(ctx, item))
	}

	t.Run("title outranks body", func(t *testing.T) {
		matches, err := store.QueryByVector(ctx, parse("gardening"), simplecms.EntityTypeBook, 0)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(matches), 2)
		assert.Equal(t, inTitle.ID, matches[0].Item.ItemID())
		assert.Greater(t, matches[0].Score, matches[1].Score)
	})

	t.Run("stemming", func(t *testing.T) {
		matches, err := store.QueryByVector(ctx, parse("gardens"), simplecms.EntityTypeBook, 0)
		require.NoError(t, err)
		assert.Len(t, matches, 3)
	})

	t.Run("type filter", func(t *testing.T) {
		matches, err := store.QueryByVector(ctx, parse("basil"), simplecms.EntityTypeBook, 0)
		require.NoError(t, err)
		assert.Empty(t, matches)

		matches, err = store.QueryByVector(ctx, parse("basil"), simplecms.EntityTypeArticle, 0)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, article.ID, matches[0].Item.ItemID())
	})

	t.Run("negation", func(t *testing.T) {
		matches, err := store.QueryByVector(ctx, parse("garden -bread"), simplecms.EntityTypeBook, 0)
		require.NoError(t, err)
		for _, m := range matches {
			assert.NotEqual(t, other.ID, m.Item.ItemID())
		}
		assert.Len(t, matches, 2)
	})

	t.Run("or", func(t *testing.T) {
		matches, err := store.QueryByVector(ctx, parse("cooking OR weekend"), simplecms.EntityTypeBook, 0)
		require.NoError(t, err)
		assert.Len(t, matches, 2)
	})

	t.Run("phrase", func(t *testing.T) {
		matches, err := store.QueryByVector(ctx, parse(`"weekend projects"`), simplecms.EntityTypeBook, 0)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, inBody.ID, matches[0].Item.ItemID())

		matches, err = store.QueryByVector(ctx, parse(`"projects weekend"`), simplecms.EntityTypeBook, 0)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("limit", func(t *testing.T) {
		matches, err := store.QueryByVector(ctx, parse("garden"), simplecms.EntityTypeBook, 1)
		require.NoError(t, err)
		assert.Len(t, matches, 1)
	})

	t.Run("fts syntax in input is inert", func(t *testing.T) {
		matches, err := store.QueryByVector(ctx, parse(`garden* NEAR( "bread`), simplecms.EntityTypeBook, 0)
		require.NoError(t, err)
		assert.NotNil(t, matches)
	})

	t.Run("update reindexes", func(t *testing.T) {
		inBody.Description = "Woodwork only"
		require.NoError(t, store.Write(ctx, inBody))
		matches, err := store.QueryByVector(ctx, parse("gardening"), simplecms.EntityTypeBook, 0)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		for _, m := range matches {
			assert.NotEqual(t, inBody.ID, m.Item.ItemID())
		}
	})

	t.Run("reindex all", func(t *testing.T) {
		n, err := store.ReindexAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		matches, err := store.QueryByVector(ctx, parse("thyme"), simplecms.EntityTypeArticle, 0)
		require.NoError(t, err)
		assert.Len(t, matches, 1)
	})
}

func TestMatchExpression(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"garden", `"garden"`},
		{"garden tools", `"garden" AND "tools"`},
		{"garden OR yard -weeds", `("garden" OR "yard") NOT "weeds"`},
		{`"home garden"`, `"home garden"`},
		{"the", ""},
		{"-weeds", ""},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, sqlite.MatchExpression(parse(tt.query)))
		})
	}
}

func TestSQLiteStore_Engine(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	b := book("Astronomy", "Stars", 0)
	a := &simplecms.Article{ID: uuid.New(), Title: "Astronomy night", Summary: "", Content: "", Category: "x", CreatedAt: base, UpdatedAt: base}
	require.NoError(t, store.Write(ctx, b))
	require.NoError(t, store.Write(ctx, a))

	engine := search.NewEngine(store, analyzer)
	hits, err := engine.Search(ctx, "astronomy", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	types := []simplecms.EntityType{hits[0].Type, hits[1].Type}
	assert.ElementsMatch(t, []simplecms.EntityType{simplecms.EntityTypeBook, simplecms.EntityTypeArticle}, types)
}

func TestSQLiteStore_GalleryAndContact(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	img := &simplecms.GalleryImage{ID: uuid.New(), URL: simplecms.NewMediaRef("img/gallery/a.jpg"), Caption: "A", CreatedAt: base, UpdatedAt: base}
	require.NoError(t, store.CreateGalleryImage(ctx, img))

	img.Caption = "B"
	require.NoError(t, store.UpdateGalleryImage(ctx, img))
	got, err := store.GetGalleryImage(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", got.Caption)
	assert.Equal(t, "img/gallery/a.jpg", got.URL.StorageString())

	images, err := store.ListGalleryImages(ctx)
	require.NoError(t, err)
	assert.Len(t, images, 1)

	require.NoError(t, store.DeleteGalleryImage(ctx, img.ID))
	_, err = store.GetGalleryImage(ctx, img.ID)
	assert.ErrorIs(t, err, simplecms.ErrGalleryImageNotFound)

	msg := &simplecms.ContactMessage{ID: uuid.New(), Name: "Ana", Email: "ana@example.com", Message: "hello", CreatedAt: base}
	require.NoError(t, store.CreateContactMessage(ctx, msg))
	gotMsg, err := store.GetContactMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", gotMsg.Message)

	msgs, err := store.ListContactMessages(ctx)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	require.NoError(t, store.DeleteContactMessage(ctx, msg.ID))
	assert.ErrorIs(t, store.DeleteContactMessage(ctx, msg.ID), simplecms.ErrContactMessageNotFound)
}
