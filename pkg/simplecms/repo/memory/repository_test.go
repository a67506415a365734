package memory_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/repo/memory"
	"github.com/tendant/simple-cms/pkg/simplecms/search"
)

func newRepo() (*memory.Repository, *search.Analyzer) {
	analyzer := search.NewAnalyzer("english")
	return memory.New(search.NewIndexer(analyzer)), analyzer
}

func TestMemoryRepository_ContentOperations(t *testing.T) {
	repo, _ := newRepo()
	ctx := context.Background()

	t.Run("Write and Read", func(t *testing.T) {
		b := &simplecms.Book{ID: uuid.New(), Title: "Original", CreatedAt: time.Now()}
		require.NoError(t, repo.Write(ctx, b))

		b.Title = "Mutated after write"
		got, err := repo.Read(ctx, simplecms.EntityTypeBook, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "Original", got.ItemTitle())

		got.(*simplecms.Book).Title = "Mutated snapshot"
		again, err := repo.Read(ctx, simplecms.EntityTypeBook, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "Original", again.ItemTitle())
	})

	t.Run("Read_NotFound", func(t *testing.T) {
		item, err := repo.Read(ctx, simplecms.EntityTypeArticle, uuid.New())
		assert.Nil(t, item)
		assert.Equal(t, simplecms.ErrContentNotFound, err)
	})

	t.Run("Read_WrongType", func(t *testing.T) {
		b := &simplecms.Book{ID: uuid.New(), Title: "Typed"}
		require.NoError(t, repo.Write(ctx, b))
		_, err := repo.Read(ctx, simplecms.EntityTypeArticle, b.ID)
		assert.Equal(t, simplecms.ErrContentNotFound, err)
		_, err = repo.Read(ctx, "video", b.ID)
		assert.Equal(t, simplecms.ErrInvalidEntityType, err)
	})

	t.Run("Delete removes the vector", func(t *testing.T) {
		analyzer := search.NewAnalyzer("english")
		b := &simplecms.Book{ID: uuid.New(), Title: "Quixotic"}
		require.NoError(t, repo.Write(ctx, b))

		q := search.ParseQuery(analyzer, "quixotic")
		matches, err := repo.QueryByVector(ctx, q, simplecms.EntityTypeBook, 0)
		require.NoError(t, err)
		require.Len(t, matches, 1)

		require.NoError(t, repo.Delete(ctx, simplecms.EntityTypeBook, b.ID))
		matches, err = repo.QueryByVector(ctx, q, simplecms.EntityTypeBook, 0)
		require.NoError(t, err)
		assert.Empty(t, matches)

		assert.Equal(t, simplecms.ErrContentNotFound, repo.Delete(ctx, simplecms.EntityTypeBook, b.ID))
	})

	t.Run("List newest first", func(t *testing.T) {
		r, _ := newRepo()
		now := time.Now()
		old := &simplecms.Article{ID: uuid.New(), Title: "old", CreatedAt: now.Add(-time.Hour)}
		recent := &simplecms.Article{ID: uuid.New(), Title: "new", CreatedAt: now}
		require.NoError(t, r.Write(ctx, old))
		require.NoError(t, r.Write(ctx, recent))

		items, err := r.List(ctx, simplecms.EntityTypeArticle)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, recent.ID, items[0].ItemID())
		assert.Equal(t, old.ID, items[1].ItemID())
	})
}

func TestMemoryRepository_QueryByVectorLimit(t *testing.T) {
	repo, analyzer := newRepo()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Write(ctx, &simplecms.Article{ID: uuid.New(), Title: "Lantern", CreatedAt: time.Now()}))
	}
	matches, err := repo.QueryByVector(ctx, search.ParseQuery(analyzer, "lantern"), simplecms.EntityTypeArticle, 3)
	require.NoError(t, err)
	assert.Len(t, matches, 3)

	matches, err = repo.QueryByVector(ctx, search.ParseQuery(analyzer, "lantern"), simplecms.EntityTypeBook, 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

// A reader racing with writers must always see a title that matches the
// vector it was found through.
func TestMemoryRepository_WriteIsAtomicForReaders(t *testing.T) {
	repo, analyzer := newRepo()
	ctx := context.Background()
	id := uuid.New()
	titles := []string{"Amber", "Cobalt"}
	require.NoError(t, repo.Write(ctx, &simplecms.Book{ID: id, Title: titles[0]}))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			_ = repo.Write(ctx, &simplecms.Book{ID: id, Title: titles[i%2]})
		}
	}()

	for i := 0; i < 500; i++ {
		title := titles[i%2]
		matches, err := repo.QueryByVector(ctx, search.ParseQuery(analyzer, title), simplecms.EntityTypeBook, 0)
		require.NoError(t, err)
		for _, m := range matches {
			assert.Equal(t, title, m.Item.ItemTitle())
		}
	}
	close(stop)
	wg.Wait()
}

func TestMemoryRepository_ReindexAll(t *testing.T) {
	repo, _ := newRepo()
	ctx := context.Background()
	require.NoError(t, repo.Write(ctx, &simplecms.Book{ID: uuid.New(), Title: "One"}))
	require.NoError(t, repo.Write(ctx, &simplecms.Article{ID: uuid.New(), Title: "Two"}))

	n, err := repo.ReindexAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMemoryRepository_GalleryAndContact(t *testing.T) {
	repo, _ := newRepo()
	ctx := context.Background()

	img := &simplecms.GalleryImage{ID: uuid.New(), URL: simplecms.NewMediaRef("a.jpg"), Caption: "A", CreatedAt: time.Now()}
	require.NoError(t, repo.CreateGalleryImage(ctx, img))
	got, err := repo.GetGalleryImage(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Caption)

	got.Caption = "B"
	require.NoError(t, repo.UpdateGalleryImage(ctx, got))
	list, err := repo.ListGalleryImages(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "B", list[0].Caption)

	require.NoError(t, repo.DeleteGalleryImage(ctx, img.ID))
	_, err = repo.GetGalleryImage(ctx, img.ID)
	assert.Equal(t, simplecms.ErrGalleryImageNotFound, err)

	msg := &simplecms.ContactMessage{ID: uuid.New(), Name: "n", Email: "n@example.com", Message: "hi", CreatedAt: time.Now()}
	require.NoError(t, repo.CreateContactMessage(ctx, msg))
	msgs, err := repo.ListContactMessages(ctx)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	require.NoError(t, repo.DeleteContactMessage(ctx, msg.ID))
	_, err = repo.GetContactMessage(ctx, msg.ID)
	assert.Equal(t, simplecms.ErrContactMessageNotFound, err)
}

func TestMemoryRepository_ListTiesOrderedByID(t *testing.T) {
	repo, _ := newRepo()
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 8; i++ {
		img := &simplecms.GalleryImage{ID: uuid.New(), URL: simplecms.NewMediaRef("a.jpg"), Caption: "A", CreatedAt: at}
		require.NoError(t, repo.CreateGalleryImage(ctx, img))
		msg := &simplecms.ContactMessage{ID: img.ID, Name: "n", Email: "n@example.com", Message: "hi", CreatedAt: at}
		require.NoError(t, repo.CreateContactMessage(ctx, msg))
		ids = append(ids, img.ID.String())
	}
	sort.Strings(ids)

	for i := 0; i < 5; i++ {
		images, err := repo.ListGalleryImages(ctx)
		require.NoError(t, err)
		msgs, err := repo.ListContactMessages(ctx)
		require.NoError(t, err)
		for j := range ids {
			assert.Equal(t, ids[j], images[j].ID.String())
			assert.Equal(t, ids[j], msgs[j].ID.String())
		}
	}
}

func TestMemoryRepository_SnapshotsDoNotShareMediaRefs(t *testing.T) {
	repo, _ := newRepo()
	ctx := context.Background()

	book := &simplecms.Book{ID: uuid.New(), Title: "Maps", Cover: simplecms.NewMediaRef(map[string]any{"url": "maps.jpg"}), CreatedAt: time.Now()}
	require.NoError(t, repo.Write(ctx, book))
	book.Cover.Raw.(map[string]any)["url"] = "caller.jpg"

	item, err := repo.Read(ctx, simplecms.EntityTypeBook, book.ID)
	require.NoError(t, err)
	item.(*simplecms.Book).Cover.Raw.(map[string]any)["url"] = "reader.jpg"

	again, err := repo.Read(ctx, simplecms.EntityTypeBook, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "maps.jpg", again.(*simplecms.Book).Cover.Raw.(map[string]any)["url"])

	img := &simplecms.GalleryImage{ID: uuid.New(), URL: simplecms.NewMediaRef([]any{"g.jpg"}), Caption: "G", CreatedAt: time.Now()}
	require.NoError(t, repo.CreateGalleryImage(ctx, img))
	img.URL.Raw.([]any)[0] = "caller.jpg"
	got, err := repo.GetGalleryImage(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, "g.jpg", got.URL.Raw.([]any)[0])
}
