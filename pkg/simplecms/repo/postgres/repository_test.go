package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/metrics"
	"github.com/tendant/simple-cms/pkg/simplecms/search"
)

var bookRowColumns = []string{"id", "title", "language", "category", "cover", "download", "description", "created_at", "updated_at"}

func testBook() *simplecms.Book {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return &simplecms.Book{
		ID:          uuid.New(),
		Title:       "Home Gardening",
		Language:    "en",
		Category:    "garden",
		Cover:       simplecms.NewMediaRef("uploads/books/cover.jpg"),
		Download:    simplecms.NewMediaRef("#"),
		Description: "<p>Growing <b>tomatoes</b></p>",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts inside a transaction", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		book := testBook()
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("SAVEPOINT reindex")).WillReturnResult(pgxmock.NewResult("SAVEPOINT", 0))
		mock.ExpectExec("INSERT INTO books").
			WithArgs(book.ID, book.Title, book.Language, book.Category, "uploads/books/cover.jpg", "#",
				book.Description, book.CreatedAt, book.UpdatedAt, "english",
				"Home Gardening", "Growing tomatoes", "garden").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		repo := New(mock)
		require.NoError(t, repo.Write(ctx, book))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("falls back to simple configuration", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		m := metrics.NewMetrics(prometheus.NewRegistry())
		book := testBook()
		args := func(config string) []interface{} {
			return []interface{}{pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				config, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()}
		}

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("SAVEPOINT reindex")).WillReturnResult(pgxmock.NewResult("SAVEPOINT", 0))
		mock.ExpectExec("INSERT INTO books").WithArgs(args("arabic")...).
			WillReturnError(&pgconn.PgError{Code: "42704", Message: `text search configuration "arabic" does not exist`})
		mock.ExpectExec(regexp.QuoteMeta("ROLLBACK TO SAVEPOINT reindex")).WillReturnResult(pgxmock.NewResult("ROLLBACK", 0))
		mock.ExpectExec("INSERT INTO books").WithArgs(args(FallbackConfig)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		repo := New(mock, WithTextSearchConfig("arabic"), WithMetrics(m))
		require.NoError(t, repo.Write(ctx, book))
		require.NoError(t, mock.ExpectationsWereMet())
		assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexDegradationsTotal.WithLabelValues("book")))
	})

	t.Run("rolls back on other errors", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("SAVEPOINT reindex")).WillReturnResult(pgxmock.NewResult("SAVEPOINT", 0))
		mock.ExpectExec("INSERT INTO articles").
			WillReturnError(&pgconn.PgError{Code: "23502", ColumnName: "title"})
		mock.ExpectRollback()

		article := &simplecms.Article{ID: uuid.New(), Title: "x", CreatedAt: time.Now(), UpdatedAt: time.Now()}
		err = New(mock).Write(ctx, article)
		require.Error(t, err)
		assert.True(t, errors.Is(err, simplecms.ErrValidation))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestVectorExpr(t *testing.T) {
	expr, args := vectorExpr(11, []simplecms.WeightedField{
		{Name: "title", Text: "Title", Weight: simplecms.WeightA},
		{Name: "body", Text: "<i>Body</i> &amp; more", Weight: simplecms.WeightC},
	})
	assert.Equal(t, "setweight(to_tsvector($10::regconfig, $11), 'A') || setweight(to_tsvector($10::regconfig, $12), 'C')", expr)
	assert.Equal(t, []interface{}{"Title", search.PlainText("<i>Body</i> &amp; more")}, args)
}

func TestRead(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := New(mock)

	book := testBook()
	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT .* FROM books WHERE id = \\$1").
			WithArgs(book.ID).
			WillReturnRows(pgxmock.NewRows(bookRowColumns).AddRow(
				book.ID, book.Title, book.Language, book.Category, "uploads/books/cover.jpg", "#",
				book.Description, book.CreatedAt, book.UpdatedAt))

		item, err := repo.Read(ctx, simplecms.EntityTypeBook, book.ID)
		require.NoError(t, err)
		got := item.(*simplecms.Book)
		assert.Equal(t, book.Title, got.Title)
		assert.Equal(t, "uploads/books/cover.jpg", got.Cover.StorageString())
		assert.Equal(t, book.CreatedAt, got.CreatedAt)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT .* FROM articles WHERE id = \\$1").WillReturnError(pgx.ErrNoRows)

		_, err := repo.Read(ctx, simplecms.EntityTypeArticle, uuid.New())
		assert.ErrorIs(t, err, simplecms.ErrContentNotFound)
	})

	t.Run("invalid type", func(t *testing.T) {
		_, err := repo.Read(ctx, simplecms.EntityType("video"), uuid.New())
		assert.ErrorIs(t, err, simplecms.ErrInvalidEntityType)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := New(mock)

	id := uuid.New()
	mock.ExpectExec("DELETE FROM books WHERE id = \\$1").WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM books WHERE id = \\$1").WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, repo.Delete(ctx, simplecms.EntityTypeBook, id))
	assert.ErrorIs(t, repo.Delete(ctx, simplecms.EntityTypeBook, id), simplecms.ErrContentNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryByVector(t *testing.T) {
	ctx := context.Background()
	analyzer := search.NewAnalyzer("english")

	t.Run("ranked rows", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		book := testBook()
		mock.ExpectQuery(regexp.QuoteMeta("FROM books, websearch_to_tsquery($1::regconfig, $2) q")).
			WithArgs("english", "garden -weeds", 5).
			WillReturnRows(pgxmock.NewRows(append(bookRowColumns, "score")).AddRow(
				book.ID, book.Title, book.Language, book.Category, "", "#",
				book.Description, book.CreatedAt, book.UpdatedAt, float32(0.75)))

		matches, err := New(mock).QueryByVector(ctx, search.ParseQuery(analyzer, "garden -weeds"), simplecms.EntityTypeBook, 5)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, book.ID, matches[0].Item.ItemID())
		assert.InDelta(t, 0.75, matches[0].Score, 1e-6)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("literal query without limit", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(regexp.QuoteMeta("FROM articles, plainto_tsquery($1::regconfig, $2) q")).
			WithArgs("english", "garden tools", nil).
			WillReturnRows(pgxmock.NewRows([]string{"id", "title", "summary", "content", "category", "image", "created_at", "updated_at", "score"}))

		query := search.ParseQuery(analyzer, `"garden tools`)
		require.True(t, query.Literal)
		matches, err := New(mock).QueryByVector(ctx, query, simplecms.EntityTypeArticle, 0)
		require.NoError(t, err)
		assert.Empty(t, matches)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty query skips the database", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		matches, err := New(mock).QueryByVector(ctx, search.ParseQuery(analyzer, "the"), simplecms.EntityTypeBook, 5)
		require.NoError(t, err)
		assert.Empty(t, matches)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGalleryAndContact(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := New(mock)

	now := time.Now().UTC()
	image := &simplecms.GalleryImage{ID: uuid.New(), URL: simplecms.NewMediaRef("img/gallery/a.jpg"), Caption: "A", CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec("INSERT INTO gallery_images").
		WithArgs(image.ID, "img/gallery/a.jpg", "A", now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, repo.CreateGalleryImage(ctx, image))

	mock.ExpectQuery("FROM gallery_images WHERE id").WithArgs(image.ID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "url", "caption", "created_at", "updated_at"}).
			AddRow(image.ID, "img/gallery/a.jpg", "A", now, now))
	got, err := repo.GetGalleryImage(ctx, image.ID)
	require.NoError(t, err)
	assert.Equal(t, "img/gallery/a.jpg", got.URL.StorageString())

	mock.ExpectExec("UPDATE gallery_images").WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, repo.UpdateGalleryImage(ctx, image), simplecms.ErrGalleryImageNotFound)

	msg := &simplecms.ContactMessage{ID: uuid.New(), Name: "Sam", Email: "sam@example.com", Message: "hi", CreatedAt: now}
	mock.ExpectExec("INSERT INTO contact_messages").
		WithArgs(msg.ID, msg.Name, msg.Email, msg.Message, msg.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, repo.CreateContactMessage(ctx, msg))

	mock.ExpectQuery("FROM contact_messages WHERE id").WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetContactMessage(ctx, uuid.New())
	assert.ErrorIs(t, err, simplecms.ErrContactMessageNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlePostgresError(t *testing.T) {
	repo := New(nil)

	err := repo.handlePostgresError("write", &pgconn.PgError{Code: "23502", ColumnName: "title"})
	assert.ErrorIs(t, err, simplecms.ErrValidation)

	err = repo.handlePostgresError("read", context.DeadlineExceeded)
	assert.ErrorIs(t, err, simplecms.ErrStoreUnavailable)

	err = repo.handlePostgresError("read", &pgconn.PgError{Code: "42P01"})
	assert.Contains(t, err.Error(), "migration required")
}
