package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/metrics"
	"github.com/tendant/simple-cms/pkg/simplecms/search"
)

//go:embed schema.sql
var Schema string

// FallbackConfig is the text search configuration used when the configured
// one rejects the input.
const FallbackConfig = "simple"

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// DB is a DBTX that can open transactions
type DB interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository implements the content, gallery and contact stores using
// PostgreSQL full-text search
type Repository struct {
	db      DB
	config  string
	metrics *metrics.Metrics
}

// Option configures a Repository
type Option func(*Repository)

// WithTextSearchConfig sets the Postgres text search configuration
// (e.g. "english", "arabic", "simple").
func WithTextSearchConfig(config string) Option {
	return func(r *Repository) {
		if config != "" {
			r.config = config
		}
	}
}

// WithMetrics records indexing degradations on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Repository) {
		r.metrics = m
	}
}

// New creates a new PostgreSQL repository
func New(db DB, opts ...Option) *Repository {
	r := &Repository{db: db, config: "english"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool, opts ...Option) *Repository {
	return New(pool, opts...)
}

// Migrate applies the schema
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return r.handlePostgresError("migrate", err)
	}
	return nil
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate entry")
		case "23502": // not_null_violation
			return fmt.Errorf("%w: required field %s is missing", simplecms.ErrValidation, pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", simplecms.ErrStoreUnavailable, operation, err)
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// isTextSearchError reports whether err was raised by to_tsvector rejecting
// its input or configuration.
func isTextSearchError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "22021", // character_not_in_repertoire
		"22P05", // untranslatable_character
		"54000", // program_limit_exceeded: string too long for tsvector
		"42704": // undefined_object: unknown text search configuration
		return true
	}
	return false
}

// Content operations

// Write upserts the item and its search vector in one statement inside a
// transaction. If the configured text search configuration rejects the
// text, the statement is retried with the simple configuration.
func (r *Repository) Write(ctx context.Context, item simplecms.ContentItem) error {
	if !item.ItemType().IsValid() {
		return simplecms.ErrInvalidEntityType
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return r.handlePostgresError("begin write", err)
	}

	if _, err := tx.Exec(ctx, "SAVEPOINT reindex"); err != nil {
		_ = tx.Rollback(ctx)
		return r.handlePostgresError("write", err)
	}

	err = r.upsert(ctx, tx, item, r.config)
	if err != nil && isTextSearchError(err) {
		slog.Warn("search indexing degraded to simple configuration",
			"type", item.ItemType(), "id", item.ItemID(), "config", r.config, "error", err)
		r.metrics.IndexDegraded(string(item.ItemType()))
		if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT reindex"); rbErr != nil {
			_ = tx.Rollback(ctx)
			return r.handlePostgresError("write", rbErr)
		}
		err = r.upsert(ctx, tx, item, FallbackConfig)
	}
	if err != nil {
		_ = tx.Rollback(ctx)
		return r.handlePostgresError("write "+string(item.ItemType()), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return r.handlePostgresError("commit write", err)
	}
	return nil
}

func (r *Repository) upsert(ctx context.Context, tx DBTX, item simplecms.ContentItem, config string) error {
	switch v := item.(type) {
	case *simplecms.Book:
		vector, vectorArgs := vectorExpr(11, v.TextFields())
		query := `
			INSERT INTO books (
				id, title, language, category, cover, download,
				description, created_at, updated_at, search_vector
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, ` + vector + `)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title, language = EXCLUDED.language,
				category = EXCLUDED.category, cover = EXCLUDED.cover,
				download = EXCLUDED.download, description = EXCLUDED.description,
				updated_at = EXCLUDED.updated_at, search_vector = EXCLUDED.search_vector`
		args := []interface{}{
			v.ID, v.Title, v.Language, v.Category, v.Cover.StorageString(), v.Download.StorageString(),
			v.Description, v.CreatedAt, v.UpdatedAt, config,
		}
		_, err := tx.Exec(ctx, query, append(args, vectorArgs...)...)
		return err

	case *simplecms.Article:
		vector, vectorArgs := vectorExpr(10, v.TextFields())
		query := `
			INSERT INTO articles (
				id, title, summary, content, category, image,
				created_at, updated_at, search_vector
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, ` + vector + `)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title, summary = EXCLUDED.summary,
				content = EXCLUDED.content, category = EXCLUDED.category,
				image = EXCLUDED.image, updated_at = EXCLUDED.updated_at,
				search_vector = EXCLUDED.search_vector`
		args := []interface{}{
			v.ID, v.Title, v.Summary, v.Content, v.Category, v.Image.StorageString(),
			v.CreatedAt, v.UpdatedAt, config,
		}
		_, err := tx.Exec(ctx, query, append(args, vectorArgs...)...)
		return err

	default:
		return simplecms.ErrInvalidEntityType
	}
}

// vectorExpr builds setweight(to_tsvector(cfg, $n), 'W') || ... over fields.
// The configuration is parameter first-1; field texts follow from first.
func vectorExpr(first int, fields []simplecms.WeightedField) (string, []interface{}) {
	cfg := fmt.Sprintf("$%d::regconfig", first-1)
	parts := make([]string, len(fields))
	args := make([]interface{}, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("setweight(to_tsvector(%s, $%d), '%s')", cfg, first+i, f.Weight.Label())
		args[i] = search.PlainText(f.Text)
	}
	return strings.Join(parts, " || "), args
}

const (
	bookColumns    = `id, title, language, category, cover, download, description, created_at, updated_at`
	articleColumns = `id, title, summary, content, category, image, created_at, updated_at`
)

func tableOf(t simplecms.EntityType) (table, columns string, err error) {
	switch t {
	case simplecms.EntityTypeBook:
		return "books", bookColumns, nil
	case simplecms.EntityTypeArticle:
		return "articles", articleColumns, nil
	default:
		return "", "", simplecms.ErrInvalidEntityType
	}
}

// scanItem scans the columns of t followed by extra destinations.
func scanItem(row pgx.Row, t simplecms.EntityType, extra ...interface{}) (simplecms.ContentItem, error) {
	switch t {
	case simplecms.EntityTypeBook:
		var b simplecms.Book
		var cover, download string
		dest := []interface{}{&b.ID, &b.Title, &b.Language, &b.Category, &cover, &download,
			&b.Description, &b.CreatedAt, &b.UpdatedAt}
		if err := row.Scan(append(dest, extra...)...); err != nil {
			return nil, err
		}
		b.Cover = simplecms.NewMediaRef(cover)
		b.Download = simplecms.NewMediaRef(download)
		return &b, nil
	default:
		var a simplecms.Article
		var image string
		dest := []interface{}{&a.ID, &a.Title, &a.Summary, &a.Content, &a.Category, &image,
			&a.CreatedAt, &a.UpdatedAt}
		if err := row.Scan(append(dest, extra...)...); err != nil {
			return nil, err
		}
		a.Image = simplecms.NewMediaRef(image)
		return &a, nil
	}
}

func (r *Repository) Read(ctx context.Context, entityType simplecms.EntityType, id uuid.UUID) (simplecms.ContentItem, error) {
	table, columns, err := tableOf(entityType)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + columns + ` FROM ` + table + ` WHERE id = $1`
	item, err := scanItem(r.db.QueryRow(ctx, query, id), entityType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplecms.ErrContentNotFound
		}
		return nil, r.handlePostgresError("read "+string(entityType), err)
	}
	return item, nil
}

func (r *Repository) Delete(ctx context.Context, entityType simplecms.EntityType, id uuid.UUID) error {
	table, _, err := tableOf(entityType)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete "+string(entityType), err)
	}
	if tag.RowsAffected() == 0 {
		return simplecms.ErrContentNotFound
	}
	return nil
}

func (r *Repository) List(ctx context.Context, entityType simplecms.EntityType) ([]simplecms.ContentItem, error) {
	table, columns, err := tableOf(entityType)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + columns + ` FROM ` + table + ` ORDER BY created_at DESC, id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, r.handlePostgresError("list "+string(entityType), err)
	}
	defer rows.Close()

	items := []simplecms.ContentItem{}
	for rows.Next() {
		item, err := scanItem(rows, entityType)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list "+string(entityType), err)
	}
	return items, nil
}

// QueryByVector matches against the stored tsvector with
// websearch_to_tsquery, or plainto_tsquery for literal queries, and ranks
// with ts_rank.
func (r *Repository) QueryByVector(ctx context.Context, query simplecms.Query, entityType simplecms.EntityType, limit int) ([]simplecms.Match, error) {
	table, columns, err := tableOf(entityType)
	if err != nil {
		return nil, err
	}
	if query.IsEmpty() {
		return []simplecms.Match{}, nil
	}

	parser, text := "websearch_to_tsquery", query.Raw
	if query.Literal {
		parser, text = "plainto_tsquery", query.LiteralText()
	}
	var max interface{}
	if limit > 0 {
		max = limit
	}

	sql := `
		SELECT ` + columns + `, ts_rank(search_vector, q) AS score
		FROM ` + table + `, ` + parser + `($1::regconfig, $2) q
		WHERE search_vector @@ q
		ORDER BY score DESC, created_at DESC, id
		LIMIT $3`
	rows, err := r.db.Query(ctx, sql, r.config, text, max)
	if err != nil {
		return nil, r.handlePostgresError("search "+string(entityType), err)
	}
	defer rows.Close()

	matches := []simplecms.Match{}
	for rows.Next() {
		var score float32
		item, err := scanItem(rows, entityType, &score)
		if err != nil {
			return nil, err
		}
		matches = append(matches, simplecms.Match{Item: item, Score: float64(score)})
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("search "+string(entityType), err)
	}
	return matches, nil
}

// ReindexAll rewrites every item through Write so vectors are rebuilt with
// the current configuration and markup stripping.
func (r *Repository) ReindexAll(ctx context.Context) (int, error) {
	count := 0
	for _, t := range simplecms.SearchableTypes {
		items, err := r.List(ctx, t)
		if err != nil {
			return count, err
		}
		for _, item := range items {
			if err := r.Write(ctx, item); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

// Gallery operations

func (r *Repository) CreateGalleryImage(ctx context.Context, image *simplecms.GalleryImage) error {
	query := `
		INSERT INTO gallery_images (id, url, caption, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Exec(ctx, query,
		image.ID, image.URL.StorageString(), image.Caption, image.CreatedAt, image.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create gallery image", err)
	}
	return nil
}

func (r *Repository) GetGalleryImage(ctx context.Context, id uuid.UUID) (*simplecms.GalleryImage, error) {
	query := `SELECT id, url, caption, created_at, updated_at FROM gallery_images WHERE id = $1`
	image, err := scanGalleryImage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplecms.ErrGalleryImageNotFound
		}
		return nil, r.handlePostgresError("get gallery image", err)
	}
	return image, nil
}

func (r *Repository) UpdateGalleryImage(ctx context.Context, image *simplecms.GalleryImage) error {
	query := `UPDATE gallery_images SET url = $2, caption = $3, updated_at = $4 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, image.ID, image.URL.StorageString(), image.Caption, image.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("update gallery image", err)
	}
	if tag.RowsAffected() == 0 {
		return simplecms.ErrGalleryImageNotFound
	}
	return nil
}

func (r *Repository) DeleteGalleryImage(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM gallery_images WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete gallery image", err)
	}
	if tag.RowsAffected() == 0 {
		return simplecms.ErrGalleryImageNotFound
	}
	return nil
}

func (r *Repository) ListGalleryImages(ctx context.Context) ([]*simplecms.GalleryImage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, url, caption, created_at, updated_at
		FROM gallery_images ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, r.handlePostgresError("list gallery images", err)
	}
	defer rows.Close()

	images := []*simplecms.GalleryImage{}
	for rows.Next() {
		image, err := scanGalleryImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, image)
	}
	return images, rows.Err()
}

func scanGalleryImage(row pgx.Row) (*simplecms.GalleryImage, error) {
	var image simplecms.GalleryImage
	var url string
	if err := row.Scan(&image.ID, &url, &image.Caption, &image.CreatedAt, &image.UpdatedAt); err != nil {
		return nil, err
	}
	image.URL = simplecms.NewMediaRef(url)
	return &image, nil
}

// Contact operations

func (r *Repository) CreateContactMessage(ctx context.Context, msg *simplecms.ContactMessage) error {
	query := `
		INSERT INTO contact_messages (id, name, email, message, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Exec(ctx, query, msg.ID, msg.Name, msg.Email, msg.Message, msg.CreatedAt)
	if err != nil {
		return r.handlePostgresError("create contact message", err)
	}
	return nil
}

func (r *Repository) GetContactMessage(ctx context.Context, id uuid.UUID) (*simplecms.ContactMessage, error) {
	var msg simplecms.ContactMessage
	err := r.db.QueryRow(ctx,
		`SELECT id, name, email, message, created_at FROM contact_messages WHERE id = $1`, id).
		Scan(&msg.ID, &msg.Name, &msg.Email, &msg.Message, &msg.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplecms.ErrContactMessageNotFound
		}
		return nil, r.handlePostgresError("get contact message", err)
	}
	return &msg, nil
}

func (r *Repository) DeleteContactMessage(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM contact_messages WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete contact message", err)
	}
	if tag.RowsAffected() == 0 {
		return simplecms.ErrContactMessageNotFound
	}
	return nil
}

func (r *Repository) ListContactMessages(ctx context.Context) ([]*simplecms.ContactMessage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, email, message, created_at
		FROM contact_messages ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, r.handlePostgresError("list contact messages", err)
	}
	defer rows.Close()

	msgs := []*simplecms.ContactMessage{}
	for rows.Next() {
		var msg simplecms.ContactMessage
		if err := rows.Scan(&msg.ID, &msg.Name, &msg.Email, &msg.Message, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}

var (
	_ simplecms.ContentStore = (*Repository)(nil)
	_ simplecms.GalleryStore = (*Repository)(nil)
	_ simplecms.ContactStore = (*Repository)(nil)
	_ simplecms.Reindexer    = (*Repository)(nil)
)
