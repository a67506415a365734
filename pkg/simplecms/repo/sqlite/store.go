// Package sqlite is an embedded content store backed by modernc.org/sqlite
// with an FTS5 index ranked by bm25.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/search"
)

//go:embed schema.sql
var Schema string

// bm25 column weights: entity_type, entity_id, then fields A..D.
const rankExpr = `-bm25(content_fts, 0.0, 0.0, 10.0, 4.0, 2.0, 1.0)`

// Store implements the content, gallery and contact stores on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the database at path, applies pragmas and the schema.
// ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite serializes writers; one connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := New(db)
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already opened database. Call Migrate before use.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate applies the schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func storeErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", simplecms.ErrStoreUnavailable, op, err)
	}
	return fmt.Errorf("sqlite %s: %w", op, err)
}

func unixNano(t time.Time) int64 { return t.UnixNano() }

func fromUnixNano(n int64) time.Time { return time.Unix(0, n).UTC() }

// Write upserts the item row and replaces its FTS row in one transaction.
func (s *Store) Write(ctx context.Context, item simplecms.ContentItem) error {
	if !item.ItemType().IsValid() {
		return simplecms.ErrInvalidEntityType
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin write", err)
	}
	defer tx.Rollback()

	switch v := item.(type) {
	case *simplecms.Book:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO books (id, title, language, category, cover, download, description, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title, language = excluded.language,
				category = excluded.category, cover = excluded.cover,
				download = excluded.download, description = excluded.description,
				updated_at = excluded.updated_at`,
			v.ID.String(), v.Title, v.Language, v.Category, v.Cover.StorageString(), v.Download.StorageString(),
			v.Description, unixNano(v.CreatedAt), unixNano(v.UpdatedAt))
	case *simplecms.Article:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO articles (id, title, summary, content, category, image, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title, summary = excluded.summary,
				content = excluded.content, category = excluded.category,
				image = excluded.image, updated_at = excluded.updated_at`,
			v.ID.String(), v.Title, v.Summary, v.Content, v.Category, v.Image.StorageString(),
			unixNano(v.CreatedAt), unixNano(v.UpdatedAt))
	default:
		return simplecms.ErrInvalidEntityType
	}
	if err != nil {
		return storeErr("write "+string(item.ItemType()), err)
	}

	if err := deleteFTS(ctx, tx, item.ItemType(), item.ItemID()); err != nil {
		return err
	}

	var cols [4]string
	for _, f := range item.TextFields() {
		i := int(simplecms.WeightA - f.Weight)
		if i < 0 || i >= len(cols) {
			continue
		}
		if cols[i] != "" {
			cols[i] += " "
		}
		cols[i] += search.PlainText(f.Text)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO content_fts (entity_type, entity_id, f0, f1, f2, f3) VALUES (?, ?, ?, ?, ?, ?)`,
		string(item.ItemType()), item.ItemID().String(), cols[0], cols[1], cols[2], cols[3])
	if err != nil {
		return storeErr("index "+string(item.ItemType()), err)
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit write", err)
	}
	return nil
}

func deleteFTS(ctx context.Context, tx *sql.Tx, t simplecms.EntityType, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM content_fts WHERE entity_type = ? AND entity_id = ?`, string(t), id.String())
	if err != nil {
		return storeErr("unindex "+string(t), err)
	}
	return nil
}

const (
	bookColumns    = `b.id, b.title, b.language, b.category, b.cover, b.download, b.description, b.created_at, b.updated_at`
	articleColumns = `b.id, b.title, b.summary, b.content, b.category, b.image, b.created_at, b.updated_at`
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

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner, t simplecms.EntityType, extra ...any) (simplecms.ContentItem, error) {
	var created, updated int64
	if t == simplecms.EntityTypeBook {
		var b simplecms.Book
		var cover, download string
		dest := []any{&b.ID, &b.Title, &b.Language, &b.Category, &cover, &download, &b.Description, &created, &updated}
		if err := row.Scan(append(dest, extra...)...); err != nil {
			return nil, err
		}
		b.Cover = simplecms.NewMediaRef(cover)
		b.Download = simplecms.NewMediaRef(download)
		b.CreatedAt, b.UpdatedAt = fromUnixNano(created), fromUnixNano(updated)
		return &b, nil
	}
	var a simplecms.Article
	var image string
	dest := []any{&a.ID, &a.Title, &a.Summary, &a.Content, &a.Category, &image, &created, &updated}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	a.Image = simplecms.NewMediaRef(image)
	a.CreatedAt, a.UpdatedAt = fromUnixNano(created), fromUnixNano(updated)
	return &a, nil
}

func (s *Store) Read(ctx context.Context, entityType simplecms.EntityType, id uuid.UUID) (simplecms.ContentItem, error) {
	table, columns, err := tableOf(entityType)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM `+table+` b WHERE b.id = ?`, id.String())
	item, err := scanItem(row, entityType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, simplecms.ErrContentNotFound
	}
	if err != nil {
		return nil, storeErr("read "+string(entityType), err)
	}
	return item, nil
}

func (s *Store) Delete(ctx context.Context, entityType simplecms.EntityType, id uuid.UUID) error {
	table, _, err := tableOf(entityType)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin delete", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id.String())
	if err != nil {
		return storeErr("delete "+string(entityType), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return simplecms.ErrContentNotFound
	}
	if err := deleteFTS(ctx, tx, entityType, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit delete", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, entityType simplecms.EntityType) ([]simplecms.ContentItem, error) {
	table, columns, err := tableOf(entityType)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM `+table+` b ORDER BY b.created_at DESC, b.id`)
	if err != nil {
		return nil, storeErr("list "+string(entityType), err)
	}
	defer rows.Close()

	items := []simplecms.ContentItem{}
	for rows.Next() {
		item, err := scanItem(rows, entityType)
		if err != nil {
			return nil, storeErr("list "+string(entityType), err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// QueryByVector translates the parsed query into an FTS5 MATCH expression
// and ranks with bm25.
func (s *Store) QueryByVector(ctx context.Context, query simplecms.Query, entityType simplecms.EntityType, limit int) ([]simplecms.Match, error) {
	table, columns, err := tableOf(entityType)
	if err != nil {
		return nil, err
	}
	expr := MatchExpression(query)
	if expr == "" {
		return []simplecms.Match{}, nil
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+columns+`, `+rankExpr+` AS score
		FROM content_fts
		JOIN `+table+` b ON b.id = content_fts.entity_id
		WHERE content_fts MATCH ? AND content_fts.entity_type = ?
		ORDER BY score DESC, b.created_at DESC, b.id
		LIMIT ?`,
		expr, string(entityType), limit)
	if err != nil {
		return nil, storeErr("search "+string(entityType), err)
	}
	defer rows.Close()

	matches := []simplecms.Match{}
	for rows.Next() {
		var score float64
		item, err := scanItem(rows, entityType, &score)
		if err != nil {
			return nil, storeErr("search "+string(entityType), err)
		}
		matches = append(matches, simplecms.Match{Item: item, Score: score})
	}
	return matches, rows.Err()
}

// MatchExpression renders q as an FTS5 query: clauses are AND-ed,
// alternatives OR-ed, negated terms appended with NOT. Tokens are always
// quoted so user input cannot inject FTS5 syntax. An empty result means
// nothing can match.
func MatchExpression(q simplecms.Query) string {
	if q.IsEmpty() {
		return ""
	}
	var positive, negative []string
	for _, clause := range q.Clauses {
		var alts []string
		for _, term := range clause {
			if len(term.Raw) == 0 {
				continue
			}
			if term.Negated {
				negative = append(negative, ftsString(term.Raw))
				continue
			}
			alts = append(alts, ftsString(term.Raw))
		}
		switch len(alts) {
		case 0:
		case 1:
			positive = append(positive, alts[0])
		default:
			positive = append(positive, "("+strings.Join(alts, " OR ")+")")
		}
	}
	if len(positive) == 0 {
		return ""
	}
	expr := strings.Join(positive, " AND ")
	for _, n := range negative {
		expr += " NOT " + n
	}
	return expr
}

// ftsString quotes tokens as one FTS5 string, which matches them as a phrase.
func ftsString(tokens []string) string {
	return `"` + strings.ReplaceAll(strings.Join(tokens, " "), `"`, `""`) + `"`
}

// ReindexAll rebuilds every FTS row from the stored fields.
func (s *Store) ReindexAll(ctx context.Context) (int, error) {
	count := 0
	for _, t := range simplecms.SearchableTypes {
		items, err := s.List(ctx, t)
		if err != nil {
			return count, err
		}
		for _, item := range items {
			if err := s.Write(ctx, item); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

// Gallery operations

func (s *Store) CreateGalleryImage(ctx context.Context, image *simplecms.GalleryImage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO gallery_images (id, url, caption, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		image.ID.String(), image.URL.StorageString(), image.Caption, unixNano(image.CreatedAt), unixNano(image.UpdatedAt))
	if err != nil {
		return storeErr("create gallery image", err)
	}
	return nil
}

func scanGalleryImage(row scanner) (*simplecms.GalleryImage, error) {
	var image simplecms.GalleryImage
	var url string
	var created, updated int64
	if err := row.Scan(&image.ID, &url, &image.Caption, &created, &updated); err != nil {
		return nil, err
	}
	image.URL = simplecms.NewMediaRef(url)
	image.CreatedAt, image.UpdatedAt = fromUnixNano(created), fromUnixNano(updated)
	return &image, nil
}

func (s *Store) GetGalleryImage(ctx context.Context, id uuid.UUID) (*simplecms.GalleryImage, error) {
	image, err := scanGalleryImage(s.db.QueryRowContext(ctx,
		`SELECT id, url, caption, created_at, updated_at FROM gallery_images WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, simplecms.ErrGalleryImageNotFound
	}
	if err != nil {
		return nil, storeErr("get gallery image", err)
	}
	return image, nil
}

func (s *Store) UpdateGalleryImage(ctx context.Context, image *simplecms.GalleryImage) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE gallery_images SET url = ?, caption = ?, updated_at = ? WHERE id = ?`,
		image.URL.StorageString(), image.Caption, unixNano(image.UpdatedAt), image.ID.String())
	if err != nil {
		return storeErr("update gallery image", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return simplecms.ErrGalleryImageNotFound
	}
	return nil
}

func (s *Store) DeleteGalleryImage(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM gallery_images WHERE id = ?`, id.String())
	if err != nil {
		return storeErr("delete gallery image", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return simplecms.ErrGalleryImageNotFound
	}
	return nil
}

func (s *Store) ListGalleryImages(ctx context.Context) ([]*simplecms.GalleryImage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, caption, created_at, updated_at FROM gallery_images ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, storeErr("list gallery images", err)
	}
	defer rows.Close()

	images := []*simplecms.GalleryImage{}
	for rows.Next() {
		image, err := scanGalleryImage(rows)
		if err != nil {
			return nil, storeErr("list gallery images", err)
		}
		images = append(images, image)
	}
	return images, rows.Err()
}

// Contact operations

func (s *Store) CreateContactMessage(ctx context.Context, msg *simplecms.ContactMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contact_messages (id, name, email, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID.String(), msg.Name, msg.Email, msg.Message, unixNano(msg.CreatedAt))
	if err != nil {
		return storeErr("create contact message", err)
	}
	return nil
}

func scanContactMessage(row scanner) (*simplecms.ContactMessage, error) {
	var msg simplecms.ContactMessage
	var created int64
	if err := row.Scan(&msg.ID, &msg.Name, &msg.Email, &msg.Message, &created); err != nil {
		return nil, err
	}
	msg.CreatedAt = fromUnixNano(created)
	return &msg, nil
}

func (s *Store) GetContactMessage(ctx context.Context, id uuid.UUID) (*simplecms.ContactMessage, error) {
	msg, err := scanContactMessage(s.db.QueryRowContext(ctx,
		`SELECT id, name, email, message, created_at FROM contact_messages WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, simplecms.ErrContactMessageNotFound
	}
	if err != nil {
		return nil, storeErr("get contact message", err)
	}
	return msg, nil
}

func (s *Store) DeleteContactMessage(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contact_messages WHERE id = ?`, id.String())
	if err != nil {
		return storeErr("delete contact message", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return simplecms.ErrContactMessageNotFound
	}
	return nil
}

func (s *Store) ListContactMessages(ctx context.Context) ([]*simplecms.ContactMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, message, created_at FROM contact_messages ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, storeErr("list contact messages", err)
	}
	defer rows.Close()

	msgs := []*simplecms.ContactMessage{}
	for rows.Next() {
		msg, err := scanContactMessage(rows)
		if err != nil {
			return nil, storeErr("list contact messages", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

var (
	_ simplecms.ContentStore = (*Store)(nil)
	_ simplecms.GalleryStore = (*Store)(nil)
	_ simplecms.ContactStore = (*Store)(nil)
	_ simplecms.Reindexer    = (*Store)(nil)
)
