package simplecms

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntityType tags a searchable content item.
type EntityType string

const (
	EntityTypeBook    EntityType = "book"
	EntityTypeArticle EntityType = "article"
)

// SearchableTypes lists the indexed entity types in their fixed tie-break
// priority: when two hits have the same score and creation time, the type
// listed first wins.
var SearchableTypes = []EntityType{EntityTypeBook, EntityTypeArticle}

// Priority returns the tie-break rank of the type (lower sorts first).
// Unknown types sort after every known type.
func (t EntityType) Priority() int {
	for i, st := range SearchableTypes {
		if st == t {
			return i
		}
	}
	return len(SearchableTypes)
}

// IsValid reports whether t is a searchable entity type.
func (t EntityType) IsValid() bool {
	return t.Priority() < len(SearchableTypes)
}

// MediaCategory selects the asset directories a media reference is resolved against.
type MediaCategory string

const (
	MediaCategoryBooks    MediaCategory = "books"
	MediaCategoryArticles MediaCategory = "articles"
	MediaCategoryGallery  MediaCategory = "gallery"
)

// DefaultArticleCategory is assigned to articles created without a category.
const DefaultArticleCategory = "عام"

// Weight is a field weight class, A being the strongest.
type Weight int

const (
	WeightD Weight = iota
	WeightC
	WeightB
	WeightA
)

// Label returns the single-letter weight label used by Postgres setweight.
func (w Weight) Label() string {
	switch w {
	case WeightA:
		return "A"
	case WeightB:
		return "B"
	case WeightC:
		return "C"
	default:
		return "D"
	}
}

// WeightedField is one text field of a content item with its weight class.
type WeightedField struct {
	Name   string
	Text   string
	Weight Weight
}

// MediaRef holds a media attribute exactly as it was stored. The wrapped
// value is shape-unconstrained: a path string, a JSON-encoded string, a list,
// a map with path-like keys, or raw bytes.
type MediaRef struct {
	Raw any
}

// NewMediaRef wraps v as a stored media reference.
func NewMediaRef(v any) MediaRef {
	return MediaRef{Raw: v}
}

// IsZero reports whether the reference carries no value at all.
func (m MediaRef) IsZero() bool {
	if m.Raw == nil {
		return true
	}
	if s, ok := m.Raw.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// Clone returns a copy whose container values (lists, maps, bytes) are not
// shared with m.
func (m MediaRef) Clone() MediaRef {
	return MediaRef{Raw: cloneRaw(m.Raw)}
}

func cloneRaw(v any) any {
	switch v := v.(type) {
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneRaw(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = cloneRaw(e)
		}
		return out
	case []string:
		return append([]string(nil), v...)
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, e := range v {
			out[k] = e
		}
		return out
	case []byte:
		return append([]byte(nil), v...)
	default:
		return v
	}
}

// StorageString encodes the reference for a text column. Strings are stored
// verbatim; any other shape is stored JSON-encoded.
func (m MediaRef) StorageString() string {
	switch v := m.Raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// MarshalJSON emits the raw value unchanged.
func (m MediaRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Raw)
}

// UnmarshalJSON keeps whatever shape the client sent.
func (m *MediaRef) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	m.Raw = v
	return nil
}

// MediaField is a media attribute of an entity together with the category and
// placeholder used to resolve it.
type MediaField struct {
	Name       string
	Ref        MediaRef
	Category   MediaCategory
	DefaultURL string
}

// ContentItem is a searchable entity owned by the ContentStore.
type ContentItem interface {
	ItemID() uuid.UUID
	ItemType() EntityType
	ItemTitle() string
	Created() time.Time
	// TextFields returns the weighted text fields the search vector is built from.
	TextFields() []WeightedField
	// MediaFields returns the stored media references of the item.
	MediaFields() []MediaField
	// Clone returns a copy sharing no mutable state with the original,
	// media references included.
	Clone() ContentItem
}

// Book is a book or publication.
type Book struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Language    string    `json:"language"`
	Category    string    `json:"category"`
	Cover       MediaRef  `json:"cover"`
	Download    MediaRef  `json:"download"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (b *Book) ItemID() uuid.UUID    { return b.ID }
func (b *Book) ItemType() EntityType { return EntityTypeBook }
func (b *Book) ItemTitle() string    { return b.Title }
func (b *Book) Created() time.Time   { return b.CreatedAt }

func (b *Book) TextFields() []WeightedField {
	return []WeightedField{
		{Name: "title", Text: b.Title, Weight: WeightA},
		{Name: "description", Text: b.Description, Weight: WeightB},
		{Name: "category", Text: b.Category, Weight: WeightC},
	}
}

func (b *Book) MediaFields() []MediaField {
	return []MediaField{
		{Name: "cover", Ref: b.Cover, Category: MediaCategoryBooks, DefaultURL: DefaultBookCoverURL},
		{Name: "download", Ref: b.Download, Category: MediaCategoryBooks, DefaultURL: DefaultDownloadURL},
	}
}

func (b *Book) Clone() ContentItem {
	c := *b
	c.Cover = b.Cover.Clone()
	c.Download = b.Download.Clone()
	return &c
}

// Article is a published article.
type Article struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Image     MediaRef  `json:"image"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Article) ItemID() uuid.UUID    { return a.ID }
func (a *Article) ItemType() EntityType { return EntityTypeArticle }
func (a *Article) ItemTitle() string    { return a.Title }
func (a *Article) Created() time.Time   { return a.CreatedAt }

func (a *Article) TextFields() []WeightedField {
	return []WeightedField{
		{Name: "title", Text: a.Title, Weight: WeightA},
		{Name: "summary", Text: a.Summary, Weight: WeightB},
		{Name: "content", Text: a.Content, Weight: WeightC},
		{Name: "category", Text: a.Category, Weight: WeightD},
	}
}

func (a *Article) MediaFields() []MediaField {
	return []MediaField{
		{Name: "image", Ref: a.Image, Category: MediaCategoryArticles, DefaultURL: DefaultArticleImageURL},
	}
}

func (a *Article) Clone() ContentItem {
	c := *a
	c.Image = a.Image.Clone()
	return &c
}

// GalleryImage is a captioned gallery picture.
type GalleryImage struct {
	ID        uuid.UUID `json:"id"`
	URL       MediaRef  `json:"url"`
	Caption   string    `json:"caption"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContactMessage is a message submitted through the contact form.
type ContactMessage struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Placeholder URLs returned when a media reference cannot be resolved.
const (
	DefaultBookCoverURL    = "/static/img/books/default-cover.jpg"
	DefaultArticleImageURL = "/static/img/articles/default-article.jpg"
	DefaultGalleryImageURL = "/static/img/gallery/default.jpg"
	DefaultDownloadURL     = "#"
)

// QueryTerm is one query element. A term with several tokens is a phrase.
type QueryTerm struct {
	// Raw holds the lowercased tokens as typed, for engines that analyze
	// on their own (Postgres, FTS5).
	Raw []string
	// Tokens holds the analyzed tokens, aligned with Raw after stop-word removal.
	Tokens  []string
	Negated bool
}

// IsPhrase reports whether the term must match consecutive tokens.
func (t QueryTerm) IsPhrase() bool {
	return len(t.Tokens) > 1
}

// Query is a parsed free-text query: an AND of clauses, each clause an OR of
// alternatives.
type Query struct {
	Raw     string
	Clauses [][]QueryTerm
	// Literal is set when the input was malformed and quoting/operators were
	// ignored.
	Literal bool
}

// IsEmpty reports whether the query has no positive term to match.
func (q Query) IsEmpty() bool {
	for _, clause := range q.Clauses {
		for _, term := range clause {
			if !term.Negated && len(term.Tokens) > 0 {
				return false
			}
		}
	}
	return true
}

// LiteralText returns the query as plain space separated tokens.
func (q Query) LiteralText() string {
	var parts []string
	for _, clause := range q.Clauses {
		for _, term := range clause {
			if term.Negated {
				continue
			}
			parts = append(parts, term.Raw...)
		}
	}
	return strings.Join(parts, " ")
}

// Match is one ranked store match for a single entity type.
type Match struct {
	Item  ContentItem
	Score float64
}

// SearchHit is one entry of a merged cross-type search result.
type SearchHit struct {
	Type  EntityType  `json:"type"`
	Item  ContentItem `json:"item"`
	Score float64     `json:"score"`
	Link  string      `json:"link"`
}
