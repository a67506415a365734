package simplecms

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BookView is the response shape of a book. Media fields hold resolved URLs.
type BookView struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Language    string    `json:"language"`
	Category    string    `json:"category"`
	Cover       string    `json:"cover"`
	Download    string    `json:"download"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewBookView serializes a book, resolving its cover and download references.
func NewBookView(ctx context.Context, r MediaResolver, b *Book) BookView {
	return BookView{
		ID:          b.ID,
		Title:       b.Title,
		Language:    b.Language,
		Category:    b.Category,
		Cover:       r.Resolve(ctx, b.Cover, MediaCategoryBooks, DefaultBookCoverURL),
		Download:    r.Resolve(ctx, b.Download, MediaCategoryBooks, DefaultDownloadURL),
		Description: b.Description,
		CreatedAt:   b.CreatedAt,
	}
}

// ArticleView is the response shape of an article.
type ArticleView struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"created_at"`
}

// NewArticleView serializes an article, resolving its image reference.
func NewArticleView(ctx context.Context, r MediaResolver, a *Article) ArticleView {
	return ArticleView{
		ID:        a.ID,
		Title:     a.Title,
		Summary:   a.Summary,
		Content:   a.Content,
		Category:  a.Category,
		Image:     r.Resolve(ctx, a.Image, MediaCategoryArticles, DefaultArticleImageURL),
		CreatedAt: a.CreatedAt,
	}
}

// GalleryImageView is the response shape of a gallery image.
type GalleryImageView struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	Caption   string    `json:"caption"`
	CreatedAt time.Time `json:"created_at"`
}

func NewGalleryImageView(ctx context.Context, r MediaResolver, g *GalleryImage) GalleryImageView {
	return GalleryImageView{
		ID:        g.ID,
		URL:       r.Resolve(ctx, g.URL, MediaCategoryGallery, DefaultGalleryImageURL),
		Caption:   g.Caption,
		CreatedAt: g.CreatedAt,
	}
}

// SearchHitView is the response shape of a search hit. Item is a BookView or
// an ArticleView.
type SearchHitView struct {
	Type  EntityType `json:"type"`
	Item  any        `json:"item"`
	Score float64    `json:"score"`
	Link  string     `json:"link"`
}

// NewSearchHitViews serializes hits in order.
func NewSearchHitViews(ctx context.Context, r MediaResolver, hits []SearchHit) []SearchHitView {
	views := make([]SearchHitView, 0, len(hits))
	for _, h := range hits {
		v := SearchHitView{Type: h.Type, Score: h.Score, Link: h.Link}
		switch item := h.Item.(type) {
		case *Book:
			v.Item = NewBookView(ctx, r, item)
		case *Article:
			v.Item = NewArticleView(ctx, r, item)
		default:
			v.Item = item
		}
		views = append(views, v)
	}
	return views
}
