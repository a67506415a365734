package simplecms

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the main interface for the simple-cms library
type Service interface {
	// Book operations
	CreateBook(ctx context.Context, req CreateBookRequest) (*Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*Book, error)
	UpdateBook(ctx context.Context, req UpdateBookRequest) (*Book, error)
	DeleteBook(ctx context.Context, id uuid.UUID) error
	ListBooks(ctx context.Context) ([]*Book, error)

	// Article operations
	CreateArticle(ctx context.Context, req CreateArticleRequest) (*Article, error)
	GetArticle(ctx context.Context, id uuid.UUID) (*Article, error)
	UpdateArticle(ctx context.Context, req UpdateArticleRequest) (*Article, error)
	DeleteArticle(ctx context.Context, id uuid.UUID) error
	ListArticles(ctx context.Context) ([]*Article, error)

	// Gallery operations
	CreateGalleryImage(ctx context.Context, req CreateGalleryImageRequest) (*GalleryImage, error)
	GetGalleryImage(ctx context.Context, id uuid.UUID) (*GalleryImage, error)
	UpdateGalleryImage(ctx context.Context, req UpdateGalleryImageRequest) (*GalleryImage, error)
	DeleteGalleryImage(ctx context.Context, id uuid.UUID) error
	ListGalleryImages(ctx context.Context) ([]*GalleryImage, error)

	// Contact operations
	SubmitContactMessage(ctx context.Context, req SubmitContactMessageRequest) (*ContactMessage, error)
	GetContactMessage(ctx context.Context, id uuid.UUID) (*ContactMessage, error)
	DeleteContactMessage(ctx context.Context, id uuid.UUID) error
	ListContactMessages(ctx context.Context) ([]*ContactMessage, error)

	// Search runs a cross-type search. An empty query yields an empty result.
	Search(ctx context.Context, req SearchRequest) ([]SearchHit, error)

	// Reindex rebuilds every search vector from the stored fields and
	// returns the number of items indexed.
	Reindex(ctx context.Context) (int, error)

	// Serialization
	ResolveMedia(ctx context.Context, ref MediaRef, category MediaCategory, defaultURL string) string
	BookView(ctx context.Context, book *Book) BookView
	ArticleView(ctx context.Context, article *Article) ArticleView
	GalleryImageView(ctx context.Context, image *GalleryImage) GalleryImageView
	SearchHitViews(ctx context.Context, hits []SearchHit) []SearchHitView
}
