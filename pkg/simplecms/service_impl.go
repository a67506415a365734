package simplecms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// service implements the Service interface
type service struct {
	contentStore ContentStore
	galleryStore GalleryStore
	contactStore ContactStore
	engine       SearchEngine
	resolver     MediaResolver
	now          func() time.Time
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithContentStore sets the store for books and articles. If the store also
// implements GalleryStore or ContactStore it is used for those unless
// overridden.
func WithContentStore(store ContentStore) Option {
	return func(s *service) {
		s.contentStore = store
	}
}

// WithGalleryStore sets the gallery store
func WithGalleryStore(store GalleryStore) Option {
	return func(s *service) {
		s.galleryStore = store
	}
}

// WithContactStore sets the contact message store
func WithContactStore(store ContactStore) Option {
	return func(s *service) {
		s.contactStore = store
	}
}

// WithSearchEngine sets the search engine
func WithSearchEngine(engine SearchEngine) Option {
	return func(s *service) {
		s.engine = engine
	}
}

// WithResolver sets the media resolver used for serialization
func WithResolver(resolver MediaResolver) Option {
	return func(s *service) {
		s.resolver = resolver
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		now: func() time.Time { return time.Now().UTC() },
	}

	for _, option := range options {
		option(s)
	}

	if s.contentStore == nil {
		return nil, fmt.Errorf("content store is required")
	}
	if s.engine == nil {
		return nil, fmt.Errorf("search engine is required")
	}
	if s.resolver == nil {
		return nil, fmt.Errorf("media resolver is required")
	}
	if s.galleryStore == nil {
		if gs, ok := s.contentStore.(GalleryStore); ok {
			s.galleryStore = gs
		}
	}
	if s.contactStore == nil {
		if cs, ok := s.contentStore.(ContactStore); ok {
			s.contactStore = cs
		}
	}
	if s.galleryStore == nil {
		return nil, fmt.Errorf("gallery store is required")
	}
	if s.contactStore == nil {
		return nil, fmt.Errorf("contact store is required")
	}

	return s, nil
}

// Book operations

func (s *service) CreateBook(ctx context.Context, req CreateBookRequest) (*Book, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	download := req.Download
	if download.IsZero() {
		download = NewMediaRef(DefaultDownloadURL)
	}
	now := s.now()
	book := &Book{
		ID:          uuid.New(),
		Title:       req.Title,
		Language:    req.Language,
		Category:    req.Category,
		Cover:       req.Cover,
		Download:    download,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.contentStore.Write(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}
	return book, nil
}

func (s *service) GetBook(ctx context.Context, id uuid.UUID) (*Book, error) {
	item, err := s.contentStore.Read(ctx, EntityTypeBook, id)
	if err != nil {
		return nil, err
	}
	book, ok := item.(*Book)
	if !ok {
		return nil, &ContentError{Type: EntityTypeBook, ID: id, Op: "get", Err: ErrInvalidEntityType}
	}
	return book, nil
}

func (s *service) UpdateBook(ctx context.Context, req UpdateBookRequest) (*Book, error) {
	book, err := s.GetBook(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	applyString(&book.Title, req.Title)
	applyString(&book.Language, req.Language)
	applyString(&book.Category, req.Category)
	applyString(&book.Description, req.Description)
	s.replaceRef(&book.Cover, req.Cover, MediaCategoryBooks)
	s.replaceRef(&book.Download, req.Download, MediaCategoryBooks)

	if err := (CreateBookRequest{
		Title: book.Title, Language: book.Language, Category: book.Category,
		Cover: book.Cover, Description: book.Description,
	}).Validate(); err != nil {
		return nil, err
	}

	book.UpdatedAt = s.now()
	if err := s.contentStore.Write(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to update book: %w", err)
	}
	return book, nil
}

func (s *service) DeleteBook(ctx context.Context, id uuid.UUID) error {
	book, err := s.GetBook(ctx, id)
	if err != nil {
		return err
	}
	if err := s.contentStore.Delete(ctx, EntityTypeBook, id); err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	s.invalidateItem(book)
	return nil
}

func (s *service) ListBooks(ctx context.Context) ([]*Book, error) {
	items, err := s.contentStore.List(ctx, EntityTypeBook)
	if err != nil {
		return nil, err
	}
	books := make([]*Book, 0, len(items))
	for _, item := range items {
		if b, ok := item.(*Book); ok {
			books = append(books, b)
		}
	}
	return books, nil
}

// Article operations

func (s *service) CreateArticle(ctx context.Context, req CreateArticleRequest) (*Article, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	category := req.Category
	if category == "" {
		category = DefaultArticleCategory
	}
	now := s.now()
	article := &Article{
		ID:        uuid.New(),
		Title:     req.Title,
		Summary:   req.Summary,
		Content:   req.Content,
		Category:  category,
		Image:     req.Image,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.contentStore.Write(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to create article: %w", err)
	}
	return article, nil
}

func (s *service) GetArticle(ctx context.Context, id uuid.UUID) (*Article, error) {
	item, err := s.contentStore.Read(ctx, EntityTypeArticle, id)
	if err != nil {
		return nil, err
	}
	article, ok := item.(*Article)
	if !ok {
		return nil, &ContentError{Type: EntityTypeArticle, ID: id, Op: "get", Err: ErrInvalidEntityType}
	}
	return article, nil
}

func (s *service) UpdateArticle(ctx context.Context, req UpdateArticleRequest) (*Article, error) {
	article, err := s.GetArticle(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	applyString(&article.Title, req.Title)
	applyString(&article.Summary, req.Summary)
	applyString(&article.Content, req.Content)
	applyString(&article.Category, req.Category)
	if article.Category == "" {
		article.Category = DefaultArticleCategory
	}
	s.replaceRef(&article.Image, req.Image, MediaCategoryArticles)

	if err := (CreateArticleRequest{
		Title: article.Title, Summary: article.Summary, Content: article.Content,
	}).Validate(); err != nil {
		return nil, err
	}

	article.UpdatedAt = s.now()
	if err := s.contentStore.Write(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to update article: %w", err)
	}
	return article, nil
}

func (s *service) DeleteArticle(ctx context.Context, id uuid.UUID) error {
	article, err := s.GetArticle(ctx, id)
	if err != nil {
		return err
	}
	if err := s.contentStore.Delete(ctx, EntityTypeArticle, id); err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	s.invalidateItem(article)
	return nil
}

func (s *service) ListArticles(ctx context.Context) ([]*Article, error) {
	items, err := s.contentStore.List(ctx, EntityTypeArticle)
	if err != nil {
		return nil, err
	}
	articles := make([]*Article, 0, len(items))
	for _, item := range items {
		if a, ok := item.(*Article); ok {
			articles = append(articles, a)
		}
	}
	return articles, nil
}

// Gallery operations

func (s *service) CreateGalleryImage(ctx context.Context, req CreateGalleryImageRequest) (*GalleryImage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	image := &GalleryImage{
		ID:        uuid.New(),
		URL:       req.URL,
		Caption:   req.Caption,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.galleryStore.CreateGalleryImage(ctx, image); err != nil {
		return nil, fmt.Errorf("failed to create gallery image: %w", err)
	}
	return image, nil
}

func (s *service) GetGalleryImage(ctx context.Context, id uuid.UUID) (*GalleryImage, error) {
	return s.galleryStore.GetGalleryImage(ctx, id)
}

func (s *service) UpdateGalleryImage(ctx context.Context, req UpdateGalleryImageRequest) (*GalleryImage, error) {
	image, err := s.galleryStore.GetGalleryImage(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	applyString(&image.Caption, req.Caption)
	s.replaceRef(&image.URL, req.URL, MediaCategoryGallery)
	if err := (CreateGalleryImageRequest{URL: image.URL, Caption: image.Caption}).Validate(); err != nil {
		return nil, err
	}
	image.UpdatedAt = s.now()
	if err := s.galleryStore.UpdateGalleryImage(ctx, image); err != nil {
		return nil, fmt.Errorf("failed to update gallery image: %w", err)
	}
	return image, nil
}

func (s *service) DeleteGalleryImage(ctx context.Context, id uuid.UUID) error {
	image, err := s.galleryStore.GetGalleryImage(ctx, id)
	if err != nil {
		return err
	}
	if err := s.galleryStore.DeleteGalleryImage(ctx, id); err != nil {
		return fmt.Errorf("failed to delete gallery image: %w", err)
	}
	s.resolver.Invalidate(image.URL, MediaCategoryGallery)
	return nil
}

func (s *service) ListGalleryImages(ctx context.Context) ([]*GalleryImage, error) {
	return s.galleryStore.ListGalleryImages(ctx)
}

// Contact operations

func (s *service) SubmitContactMessage(ctx context.Context, req SubmitContactMessageRequest) (*ContactMessage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	msg := &ContactMessage{
		ID:        uuid.New(),
		Name:      req.Name,
		Email:     req.Email,
		Message:   req.Message,
		CreatedAt: s.now(),
	}
	if err := s.contactStore.CreateContactMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to store contact message: %w", err)
	}
	return msg, nil
}

func (s *service) GetContactMessage(ctx context.Context, id uuid.UUID) (*ContactMessage, error) {
	return s.contactStore.GetContactMessage(ctx, id)
}

func (s *service) DeleteContactMessage(ctx context.Context, id uuid.UUID) error {
	return s.contactStore.DeleteContactMessage(ctx, id)
}

func (s *service) ListContactMessages(ctx context.Context) ([]*ContactMessage, error) {
	return s.contactStore.ListContactMessages(ctx)
}

// Search

func (s *service) Search(ctx context.Context, req SearchRequest) ([]SearchHit, error) {
	return s.engine.Search(ctx, req.Query, req.Limit)
}

func (s *service) Reindex(ctx context.Context) (int, error) {
	if r, ok := s.contentStore.(Reindexer); ok {
		return r.ReindexAll(ctx)
	}

	count := 0
	for _, t := range SearchableTypes {
		items, err := s.contentStore.List(ctx, t)
		if err != nil {
			return count, err
		}
		for _, item := range items {
			if err := s.contentStore.Write(ctx, item); err != nil {
				if errors.Is(err, ErrContentNotFound) {
					continue
				}
				return count, fmt.Errorf("failed to reindex %s %s: %w", t, item.ItemID(), err)
			}
			count++
		}
	}
	slog.Info("Reindexed content", "count", count)
	return count, nil
}

// Serialization

func (s *service) ResolveMedia(ctx context.Context, ref MediaRef, category MediaCategory, defaultURL string) string {
	return s.resolver.Resolve(ctx, ref, category, defaultURL)
}

func (s *service) BookView(ctx context.Context, book *Book) BookView {
	return NewBookView(ctx, s.resolver, book)
}

func (s *service) ArticleView(ctx context.Context, article *Article) ArticleView {
	return NewArticleView(ctx, s.resolver, article)
}

func (s *service) GalleryImageView(ctx context.Context, image *GalleryImage) GalleryImageView {
	return NewGalleryImageView(ctx, s.resolver, image)
}

func (s *service) SearchHitViews(ctx context.Context, hits []SearchHit) []SearchHitView {
	return NewSearchHitViews(ctx, s.resolver, hits)
}

// replaceRef swaps in a new media reference and drops cached resolutions of
// both the old and the new value.
func (s *service) replaceRef(dst *MediaRef, src *MediaRef, category MediaCategory) {
	if src == nil {
		return
	}
	s.resolver.Invalidate(*dst, category)
	*dst = *src
	s.resolver.Invalidate(*dst, category)
}

func (s *service) invalidateItem(item ContentItem) {
	for _, f := range item.MediaFields() {
		s.resolver.Invalidate(f.Ref, f.Category)
	}
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
