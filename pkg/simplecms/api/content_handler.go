package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// BookRequest is the request body for creating or updating a book. On
// update, omitted fields keep their current value.
type BookRequest struct {
	Title       *string             `json:"title"`
	Language    *string             `json:"language"`
	Category    *string             `json:"category"`
	Cover       *simplecms.MediaRef `json:"cover"`
	Download    *simplecms.MediaRef `json:"download"`
	Description *string             `json:"description"`
}

// ArticleRequest is the request body for creating or updating an article
type ArticleRequest struct {
	Title    *string             `json:"title"`
	Summary  *string             `json:"summary"`
	Content  *string             `json:"content"`
	Category *string             `json:"category"`
	Image    *simplecms.MediaRef `json:"image"`
}

// ContentHandler handles HTTP requests for books and articles
type ContentHandler struct {
	service simplecms.Service
}

// NewContentHandler creates a new content handler
func NewContentHandler(service simplecms.Service) *ContentHandler {
	return &ContentHandler{service: service}
}

// BookRoutes returns the routes for books. guard wraps the mutating routes.
func (h *ContentHandler) BookRoutes(guard func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListBooks)
	r.Get("/{id}", h.GetBook)
	r.Group(func(r chi.Router) {
		if guard != nil {
			r.Use(guard)
		}
		r.Post("/", h.CreateBook)
		r.Put("/{id}", h.UpdateBook)
		r.Delete("/{id}", h.DeleteBook)
	})
	return r
}

// ArticleRoutes returns the routes for articles. guard wraps the mutating routes.
func (h *ContentHandler) ArticleRoutes(guard func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListArticles)
	r.Get("/{id}", h.GetArticle)
	r.Group(func(r chi.Router) {
		if guard != nil {
			r.Use(guard)
		}
		r.Post("/", h.CreateArticle)
		r.Put("/{id}", h.UpdateArticle)
		r.Delete("/{id}", h.DeleteArticle)
	})
	return r
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		slog.Debug("Invalid ID", "id", idStr, "error", err)
		badRequest(w, r, "Invalid ID")
		return uuid.Nil, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, r, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// Books

func (h *ContentHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if !decode(w, r, &req) {
		return
	}

	book, err := h.service.CreateBook(r.Context(), simplecms.CreateBookRequest{
		Title:       deref(req.Title),
		Language:    deref(req.Language),
		Category:    deref(req.Category),
		Cover:       deref(req.Cover),
		Download:    deref(req.Download),
		Description: deref(req.Description),
	})
	if err != nil {
		writeError(w, r, "Failed to create book", err)
		return
	}

	slog.Info("Book created", "book_id", book.ID.String())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, h.service.BookView(r.Context(), book))
}

func (h *ContentHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		writeError(w, r, "Failed to get book", err)
		return
	}
	render.JSON(w, r, h.service.BookView(r.Context(), book))
}

func (h *ContentHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req BookRequest
	if !decode(w, r, &req) {
		return
	}

	book, err := h.service.UpdateBook(r.Context(), simplecms.UpdateBookRequest{
		ID:          id,
		Title:       req.Title,
		Language:    req.Language,
		Category:    req.Category,
		Cover:       req.Cover,
		Download:    req.Download,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, r, "Failed to update book", err)
		return
	}
	render.JSON(w, r, h.service.BookView(r.Context(), book))
}

func (h *ContentHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteBook(r.Context(), id); err != nil {
		writeError(w, r, "Failed to delete book", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ContentHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListBooks(r.Context())
	if err != nil {
		writeError(w, r, "Failed to list books", err)
		return
	}
	views := make([]simplecms.BookView, 0, len(books))
	for _, b := range books {
		views = append(views, h.service.BookView(r.Context(), b))
	}
	render.JSON(w, r, views)
}

// Articles

func (h *ContentHandler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var req ArticleRequest
	if !decode(w, r, &req) {
		return
	}

	article, err := h.service.CreateArticle(r.Context(), simplecms.CreateArticleRequest{
		Title:    deref(req.Title),
		Summary:  deref(req.Summary),
		Content:  deref(req.Content),
		Category: deref(req.Category),
		Image:    deref(req.Image),
	})
	if err != nil {
		writeError(w, r, "Failed to create article", err)
		return
	}

	slog.Info("Article created", "article_id", article.ID.String())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, h.service.ArticleView(r.Context(), article))
}

func (h *ContentHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	article, err := h.service.GetArticle(r.Context(), id)
	if err != nil {
		writeError(w, r, "Failed to get article", err)
		return
	}
	render.JSON(w, r, h.service.ArticleView(r.Context(), article))
}

func (h *ContentHandler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req ArticleRequest
	if !decode(w, r, &req) {
		return
	}

	article, err := h.service.UpdateArticle(r.Context(), simplecms.UpdateArticleRequest{
		ID:       id,
		Title:    req.Title,
		Summary:  req.Summary,
		Content:  req.Content,
		Category: req.Category,
		Image:    req.Image,
	})
	if err != nil {
		writeError(w, r, "Failed to update article", err)
		return
	}
	render.JSON(w, r, h.service.ArticleView(r.Context(), article))
}

func (h *ContentHandler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteArticle(r.Context(), id); err != nil {
		writeError(w, r, "Failed to delete article", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ContentHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := h.service.ListArticles(r.Context())
	if err != nil {
		writeError(w, r, "Failed to list articles", err)
		return
	}
	views := make([]simplecms.ArticleView, 0, len(articles))
	for _, a := range articles {
		views = append(views, h.service.ArticleView(r.Context(), a))
	}
	render.JSON(w, r, views)
}
