package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// MaxSearchLimit caps the limit query parameter
const MaxSearchLimit = 100

// SearchResponse is the response body of a search
type SearchResponse struct {
	Query string                    `json:"query"`
	Hits  []simplecms.SearchHitView `json:"hits"`
}

// SearchHandler serves cross-type search
type SearchHandler struct {
	service simplecms.Service
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(service simplecms.Service) *SearchHandler {
	return &SearchHandler{service: service}
}

// Routes returns the routes for search
func (h *SearchHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Search)
	return r
}

// Search runs GET /?q=...&limit=n. A blank query returns an empty hit list.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(w, r, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	if limit == 0 || limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	hits, err := h.service.Search(r.Context(), simplecms.SearchRequest{Query: query, Limit: limit})
	if err != nil {
		writeError(w, r, "Failed to search", err)
		return
	}

	render.JSON(w, r, SearchResponse{
		Query: query,
		Hits:  h.service.SearchHitViews(r.Context(), hits),
	})
}
