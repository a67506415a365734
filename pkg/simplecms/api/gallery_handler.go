package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// GalleryImageRequest is the request body for creating or updating a gallery image
type GalleryImageRequest struct {
	URL     *simplecms.MediaRef `json:"url"`
	Caption *string             `json:"caption"`
}

// GalleryHandler handles HTTP requests for gallery images
type GalleryHandler struct {
	service simplecms.Service
}

// NewGalleryHandler creates a new gallery handler
func NewGalleryHandler(service simplecms.Service) *GalleryHandler {
	return &GalleryHandler{service: service}
}

// Routes returns the routes for the gallery. guard wraps the mutating routes.
func (h *GalleryHandler) Routes(guard func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Group(func(r chi.Router) {
		if guard != nil {
			r.Use(guard)
		}
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
	return r
}

func (h *GalleryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req GalleryImageRequest
	if !decode(w, r, &req) {
		return
	}
	image, err := h.service.CreateGalleryImage(r.Context(), simplecms.CreateGalleryImageRequest{
		URL:     deref(req.URL),
		Caption: deref(req.Caption),
	})
	if err != nil {
		writeError(w, r, "Failed to create gallery image", err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, h.service.GalleryImageView(r.Context(), image))
}

func (h *GalleryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	image, err := h.service.GetGalleryImage(r.Context(), id)
	if err != nil {
		writeError(w, r, "Failed to get gallery image", err)
		return
	}
	render.JSON(w, r, h.service.GalleryImageView(r.Context(), image))
}

func (h *GalleryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req GalleryImageRequest
	if !decode(w, r, &req) {
		return
	}
	image, err := h.service.UpdateGalleryImage(r.Context(), simplecms.UpdateGalleryImageRequest{
		ID:      id,
		URL:     req.URL,
		Caption: req.Caption,
	})
	if err != nil {
		writeError(w, r, "Failed to update gallery image", err)
		return
	}
	render.JSON(w, r, h.service.GalleryImageView(r.Context(), image))
}

func (h *GalleryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteGalleryImage(r.Context(), id); err != nil {
		writeError(w, r, "Failed to delete gallery image", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	images, err := h.service.ListGalleryImages(r.Context())
	if err != nil {
		writeError(w, r, "Failed to list gallery images", err)
		return
	}
	views := make([]simplecms.GalleryImageView, 0, len(images))
	for _, img := range images {
		views = append(views, h.service.GalleryImageView(r.Context(), img))
	}
	render.JSON(w, r, views)
}
