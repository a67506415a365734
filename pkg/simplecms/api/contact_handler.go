package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// ContactRequest is the contact form body
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// ContactHandler handles contact form submissions and their administration
type ContactHandler struct {
	service simplecms.Service
}

// NewContactHandler creates a new contact handler
func NewContactHandler(service simplecms.Service) *ContactHandler {
	return &ContactHandler{service: service}
}

// Routes returns the contact routes. Submitting is public; reading and
// deleting messages go through guard.
func (h *ContactHandler) Routes(guard func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Submit)
	r.Group(func(r chi.Router) {
		if guard != nil {
			r.Use(guard)
		}
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Delete("/{id}", h.Delete)
	})
	return r
}

func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if !decode(w, r, &req) {
		return
	}
	msg, err := h.service.SubmitContactMessage(r.Context(), simplecms.SubmitContactMessageRequest{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	})
	if err != nil {
		writeError(w, r, "Failed to submit contact message", err)
		return
	}
	slog.Info("Contact message received", "message_id", msg.ID.String())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, msg)
}

func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	msg, err := h.service.GetContactMessage(r.Context(), id)
	if err != nil {
		writeError(w, r, "Failed to get contact message", err)
		return
	}
	render.JSON(w, r, msg)
}

func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteContactMessage(r.Context(), id); err != nil {
		writeError(w, r, "Failed to delete contact message", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.service.ListContactMessages(r.Context())
	if err != nil {
		writeError(w, r, "Failed to list contact messages", err)
		return
	}
	render.JSON(w, r, msgs)
}
