package simplecms

import (
	"net/mail"
	"strings"

	"github.com/google/uuid"
)

// CreateBookRequest contains parameters for creating a book
type CreateBookRequest struct {
	Title       string
	Language    string
	Category    string
	Cover       MediaRef
	Download    MediaRef
	Description string
}

// Validate checks required fields.
func (r CreateBookRequest) Validate() error {
	if err := required("title", r.Title); err != nil {
		return err
	}
	if err := required("language", r.Language); err != nil {
		return err
	}
	if err := required("category", r.Category); err != nil {
		return err
	}
	if r.Cover.IsZero() {
		return &ValidationError{Field: "cover", Reason: "is required"}
	}
	return required("description", r.Description)
}

// UpdateBookRequest contains parameters for updating a book. Nil fields keep
// their current value.
type UpdateBookRequest struct {
	ID          uuid.UUID
	Title       *string
	Language    *string
	Category    *string
	Cover       *MediaRef
	Download    *MediaRef
	Description *string
}

// CreateArticleRequest contains parameters for creating an article
type CreateArticleRequest struct {
	Title    string
	Summary  string
	Content  string
	Category string
	Image    MediaRef
}

// Validate checks required fields.
func (r CreateArticleRequest) Validate() error {
	if err := required("title", r.Title); err != nil {
		return err
	}
	if err := required("summary", r.Summary); err != nil {
		return err
	}
	return required("content", r.Content)
}

// UpdateArticleRequest contains parameters for updating an article. Nil
// fields keep their current value.
type UpdateArticleRequest struct {
	ID       uuid.UUID
	Title    *string
	Summary  *string
	Content  *string
	Category *string
	Image    *MediaRef
}

// CreateGalleryImageRequest contains parameters for adding a gallery image
type CreateGalleryImageRequest struct {
	URL     MediaRef
	Caption string
}

// Validate checks required fields.
func (r CreateGalleryImageRequest) Validate() error {
	if r.URL.IsZero() {
		return &ValidationError{Field: "url", Reason: "is required"}
	}
	return required("caption", r.Caption)
}

// UpdateGalleryImageRequest contains parameters for updating a gallery image
type UpdateGalleryImageRequest struct {
	ID      uuid.UUID
	URL     *MediaRef
	Caption *string
}

// SubmitContactMessageRequest contains a contact form submission
type SubmitContactMessageRequest struct {
	Name    string
	Email   string
	Message string
}

// Validate checks required fields and the email address.
func (r SubmitContactMessageRequest) Validate() error {
	if err := required("name", r.Name); err != nil {
		return err
	}
	if err := required("email", r.Email); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return &ValidationError{Field: "email", Reason: "is not a valid address"}
	}
	return required("message", r.Message)
}

// SearchRequest contains a free-text query and an optional result cap
type SearchRequest struct {
	Query string
	Limit int
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "is required"}
	}
	return nil
}
