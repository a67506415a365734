package simplecms

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrContentNotFound indicates a book or article was not found
	ErrContentNotFound = errors.New("content not found")

	// ErrGalleryImageNotFound indicates a gallery image was not found
	ErrGalleryImageNotFound = errors.New("gallery image not found")

	// ErrContactMessageNotFound indicates a contact message was not found
	ErrContactMessageNotFound = errors.New("contact message not found")

	// ErrInvalidEntityType indicates an entity type that is not searchable
	ErrInvalidEntityType = errors.New("invalid entity type")

	// ErrValidation indicates a request failed validation
	ErrValidation = errors.New("validation failed")

	// ErrStoreUnavailable indicates the content store could not be reached
	ErrStoreUnavailable = errors.New("content store unavailable")

	// ErrAssetStoreUnavailable indicates the asset store could not be reached
	ErrAssetStoreUnavailable = errors.New("asset store unavailable")
)

// ContentError represents an error related to a content item operation
type ContentError struct {
	Type EntityType
	ID   uuid.UUID
	Op   string
	Err  error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("%s operation %s failed for %s: %v", e.Type, e.Op, e.ID, e.Err)
}

func (e *ContentError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to asset store operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ValidationError describes a rejected request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
