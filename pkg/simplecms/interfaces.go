package simplecms

import (
	"context"

	"github.com/google/uuid"
)

// ContentStore defines persistence for searchable content items.
//
// Write is the single mutation funnel: it stores the item's fields and the
// search vector derived from them as one atomic unit, so no reader can
// observe one without the other. Indexing degradation never fails a write.
type ContentStore interface {
	// Write creates or replaces the item and reindexes it.
	Write(ctx context.Context, item ContentItem) error

	// Read returns a snapshot of the item.
	Read(ctx context.Context, entityType EntityType, id uuid.UUID) (ContentItem, error)

	// Delete removes the item together with its search vector.
	Delete(ctx context.Context, entityType EntityType, id uuid.UUID) error

	// List returns all items of a type, newest first.
	List(ctx context.Context, entityType EntityType) ([]ContentItem, error)

	// QueryByVector returns the ranked matches of a single entity type,
	// best first. limit <= 0 means no cap.
	QueryByVector(ctx context.Context, query Query, entityType EntityType, limit int) ([]Match, error)
}

// Reindexer is implemented by stores that can rebuild every search vector
// from the currently stored fields.
type Reindexer interface {
	ReindexAll(ctx context.Context) (int, error)
}

// GalleryStore defines persistence for gallery images.
type GalleryStore interface {
	CreateGalleryImage(ctx context.Context, image *GalleryImage) error
	GetGalleryImage(ctx context.Context, id uuid.UUID) (*GalleryImage, error)
	UpdateGalleryImage(ctx context.Context, image *GalleryImage) error
	DeleteGalleryImage(ctx context.Context, id uuid.UUID) error
	ListGalleryImages(ctx context.Context) ([]*GalleryImage, error)
}

// ContactStore defines persistence for contact messages.
type ContactStore interface {
	CreateContactMessage(ctx context.Context, msg *ContactMessage) error
	GetContactMessage(ctx context.Context, id uuid.UUID) (*ContactMessage, error)
	DeleteContactMessage(ctx context.Context, id uuid.UUID) error
	ListContactMessages(ctx context.Context) ([]*ContactMessage, error)
}

// AssetStore is the read-only view of the public asset tree the resolver
// probes. Paths are slash separated and relative to the asset root.
type AssetStore interface {
	// Exists reports whether a regular file exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// ListDirectory returns the file names directly under dir, sorted.
	// A missing directory yields an empty listing, not an error.
	ListDirectory(ctx context.Context, dir string) ([]string, error)
}

// SearchEngine answers cross-type search requests.
type SearchEngine interface {
	Search(ctx context.Context, queryText string, limit int) ([]SearchHit, error)
}

// MediaResolver turns a stored media reference into a canonical URL. Resolve
// is total: it never fails and never returns an empty string.
type MediaResolver interface {
	Resolve(ctx context.Context, ref MediaRef, category MediaCategory, defaultURL string) string

	// Invalidate drops any cached resolution of ref for category.
	Invalidate(ref MediaRef, category MediaCategory)
}
