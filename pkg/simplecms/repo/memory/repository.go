package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/search"
)

// record is an immutable pairing of an item snapshot and its vector. Writes
// replace the whole record, so readers always see fields and vector together.
type record struct {
	item   simplecms.ContentItem
	vector search.Vector
}

// Repository implements the content, gallery and contact stores in memory
type Repository struct {
	indexer *search.Indexer

	mu       sync.RWMutex
	records  map[simplecms.EntityType]map[uuid.UUID]*record
	postings map[simplecms.EntityType]map[string]map[uuid.UUID]struct{} // lexeme -> ids
	gallery  map[uuid.UUID]*simplecms.GalleryImage
	contacts map[uuid.UUID]*simplecms.ContactMessage
}

// New creates a new in-memory repository indexing with indexer
func New(indexer *search.Indexer) *Repository {
	r := &Repository{
		indexer:  indexer,
		records:  make(map[simplecms.EntityType]map[uuid.UUID]*record),
		postings: make(map[simplecms.EntityType]map[string]map[uuid.UUID]struct{}),
		gallery:  make(map[uuid.UUID]*simplecms.GalleryImage),
		contacts: make(map[uuid.UUID]*simplecms.ContactMessage),
	}
	for _, t := range simplecms.SearchableTypes {
		r.records[t] = make(map[uuid.UUID]*record)
		r.postings[t] = make(map[string]map[uuid.UUID]struct{})
	}
	return r
}

// Content operations

func (r *Repository) Write(ctx context.Context, item simplecms.ContentItem) error {
	t := item.ItemType()
	if !t.IsValid() {
		return simplecms.ErrInvalidEntityType
	}
	// The vector is derived outside the lock; only the swap is serialized.
	snapshot := item.Clone()
	rec := &record{item: snapshot, vector: r.indexer.Index(snapshot)}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.swap(t, snapshot.ItemID(), rec)
	return nil
}

// swap replaces the record of id, keeping postings in step. Caller holds mu.
func (r *Repository) swap(t simplecms.EntityType, id uuid.UUID, rec *record) {
	if old, ok := r.records[t][id]; ok {
		for lex := range old.vector {
			ids := r.postings[t][lex]
			delete(ids, id)
			if len(ids) == 0 {
				delete(r.postings[t], lex)
			}
		}
	}
	if rec == nil {
		delete(r.records[t], id)
		return
	}
	r.records[t][id] = rec
	for lex := range rec.vector {
		ids, ok := r.postings[t][lex]
		if !ok {
			ids = make(map[uuid.UUID]struct{})
			r.postings[t][lex] = ids
		}
		ids[id] = struct{}{}
	}
}

func (r *Repository) Read(ctx context.Context, entityType simplecms.EntityType, id uuid.UUID) (simplecms.ContentItem, error) {
	if !entityType.IsValid() {
		return nil, simplecms.ErrInvalidEntityType
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.records[entityType][id]
	if !exists {
		return nil, simplecms.ErrContentNotFound
	}
	return rec.item.Clone(), nil
}

func (r *Repository) Delete(ctx context.Context, entityType simplecms.EntityType, id uuid.UUID) error {
	if !entityType.IsValid() {
		return simplecms.ErrInvalidEntityType
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[entityType][id]; !exists {
		return simplecms.ErrContentNotFound
	}
	r.swap(entityType, id, nil)
	return nil
}

func (r *Repository) List(ctx context.Context, entityType simplecms.EntityType) ([]simplecms.ContentItem, error) {
	if !entityType.IsValid() {
		return nil, simplecms.ErrInvalidEntityType
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]simplecms.ContentItem, 0, len(r.records[entityType]))
	for _, rec := range r.records[entityType] {
		result = append(result, rec.item.Clone())
	}

	// Sort by created_at descending
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Created().Equal(result[j].Created()) {
			return result[i].Created().After(result[j].Created())
		}
		return result[i].ItemID().String() < result[j].ItemID().String()
	})
	return result, nil
}

// QueryByVector narrows candidates through the postings index and ranks
// only those; documents are never re-tokenized.
func (r *Repository) QueryByVector(ctx context.Context, query simplecms.Query, entityType simplecms.EntityType, limit int) ([]simplecms.Match, error) {
	if !entityType.IsValid() {
		return nil, simplecms.ErrInvalidEntityType
	}
	required := search.RequiredLexemes(query)
	if len(required) == 0 {
		return []simplecms.Match{}, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []simplecms.Match
	for id := range r.candidates(entityType, required) {
		rec := r.records[entityType][id]
		score, ok := search.Rank(rec.vector, query)
		if !ok {
			continue
		}
		matches = append(matches, simplecms.Match{Item: rec.item.Clone(), Score: score})
	}

	search.SortMatches(matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// candidates intersects, across clauses, the union of ids holding any of
// the clause's lexemes. Caller holds mu.
func (r *Repository) candidates(t simplecms.EntityType, required [][]string) map[uuid.UUID]struct{} {
	var result map[uuid.UUID]struct{}
	for _, lexemes := range required {
		union := make(map[uuid.UUID]struct{})
		for _, lex := range lexemes {
			for id := range r.postings[t][lex] {
				union[id] = struct{}{}
			}
		}
		if result == nil {
			result = union
			continue
		}
		for id := range result {
			if _, ok := union[id]; !ok {
				delete(result, id)
			}
		}
	}
	return result
}

// ReindexAll rebuilds every vector from the stored fields. A record
// rewritten concurrently keeps the newer write.
func (r *Repository) ReindexAll(ctx context.Context) (int, error) {
	r.mu.RLock()
	var snapshot []*record
	for _, t := range simplecms.SearchableTypes {
		for _, rec := range r.records[t] {
			snapshot = append(snapshot, rec)
		}
	}
	r.mu.RUnlock()

	count := 0
	for _, old := range snapshot {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		rec := &record{item: old.item, vector: r.indexer.Index(old.item)}
		t, id := old.item.ItemType(), old.item.ItemID()

		r.mu.Lock()
		if r.records[t][id] == old {
			r.swap(t, id, rec)
			count++
		}
		r.mu.Unlock()
	}
	return count, nil
}

// Gallery operations

func (r *Repository) CreateGalleryImage(ctx context.Context, image *simplecms.GalleryImage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	imageCopy := *image
	imageCopy.URL = image.URL.Clone()
	r.gallery[image.ID] = &imageCopy
	return nil
}

func (r *Repository) GetGalleryImage(ctx context.Context, id uuid.UUID) (*simplecms.GalleryImage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	image, exists := r.gallery[id]
	if !exists {
		return nil, simplecms.ErrGalleryImageNotFound
	}
	imageCopy := *image
	imageCopy.URL = image.URL.Clone()
	return &imageCopy, nil
}

func (r *Repository) UpdateGalleryImage(ctx context.Context, image *simplecms.GalleryImage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.gallery[image.ID]; !exists {
		return simplecms.ErrGalleryImageNotFound
	}
	imageCopy := *image
	imageCopy.URL = image.URL.Clone()
	r.gallery[image.ID] = &imageCopy
	return nil
}

func (r *Repository) DeleteGalleryImage(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.gallery[id]; !exists {
		return simplecms.ErrGalleryImageNotFound
	}
	delete(r.gallery, id)
	return nil
}

func (r *Repository) ListGalleryImages(ctx context.Context) ([]*simplecms.GalleryImage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*simplecms.GalleryImage, 0, len(r.gallery))
	for _, image := range r.gallery {
		imageCopy := *image
		imageCopy.URL = image.URL.Clone()
		result = append(result, &imageCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

// Contact operations

func (r *Repository) CreateContactMessage(ctx context.Context, msg *simplecms.ContactMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgCopy := *msg
	r.contacts[msg.ID] = &msgCopy
	return nil
}

func (r *Repository) GetContactMessage(ctx context.Context, id uuid.UUID) (*simplecms.ContactMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msg, exists := r.contacts[id]
	if !exists {
		return nil, simplecms.ErrContactMessageNotFound
	}
	msgCopy := *msg
	return &msgCopy, nil
}

func (r *Repository) DeleteContactMessage(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contacts[id]; !exists {
		return simplecms.ErrContactMessageNotFound
	}
	delete(r.contacts, id)
	return nil
}

func (r *Repository) ListContactMessages(ctx context.Context) ([]*simplecms.ContactMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*simplecms.ContactMessage, 0, len(r.contacts))
	for _, msg := range r.contacts {
		msgCopy := *msg
		result = append(result, &msgCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

var (
	_ simplecms.ContentStore = (*Repository)(nil)
	_ simplecms.GalleryStore = (*Repository)(nil)
	_ simplecms.ContactStore = (*Repository)(nil)
	_ simplecms.Reindexer    = (*Repository)(nil)
)
