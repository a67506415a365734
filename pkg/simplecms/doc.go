// Package simplecms provides the content discovery layer of a small
// content-management backend: books, articles, gallery images and contact
// messages, ranked full-text search across content types, and resolution of
// stored media references into canonical delivery URLs.
//
// It exposes a single Service interface that orchestrates writes to a
// ContentStore, cross-type search through a SearchEngine, and serialization of
// entities through a MediaResolver. Implementations of stores (memory,
// Postgres, SQLite), asset stores (filesystem, memory, S3), the search engine
// and the resolver are provided under subpackages.
//
// # Write Path
//
// Every mutation of a book or article funnels through ContentStore.Write,
// which persists the fields and the derived search vector as one atomic unit.
// There are no storage-level triggers: the dependency between fields and the
// vector is explicit at the call site.
//
// # Serialization
//
// Raw media references are never returned to callers. The view constructors
// (NewBookView, NewArticleView, NewGalleryImageView) route every stored media
// field through the MediaResolver.
package simplecms
