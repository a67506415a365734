package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

// Mount registers the CMS API on r. guard, when non-nil, wraps every
// mutating route and the contact inbox.
func Mount(r chi.Router, service simplecms.Service, guard func(http.Handler) http.Handler) {
	content := NewContentHandler(service)

	r.Group(func(r chi.Router) {
		r.Use(RequestIDMiddleware, RecoveryMiddleware, RequestSizeLimitMiddleware(maxBodyBytes))
		r.Mount("/search", NewSearchHandler(service).Routes())
		r.Mount("/books", content.BookRoutes(guard))
		r.Mount("/articles", content.ArticleRoutes(guard))
		r.Mount("/gallery", NewGalleryHandler(service).Routes(guard))
		r.Mount("/contact", NewContactHandler(service).Routes(guard))
	})
}
