package urlstrategy

import (
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// URLStrategy defines the interface for URL generation strategies
type URLStrategy interface {
	// ItemLink creates the canonical page link of a content item
	ItemLink(entityType simplecms.EntityType, id uuid.UUID) string

	// AssetURL creates the delivery URL of a file in the asset tree. path is
	// slash separated and relative to the asset root.
	AssetURL(path string) string
}

// itemLink builds "<base>/books#book-<id>" style links.
func itemLink(baseURL string, entityType simplecms.EntityType, id uuid.UUID) string {
	return baseURL + "/" + string(entityType) + "s#" + string(entityType) + "-" + id.String()
}

// escapePath escapes every segment of path.
func escapePath(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
