package urlstrategy

import (
	"strings"

	"github.com/google/uuid"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// ContentBasedStrategy serves links and assets from the application itself
type ContentBasedStrategy struct {
	SiteBaseURL string // e.g., "https://example.com"; empty for root-relative URLs
}

// NewContentBasedStrategy creates a new content-based URL strategy
func NewContentBasedStrategy(siteBaseURL string) *ContentBasedStrategy {
	return &ContentBasedStrategy{
		SiteBaseURL: strings.TrimSuffix(siteBaseURL, "/"),
	}
}

// ItemLink creates a link to the item's anchor on its listing page
func (s *ContentBasedStrategy) ItemLink(entityType simplecms.EntityType, id uuid.UUID) string {
	return itemLink(s.SiteBaseURL, entityType, id)
}

// AssetURL creates an application-served asset URL
func (s *ContentBasedStrategy) AssetURL(path string) string {
	return s.SiteBaseURL + "/" + escapePath(path)
}
