package urlstrategy

import (
	"strings"

	"github.com/google/uuid"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// CDNStrategy points asset URLs directly at a CDN and keeps item links on
// the application (hybrid approach)
type CDNStrategy struct {
	CDNBaseURL  string // e.g., "https://cdn.example.com" (for assets)
	SiteBaseURL string // e.g., "https://example.com" or "" (for item links)
}

// NewCDNStrategy creates a new CDN URL strategy with root-relative item links
func NewCDNStrategy(cdnBaseURL string) *CDNStrategy {
	return NewCDNStrategyWithSite(cdnBaseURL, "")
}

// NewCDNStrategyWithSite creates a new CDN URL strategy with a custom site URL
func NewCDNStrategyWithSite(cdnBaseURL, siteBaseURL string) *CDNStrategy {
	return &CDNStrategy{
		CDNBaseURL:  strings.TrimSuffix(cdnBaseURL, "/"),
		SiteBaseURL: strings.TrimSuffix(siteBaseURL, "/"),
	}
}

// ItemLink creates a link to the item's anchor on its listing page
func (s *CDNStrategy) ItemLink(entityType simplecms.EntityType, id uuid.UUID) string {
	return itemLink(s.SiteBaseURL, entityType, id)
}

// AssetURL creates a direct CDN URL for the asset
func (s *CDNStrategy) AssetURL(path string) string {
	return s.CDNBaseURL + "/" + escapePath(path)
}
