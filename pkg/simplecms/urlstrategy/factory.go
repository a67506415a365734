package urlstrategy

import (
	"fmt"
)

// URLStrategyType represents the type of URL strategy
type URLStrategyType string

const (
	// CDN strategy for direct CDN asset URLs
	StrategyTypeCDN URLStrategyType = "cdn"

	// Content-based strategy for application-served URLs
	StrategyTypeContentBased URLStrategyType = "content-based"
)

// Config holds configuration for URL strategy creation
type Config struct {
	Type        URLStrategyType
	CDNBaseURL  string // For CDN strategy assets
	SiteBaseURL string // For item links, and assets of the content-based strategy
}

// NewURLStrategy creates a URL strategy based on the configuration
func NewURLStrategy(config Config) (URLStrategy, error) {
	switch config.Type {
	case StrategyTypeCDN:
		if config.CDNBaseURL == "" {
			return nil, fmt.Errorf("CDN base URL is required for CDN strategy")
		}
		return NewCDNStrategyWithSite(config.CDNBaseURL, config.SiteBaseURL), nil

	case StrategyTypeContentBased, "":
		return NewContentBasedStrategy(config.SiteBaseURL), nil

	default:
		return nil, fmt.Errorf("unknown URL strategy type: %s", config.Type)
	}
}

// NewDefaultStrategy creates a root-relative content-based strategy
func NewDefaultStrategy() URLStrategy {
	return NewContentBasedStrategy("")
}

// NewRecommendedStrategy creates the recommended URL strategy based on environment
func NewRecommendedStrategy(environment string, cdnURL string, siteURL string) URLStrategy {
	if environment == "production" && cdnURL != "" {
		return NewCDNStrategyWithSite(cdnURL, siteURL)
	}
	return NewContentBasedStrategy(siteURL)
}
