package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// WithEnv applies environment variable overrides read with cleanenv.
// Unset variables keep the values already configured.
//
//	PORT, ENVIRONMENT
//	DATABASE_TYPE      memory | postgres | sqlite; inferred from DATABASE_URL when unset
//	DATABASE_URL       postgres://... or a sqlite file path
//	DB_SCHEMA
//	SEARCH_LOCALE, SEARCH_PG_CONFIG
//	ASSET_STORE        fs | s3 | memory
//	STATIC_ROOT
//	S3_BUCKET, S3_REGION, S3_PREFIX, S3_ENDPOINT, S3_ACCESS_KEY_ID,
//	S3_SECRET_ACCESS_KEY, S3_USE_PATH_STYLE
//	SITE_BASE_URL, ASSET_CDN_URL
//	RESOLVER_CACHE_SIZE, RESOLVER_CACHE_TTL, REDIS_URL
//	API_KEY_SHA256
func WithEnv() Option {
	return func(c *ServerConfig) error {
		typeBefore := c.DatabaseType
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		if c.DatabaseType == typeBefore {
			c.DatabaseType = inferDatabaseType(c.DatabaseURL, c.DatabaseType)
		}
		return nil
	}
}

func inferDatabaseType(url, current string) string {
	switch {
	case url == "" || url == "memory":
		return current
	case strings.HasPrefix(url, "postgresql://"), strings.HasPrefix(url, "postgres://"):
		return "postgres"
	case strings.HasPrefix(url, "file:"), strings.HasSuffix(url, ".db"), strings.HasSuffix(url, ".sqlite"):
		return "sqlite"
	default:
		return current
	}
}

// Usage describes the environment variables WithEnv reads
func Usage() string {
	var cfg ServerConfig
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return text
}
