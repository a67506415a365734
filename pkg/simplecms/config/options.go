package config

import (
	"fmt"
	"time"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, staging, production)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the content store backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		switch dbType {
		case "memory", "sqlite":
		case "postgres":
			if url == "" {
				return fmt.Errorf("database URL is required for postgres")
			}
		default:
			return fmt.Errorf("database type must be 'memory', 'postgres' or 'sqlite', got: %s", dbType)
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithSearchLocale sets the analyzer locale and the Postgres text search
// configuration. An empty pgConfig keeps the current one.
func WithSearchLocale(locale, pgConfig string) Option {
	return func(c *ServerConfig) error {
		if locale == "" {
			return fmt.Errorf("search locale cannot be empty")
		}
		c.SearchLocale = locale
		if pgConfig != "" {
			c.SearchPGConfig = pgConfig
		}
		return nil
	}
}

// WithFilesystemAssets probes the static tree under root
func WithFilesystemAssets(root string) Option {
	return func(c *ServerConfig) error {
		if root == "" {
			return fmt.Errorf("static root cannot be empty")
		}
		c.AssetStore = "fs"
		c.StaticRoot = root
		return nil
	}
}

// WithS3Assets probes the static tree in an S3 bucket under prefix
func WithS3Assets(bucket, region, prefix string) Option {
	return func(c *ServerConfig) error {
		if bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
		c.AssetStore = "s3"
		c.S3.Bucket = bucket
		c.S3.Prefix = prefix
		if region != "" {
			c.S3.Region = region
		}
		return nil
	}
}

// WithS3Credentials sets static S3 credentials
func WithS3Credentials(accessKeyID, secretAccessKey string) Option {
	return func(c *ServerConfig) error {
		c.S3.AccessKeyID = accessKeyID
		c.S3.SecretAccessKey = secretAccessKey
		return nil
	}
}

// WithS3Endpoint configures an S3-compatible endpoint (MinIO etc.)
func WithS3Endpoint(endpoint string, usePathStyle bool) Option {
	return func(c *ServerConfig) error {
		c.S3.Endpoint = endpoint
		c.S3.UsePathStyle = usePathStyle
		return nil
	}
}

// WithMemoryAssets uses an empty in-memory asset store
func WithMemoryAssets() Option {
	return func(c *ServerConfig) error {
		c.AssetStore = "memory"
		return nil
	}
}

// WithSiteBaseURL sets the base of item links and app-served asset URLs
func WithSiteBaseURL(url string) Option {
	return func(c *ServerConfig) error {
		c.SiteBaseURL = url
		return nil
	}
}

// WithCDNURLs serves assets from cdnBaseURL in production
func WithCDNURLs(cdnBaseURL string) Option {
	return func(c *ServerConfig) error {
		c.AssetCDNURL = cdnBaseURL
		return nil
	}
}

// WithResolverCache sizes the in-process resolution cache. size 0 disables it.
func WithResolverCache(size int, ttl time.Duration) Option {
	return func(c *ServerConfig) error {
		if size < 0 {
			return fmt.Errorf("resolver cache size cannot be negative")
		}
		c.ResolverCacheSize = size
		c.ResolverCacheTTL = ttl
		return nil
	}
}

// WithRedis adds a shared Redis tier behind the in-process cache
func WithRedis(url string) Option {
	return func(c *ServerConfig) error {
		c.RedisURL = url
		return nil
	}
}

// WithAPIKeySHA256 sets the hashed key guarding write routes
func WithAPIKeySHA256(sum string) Option {
	return func(c *ServerConfig) error {
		c.APIKeySHA256 = sum
		return nil
	}
}
