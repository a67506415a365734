package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/tendant/simple-cms/pkg/simplecms"
	fsassets "github.com/tendant/simple-cms/pkg/simplecms/assets/fs"
	memoryassets "github.com/tendant/simple-cms/pkg/simplecms/assets/memory"
	s3assets "github.com/tendant/simple-cms/pkg/simplecms/assets/s3"
	"github.com/tendant/simple-cms/pkg/simplecms/media"
	"github.com/tendant/simple-cms/pkg/simplecms/metrics"
	"github.com/tendant/simple-cms/pkg/simplecms/repo/memory"
	repopg "github.com/tendant/simple-cms/pkg/simplecms/repo/postgres"
	"github.com/tendant/simple-cms/pkg/simplecms/repo/sqlite"
	"github.com/tendant/simple-cms/pkg/simplecms/search"
	"github.com/tendant/simple-cms/pkg/simplecms/urlstrategy"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:              "8080",
		Environment:       "development",
		DatabaseType:      "memory",
		DBSchema:          "cms",
		SearchLocale:      "english",
		SearchPGConfig:    "english",
		AssetStore:        "fs",
		StaticRoot:        ".",
		ResolverCacheSize: 4096,
		ResolverCacheTTL:  5 * time.Minute,
		S3: S3Config{
			Region: "us-east-1",
		},
	}
}

// ServerConfig represents server configuration for the simple-cms service.
// Fields carry cleanenv tags; see WithEnv.
type ServerConfig struct {
	Port        string `env:"PORT" env-description:"HTTP listen port"`
	Environment string `env:"ENVIRONMENT" env-description:"development, staging or production"`

	// Content store
	DatabaseType string `env:"DATABASE_TYPE" env-description:"memory, postgres or sqlite"`
	DatabaseURL  string `env:"DATABASE_URL" env-description:"postgres connection string or sqlite file path"`
	DBSchema     string `env:"DB_SCHEMA" env-description:"Postgres schema (search_path)"`

	// Search
	SearchLocale   string `env:"SEARCH_LOCALE" env-description:"analyzer locale for the in-process index"`
	SearchPGConfig string `env:"SEARCH_PG_CONFIG" env-description:"Postgres text search configuration"`

	// Assets and media resolution
	AssetStore        string        `env:"ASSET_STORE" env-description:"fs, s3 or memory"`
	StaticRoot        string        `env:"STATIC_ROOT" env-description:"directory containing static/"`
	S3                S3Config
	SiteBaseURL       string        `env:"SITE_BASE_URL" env-description:"base URL of item links and app-served assets"`
	AssetCDNURL       string        `env:"ASSET_CDN_URL" env-description:"CDN base URL for assets in production"`
	ResolverCacheSize int           `env:"RESOLVER_CACHE_SIZE" env-description:"in-process resolution cache entries, 0 disables"`
	ResolverCacheTTL  time.Duration `env:"RESOLVER_CACHE_TTL" env-description:"resolution cache entry lifetime"`
	RedisURL          string        `env:"REDIS_URL" env-description:"optional shared resolution cache"`

	APIKeySHA256 string `env:"API_KEY_SHA256" env-description:"SHA-256 of the API key guarding write routes"`
}

// S3Config holds the S3 asset store settings
type S3Config struct {
	Bucket          string `env:"S3_BUCKET"`
	Region          string `env:"S3_REGION"`
	Prefix          string `env:"S3_PREFIX"`
	Endpoint        string `env:"S3_ENDPOINT"`
	AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `env:"S3_USE_PATH_STYLE"`
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.DatabaseType {
	case "memory", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("database_url is required when using postgres")
		}
	default:
		return errors.New("database_type must be 'memory', 'postgres' or 'sqlite'")
	}

	switch c.AssetStore {
	case "fs":
		if c.StaticRoot == "" {
			return errors.New("static_root is required for the fs asset store")
		}
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("s3 bucket is required for the s3 asset store")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported asset store: %s", c.AssetStore)
	}

	if c.ResolverCacheSize < 0 {
		return errors.New("resolver cache size must not be negative")
	}
	if c.ResolverCacheTTL < 0 {
		return errors.New("resolver cache ttl must not be negative")
	}
	if c.RedisURL != "" {
		if _, err := redis.ParseURL(c.RedisURL); err != nil {
			return fmt.Errorf("invalid redis_url: %w", err)
		}
	}

	return nil
}

// Runtime holds the components built from a ServerConfig
type Runtime struct {
	Service  simplecms.Service
	Store    simplecms.ContentStore
	Engine   *search.Engine
	Resolver *media.Resolver
	Assets   simplecms.AssetStore
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	closers []func()
}

// Close releases database connections and cache clients
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService(ctx context.Context) (simplecms.Service, error) {
	rt, err := c.Build(ctx)
	if err != nil {
		return nil, err
	}
	return rt.Service, nil
}

// Build wires stores, search, media resolution and metrics.
func (c *ServerConfig) Build(ctx context.Context) (*Runtime, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rt := &Runtime{
		Registry: registry,
		Metrics:  metrics.NewMetrics(registry),
	}

	analyzer := search.NewAnalyzer(c.SearchLocale)

	store, err := c.buildContentStore(ctx, rt, analyzer)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build content store: %w", err)
	}
	rt.Store = store

	assets, err := c.buildAssetStore()
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build asset store: %w", err)
	}
	rt.Assets = assets

	strategy := urlstrategy.NewRecommendedStrategy(c.Environment, c.AssetCDNURL, c.SiteBaseURL)

	resolverOpts := []media.Option{
		media.WithURLStrategy(strategy),
		media.WithMetrics(rt.Metrics),
	}
	if cache := c.buildResolverCache(rt); cache != nil {
		resolverOpts = append(resolverOpts, media.WithCache(cache))
	}
	rt.Resolver = media.NewResolver(assets, resolverOpts...)

	rt.Engine = search.NewEngine(store, analyzer,
		search.WithLinker(strategy),
		search.WithMetrics(rt.Metrics),
	)

	svc, err := simplecms.New(
		simplecms.WithContentStore(store),
		simplecms.WithSearchEngine(rt.Engine),
		simplecms.WithResolver(rt.Resolver),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Service = svc
	return rt, nil
}

// buildContentStore creates a ContentStore based on the configuration
func (c *ServerConfig) buildContentStore(ctx context.Context, rt *Runtime, analyzer *search.Analyzer) (simplecms.ContentStore, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(search.NewIndexer(analyzer, search.WithIndexerMetrics(rt.Metrics))), nil

	case "sqlite":
		path := c.DatabaseURL
		if path == "" {
			path = ":memory:"
		}
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func() { store.Close() })
		return store, nil

	case "postgres":
		pool, err := newPool(ctx, c.DatabaseURL, c.DBSchema)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, pool.Close)
		return repopg.NewWithPool(pool,
			repopg.WithTextSearchConfig(c.SearchPGConfig),
			repopg.WithMetrics(rt.Metrics),
		), nil

	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

func newPool(ctx context.Context, databaseURL, schema string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", pgx.Identifier{schema}.Sanitize()))
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return pool, nil
}

// PingPostgres verifies connectivity to Postgres with the session search_path set.
func PingPostgres(databaseURL, schema string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := newPool(ctx, databaseURL, schema)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// buildAssetStore creates the AssetStore the resolver probes
func (c *ServerConfig) buildAssetStore() (simplecms.AssetStore, error) {
	switch c.AssetStore {
	case "fs":
		return fsassets.New(fsassets.Config{BaseDir: c.StaticRoot, CreateUploadDirs: true})
	case "s3":
		return s3assets.New(s3assets.Config{
			Region:          c.S3.Region,
			Bucket:          c.S3.Bucket,
			Prefix:          c.S3.Prefix,
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
			Endpoint:        c.S3.Endpoint,
			UsePathStyle:    c.S3.UsePathStyle,
		})
	case "memory":
		return memoryassets.New(), nil
	default:
		return nil, fmt.Errorf("unsupported asset store: %s", c.AssetStore)
	}
}

// buildResolverCache returns the in-process LRU, fronting Redis when
// configured, or nil when caching is disabled.
func (c *ServerConfig) buildResolverCache(rt *Runtime) media.Cache {
	var tiers []media.Cache
	if c.ResolverCacheSize > 0 {
		tiers = append(tiers, media.NewLRUCache(c.ResolverCacheSize, c.ResolverCacheTTL))
	}
	if c.RedisURL != "" {
		// Validate has already parsed the URL.
		opts, _ := redis.ParseURL(c.RedisURL)
		client := redis.NewClient(opts)
		rt.closers = append(rt.closers, func() { client.Close() })
		tiers = append(tiers, media.NewRedisCache(client, "", c.ResolverCacheTTL))
	}
	switch len(tiers) {
	case 0:
		return nil
	case 1:
		return tiers[0]
	default:
		return media.NewTieredCache(tiers...)
	}
}
