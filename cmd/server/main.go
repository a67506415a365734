package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/chi-demo/middleware"

	"github.com/tendant/simple-cms/pkg/simplecms/api"
	"github.com/tendant/simple-cms/pkg/simplecms/config"
	"github.com/tendant/simple-cms/pkg/simplecms/metrics"
)

func main() {
	// A missing .env file is fine; the process environment still applies
	_ = godotenv.Load()

	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	rt, err := cfg.Build(ctx)
	if err != nil {
		slog.Error("Failed to build service", "err", err)
		os.Exit(1)
	}
	defer rt.Close()

	var guard func(http.Handler) http.Handler
	if cfg.APIKeySHA256 != "" {
		guard, err = middleware.ApiKeyMiddleware(middleware.ApiKeyConfig{
			APIKeys: map[string]string{
				"key1": cfg.APIKeySHA256,
			},
		})
		if err != nil {
			slog.Error("Failed initialize API Key middleware", "err", err)
			return
		}
	} else {
		slog.Warn("API_KEY_SHA256 is not set, write routes are unauthenticated")
	}

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	server.R.Handle("/metrics", metrics.Handler(rt.Registry))

	if cfg.AssetStore == "fs" {
		static := http.FileServer(http.Dir(filepath.Join(cfg.StaticRoot, "static")))
		server.R.Handle("/static/*", http.StripPrefix("/static/", static))
	}

	server.R.Route("/api/v1", func(r chi.Router) {
		r.Use(metrics.HTTPMiddleware(rt.Metrics))
		api.Mount(r, rt.Service, guard)
	})

	slog.Info("Simple CMS starting",
		"environment", cfg.Environment,
		"database", cfg.DatabaseType,
		"assets", cfg.AssetStore,
	)

	server.Run()
}
