package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/config"
	"github.com/tendant/simple-cms/pkg/simplecms/media"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// adminOptions are the persistent flags shared by every command
type adminOptions struct {
	jsonOutput bool
	verbose    bool
	timeout    time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &adminOptions{}

	root := &cobra.Command{
		Use:   "admin",
		Short: "Simple CMS admin CLI",
		Long: `Maintenance commands for a Simple CMS deployment.

Configuration is read from the environment, and from a .env file in the
current directory when present. Run "admin env" to list the variables.

Example usage:
  admin reindex                          # Rebuild every search vector
  admin search "apple -pie" --limit 5    # Run a query as the API would
  admin resolve cover.jpg -c books       # Trace a media reference
  admin check                            # Verify database and asset store`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output as JSON")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "overall command timeout")

	root.AddCommand(
		newReindexCmd(opts),
		newSearchCmd(opts),
		newResolveCmd(opts),
		newCheckCmd(opts),
		newEnvCmd(),
	)
	return root
}

// withRuntime builds the configured runtime for the duration of fn
func withRuntime(cmd *cobra.Command, opts *adminOptions, fn func(ctx context.Context, rt *config.Runtime, cfg *config.ServerConfig) error) error {
	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		return fmt.Errorf("failed to read configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	rt, err := cfg.Build(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	return fn(ctx, rt, cfg)
}

func newReindexCmd(opts *adminOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search vector of every book and article",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *config.Runtime, _ *config.ServerConfig) error {
				start := time.Now()
				n, err := rt.Service.Reindex(ctx)
				if err != nil {
					return fmt.Errorf("reindex failed after %d items: %w", n, err)
				}
				if opts.jsonOutput {
					return writeJSON(cmd.OutOrStdout(), map[string]any{"reindexed": n, "duration": time.Since(start).String()})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reindexed %d items in %s\n", n, time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
}

func newSearchCmd(opts *adminOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a search query and print the ranked hits",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withRuntime(cmd, opts, func(ctx context.Context, rt *config.Runtime, _ *config.ServerConfig) error {
				hits, err := rt.Service.Search(ctx, simplecms.SearchRequest{Query: query, Limit: limit})
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return writeJSON(cmd.OutOrStdout(), rt.Service.SearchHitViews(ctx, hits))
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "RANK\tSCORE\tTYPE\tTITLE\tLINK")
				for i, h := range hits {
					fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\t%s\n", i+1, h.Score, h.Type, h.Item.ItemTitle(), h.Link)
				}
				if err := w.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d hits\n", len(hits))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of hits, 0 for no cap")
	return cmd
}

func newResolveCmd(opts *adminOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "resolve <reference>",
		Short: "Resolve a stored media reference and show how it matched",
		Long: `Resolve a stored media reference against the configured asset store.

The reference is taken as stored: a plain path, a JSON encoded string, a JSON
list or a JSON object are all accepted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := simplecms.MediaCategory(category)
			switch cat {
			case simplecms.MediaCategoryBooks, simplecms.MediaCategoryArticles, simplecms.MediaCategoryGallery:
			default:
				return fmt.Errorf("unknown category %q", category)
			}

			return withRuntime(cmd, opts, func(ctx context.Context, rt *config.Runtime, _ *config.ServerConfig) error {
				res, err := rt.Resolver.Lookup(ctx, simplecms.NewMediaRef(args[0]), cat)
				if err != nil {
					return err
				}
				return printResolution(cmd.OutOrStdout(), opts.jsonOutput, args[0], cat, res)
			})
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", string(simplecms.MediaCategoryBooks), "books, articles or gallery")
	return cmd
}

func printResolution(out io.Writer, jsonOutput bool, ref string, cat simplecms.MediaCategory, res media.Resolution) error {
	if jsonOutput {
		return writeJSON(out, map[string]any{
			"reference": ref,
			"category":  cat,
			"outcome":   res.Outcome,
			"path":      res.Path,
			"url":       res.URL,
		})
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Reference:\t%s\n", ref)
	fmt.Fprintf(w, "Category:\t%s\n", cat)
	fmt.Fprintf(w, "Outcome:\t%s\n", res.Outcome)
	if res.Path != "" {
		fmt.Fprintf(w, "Path:\t%s\n", res.Path)
	}
	if res.Found() {
		fmt.Fprintf(w, "URL:\t%s\n", res.URL)
	}
	return w.Flush()
}

func newCheckCmd(opts *adminOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the content store and the asset store are reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *config.Runtime, cfg *config.ServerConfig) error {
				out := cmd.OutOrStdout()
				failed := false

				if _, err := rt.Store.List(ctx, simplecms.EntityTypeBook); err != nil {
					fmt.Fprintf(out, "content store (%s): FAIL %v\n", cfg.DatabaseType, err)
					failed = true
				} else {
					fmt.Fprintf(out, "content store (%s): OK\n", cfg.DatabaseType)
				}

				for _, dir := range media.FuzzyDirs(simplecms.MediaCategoryBooks) {
					names, err := rt.Assets.ListDirectory(ctx, dir)
					if err != nil {
						fmt.Fprintf(out, "asset store (%s) %s: FAIL %v\n", cfg.AssetStore, dir, err)
						failed = true
						continue
					}
					fmt.Fprintf(out, "asset store (%s) %s: OK, %d files\n", cfg.AssetStore, dir, len(names))
				}

				if failed {
					return fmt.Errorf("one or more checks failed")
				}
				return nil
			})
		},
	}
}

func newEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "List the configuration environment variables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), config.Usage())
			return nil
		},
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
