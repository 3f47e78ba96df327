package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/franksops/dsfetch/cache"
	"github.com/franksops/dsfetch/config"
	"github.com/franksops/dsfetch/engine"
	"github.com/franksops/dsfetch/fetch"
	"github.com/franksops/dsfetch/provider"
	"github.com/franksops/dsfetch/store"
	"github.com/franksops/dsfetch/ui"
)

type rootOptions struct {
	configFile string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "dsfetch",
		Short: "List and download benchmark datasets from the public bucket",
		Long: `dsfetch lists the datasets published for each benchmark task and
downloads them concurrently, resuming partial files when aria2c is installed.

Listings are cached for an hour. Files already present with the listed size
are skipped, so an interrupted fetch can simply be run again.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(opts.verbose)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (yaml, json or toml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newListCmd(opts), newFetchCmd(opts), newStatusCmd(opts))
	return cmd
}

// app holds the wired components for one command invocation.
type app struct {
	cfg     *config.Config
	store   *store.BoltStore
	console *ui.Console
	fetcher *fetch.Fetcher
}

// newApp loads the configuration, applies command line overrides and wires
// the fetcher. A store that cannot be opened disables caching and transfer
// records instead of failing the command.
func newApp(ctx context.Context, opts *rootOptions, overrides ...func(*config.Config)) (*app, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}
	for _, override := range overrides {
		override(cfg)
	}

	a := &app{cfg: cfg, console: ui.NewConsole(os.Stderr)}

	listings := cache.New(nil)
	var tracker *engine.JobTracker
	if st, err := openStore(cfg); err != nil {
		slog.Warn("listing cache disabled", "path", cfg.CachePath(), "error", err)
	} else {
		a.store = st
		listings = cache.New(st, cache.WithTTL(cfg.CacheTTL))
		tracker = engine.NewJobTracker(st)
	}

	lister, err := provider.NewS3Lister(ctx, provider.S3Options{
		Bucket:       cfg.Bucket,
		Region:       cfg.Region,
		Endpoint:     cfg.Endpoint,
		UsePathStyle: cfg.UsePathStyle,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	backends := &engine.Backends{
		Accelerated: engine.NewAria2(cfg.Aria2Binary, cfg.Connections, a.console),
		Fallback:    engine.NewHTTPFetcher(nil, a.console),
	}

	a.fetcher = fetch.New(lister, listings, backends, a.console, fetch.Options{
		BaseURL:     cfg.BaseURL,
		DatasetsDir: cfg.DatasetsDir,
		Workers:     cfg.Workers,
		Tracker:     tracker,
	})
	return a, nil
}

func openStore(cfg *config.Config) (*store.BoltStore, error) {
	if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return store.NewBoltStore(cfg.CachePath())
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Warn("failed to close store", "error", err)
		}
	}
}
