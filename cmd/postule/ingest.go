package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mgirault/postule/internal/ingest"
	"github.com/mgirault/postule/internal/ratelimit"
	"github.com/mgirault/postule/internal/store"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch new postings from all enabled boards",
	Long: `Fetches every enabled board once, normalizes and stores new postings,
and mines contact info for them when enrichment is on.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	httpClient := &http.Client{Timeout: cfg.Ingest.Timeout}
	sources := buildSources(cfg, httpClient, logger)
	if len(sources) == 0 {
		logger.Error("no boards to ingest")
		os.Exit(1)
	}

	limiter := ratelimit.New(cfg.Ingest.MinDelay)
	enricher := buildEnricher(cfg, httpClient, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := ingest.NewRunner(sources, st, enricher, limiter, cfg.Ingest.Workers, logger)
	if _, err := runner.Run(ctx); err != nil {
		logger.Error("ingestion aborted", "error", err)
		os.Exit(1)
	}
	return nil
}
