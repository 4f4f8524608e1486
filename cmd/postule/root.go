package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mgirault/postule/internal/config"
	"github.com/mgirault/postule/internal/enrich"
	"github.com/mgirault/postule/internal/extract"
	"github.com/mgirault/postule/internal/ingest"
	"github.com/mgirault/postule/internal/source"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	debug   bool
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginTop(1).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)
)

var rootCmd = &cobra.Command{
	Use:   "postule",
	Short: "Job application pipeline",
	Long: `Postule ingests postings from company job boards, submits applications
under a daily quota, and tracks every application through to a decision.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: POSTULE_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > POSTULE_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("POSTULE_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func buildSources(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) []source.Source {
	var sources []source.Source
	for _, board := range cfg.EnabledBoards() {
		var src source.Source
		switch board.ATS {
		case "greenhouse":
			src = source.NewGreenhouse(board.Token, board.Name, board.Website, httpClient)
		case "lever":
			src = source.NewLever(board.Token, board.Name, board.Website, httpClient)
		default:
			logger.Warn("unsupported ATS, skipping", "board", board.Name, "ats", board.ATS)
			continue
		}
		sources = append(sources, source.WithRetry(src, 2, 5*time.Second, logger))
		logger.Info("registered board", "name", board.Name, "ats", board.ATS)
	}
	return sources
}

// buildEnricher returns nil when enrichment is off, which disables contact
// mining in the ingestion runner.
func buildEnricher(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) ingest.ContactEnricher {
	if !cfg.Ingest.Enrich {
		return nil
	}
	opts := extract.Options{
		NoiseTokens: cfg.Ingest.NoiseTokens,
		MaxEmails:   cfg.Ingest.MaxEmails,
		MaxPhones:   cfg.Ingest.MaxPhones,
	}
	return enrich.New(enrich.NewHTTPFetcher(httpClient), opts, cfg.Ingest.Timeout, logger)
}
