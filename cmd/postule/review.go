package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mgirault/postule/internal/model"
	"github.com/mgirault/postule/internal/review"
	"github.com/mgirault/postule/internal/store"
	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Browse postings and applications (TUI)",
	Long:  "Opens the split-pane review TUI over everything in the store.",
	RunE:  runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
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

	records, err := st.Query(context.Background(), model.QueryFilter{})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No postings tracked yet. Run 'postule ingest' first.")
		return nil
	}
	return review.RunReviewTUI(records)
}
