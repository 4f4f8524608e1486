package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mgirault/postule/internal/report"
	"github.com/mgirault/postule/internal/stats"
	"github.com/mgirault/postule/internal/store"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write xlsx reports",
	Long: `Writes the applications, contacts, interview schedule and weekly
summary workbooks to the reports directory.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
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

	w := report.NewWriter(stats.New(st), cfg.Reports.Dir, logger)
	paths, err := w.WriteAll(context.Background(), time.Now().UTC())
	if err != nil {
		return err
	}

	fmt.Printf("✓ %d reports written to %s\n", len(paths), cfg.Reports.Dir)
	return nil
}
