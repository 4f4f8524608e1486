package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mgirault/postule/internal/model"
	"github.com/mgirault/postule/internal/stats"
	"github.com/mgirault/postule/internal/store"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the application pipeline summary",
	Long:  "Displays totals per status, the response rate, last week's activity and upcoming interviews.",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	ctx := context.Background()
	agg := stats.New(st)

	summary, err := agg.Summary(ctx)
	if err != nil {
		return err
	}
	if summary.TotalPostings == 0 {
		fmt.Println("No postings tracked yet. Run 'postule ingest' first.")
		return nil
	}

	fmt.Println(titleStyle.Render("Application Pipeline"))

	fmt.Printf("%s\n", labelStyle.Render("Overview"))
	fmt.Printf("  Tracked Postings: %d\n", summary.TotalPostings)
	fmt.Printf("  Applications Sent: %d\n", summary.Applications)
	fmt.Printf("  Awaiting Submission: %d\n", summary.Pending())

	fmt.Printf("\n%s\n", labelStyle.Render("Status Breakdown"))
	for _, s := range []model.Status{
		model.StatusPending, model.StatusSent, model.StatusContacted,
		model.StatusInterview, model.StatusRejected, model.StatusAccepted,
	} {
		if n := summary.ByStatus[s]; n > 0 {
			fmt.Printf("  %s: %d\n", s, n)
		}
	}

	if summary.Applications > 0 {
		fmt.Printf("\n%s\n", labelStyle.Render("Response Rate"))
		fmt.Printf("  %.1f%% (%d of %d applications)\n",
			summary.ResponseRate(), summary.Responded(), summary.Applications)
	}

	now := time.Now().UTC()
	weekly, err := agg.Weekly(ctx, now)
	if err != nil {
		return err
	}
	if weekly.Applications > 0 || weekly.Responses > 0 {
		fmt.Printf("\n%s\n", labelStyle.Render("Last 7 Days"))
		fmt.Printf("  Applications: %d\n", weekly.Applications)
		fmt.Printf("  Responses: %d\n", weekly.Responses)
		if weekly.Interviews > 0 {
			fmt.Printf("  Interviews: %d\n", weekly.Interviews)
		}
		if weekly.Offers > 0 {
			fmt.Printf("  Offers: %d\n", weekly.Offers)
		}
		if weekly.Rejections > 0 {
			fmt.Printf("  Rejections: %d\n", weekly.Rejections)
		}
	}

	upcoming, err := agg.UpcomingInterviews(ctx, now)
	if err != nil {
		return err
	}
	if len(upcoming) > 0 {
		fmt.Printf("\n%s\n", labelStyle.Render("Upcoming Interviews"))
		for _, r := range upcoming {
			iv := r.Application.Interview
			line := "  " + iv.Date.Format("2006-01-02")
			if iv.Slot != "" {
				line += " " + iv.Slot
			}
			line += fmt.Sprintf("  %s at %s (%s)", r.Posting.Title, r.Posting.Company, iv.Kind)
			fmt.Println(line)
		}
	}
	return nil
}
