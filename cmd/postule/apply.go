package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mgirault/postule/internal/mailer"
	"github.com/mgirault/postule/internal/model"
	"github.com/mgirault/postule/internal/quota"
	"github.com/mgirault/postule/internal/ratelimit"
	"github.com/mgirault/postule/internal/store"
	"github.com/mgirault/postule/internal/submit"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Submit applications for pending postings",
	Long: `Submits applications for postings that have none yet, newest first,
until the daily quota is used up. Without a configured SMTP relay the
email is skipped but the application is still recorded.`,
	Example: `  postule apply
  postule apply --company Acme --limit 1
  postule apply --dry-run`,
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().String("company", "", "only apply to postings from this company")
	applyCmd.Flags().String("method", "email", "submission method (email, form, platform)")
	applyCmd.Flags().Int("limit", 0, "stop after this many submissions (0 = until quota)")
	applyCmd.Flags().Bool("dry-run", false, "list what would be submitted without sending or recording anything")
}

func runApply(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	company, _ := cmd.Flags().GetString("company")
	methodFlag, _ := cmd.Flags().GetString("method")
	limit, _ := cmd.Flags().GetInt("limit")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	method, err := model.ParseMethod(methodFlag)
	if err != nil {
		return err
	}

	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	candidates, err := st.Query(ctx, model.QueryFilter{
		Statuses: []model.Status{model.StatusPending},
		Company:  company,
	})
	if err != nil {
		return fmt.Errorf("loading postings: %w", err)
	}
	if len(candidates) == 0 {
		fmt.Println("Nothing to apply to. Run 'postule ingest' to discover postings.")
		return nil
	}

	// The cap counts calendar-day submissions, so seed the counter with
	// what already went out since midnight.
	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	sentToday, err := st.Query(ctx, model.QueryFilter{AppliedSince: &midnight})
	if err != nil {
		return fmt.Errorf("counting today's applications: %w", err)
	}
	counter := quota.NewDailyCounter(cfg.Quota.DailyCap, len(sentToday))

	if dryRun {
		remaining := counter.Limit() - counter.Used()
		if remaining < 0 {
			remaining = 0
		}
		would := len(candidates)
		if limit > 0 && limit < would {
			would = limit
		}
		if remaining < would {
			would = remaining
		}
		for i := 0; i < would; i++ {
			p := candidates[i].Posting
			fmt.Printf("  would apply to %s at %s (%s)\n", p.Title, p.Company, method)
		}
		fmt.Printf("\nDry run: %d of %d candidates fit today's quota (%d/%d used).\n",
			would, len(candidates), counter.Used(), counter.Limit())
		return nil
	}

	var sender model.Sender
	if cfg.SMTP.Configured() {
		sender = mailer.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From, logger)
	} else {
		logger.Warn("smtp not configured, applications will be recorded without sending email")
		sender = mailer.NewNopSender(logger)
	}

	profile := submit.Profile{Name: cfg.Profile.Name, Email: cfg.Profile.Email, Phone: cfg.Profile.Phone}
	submitter := submit.New(st, sender, nil, counter, profile, logger)
	limiter := ratelimit.New(cfg.Quota.MinDelay)

	var submitted, skipped, failed int
loop:
	for _, r := range candidates {
		if limit > 0 && submitted >= limit {
			break
		}
		if err := limiter.Wait(ctx, "submit"); err != nil {
			break
		}
		p := r.Posting
		res := submitter.Submit(ctx, p, method)
		switch res.Outcome {
		case submit.OutcomeSubmitted:
			submitted++
			fmt.Printf("✓ applied to %s at %s\n", p.Title, p.Company)
			if !res.Recorded {
				fmt.Printf("  warning: message sent but not recorded: %v\n", res.Err)
			}
		case submit.OutcomeQuotaExceeded:
			fmt.Printf("Daily quota reached (%d/%d), stopping.\n", counter.Used(), counter.Limit())
			break loop
		case submit.OutcomeMissingContact:
			skipped++
			fmt.Printf("⊘ %s at %s: no contact email\n", p.Title, p.Company)
		case submit.OutcomeUnsupported:
			skipped++
			fmt.Printf("⊘ %s at %s: method %s not supported\n", p.Title, p.Company, method)
		case submit.OutcomeSendFailed:
			failed++
			fmt.Printf("✗ %s at %s: %v\n", p.Title, p.Company, res.Err)
		}
	}

	fmt.Printf("\n%d sent, %d skipped, %d failed (%d/%d today)\n",
		submitted, skipped, failed, counter.Used(), counter.Limit())
	return nil
}
