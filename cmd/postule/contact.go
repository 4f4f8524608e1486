package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mgirault/postule/internal/enrich"
	"github.com/mgirault/postule/internal/extract"
	"github.com/mgirault/postule/internal/store"
	"github.com/spf13/cobra"
)

var contactCmd = &cobra.Command{
	Use:   "contact <id|company>",
	Short: "Mine contact info for one company",
	Long: `Fetches the company website, follows its contact page if one exists,
and stores any email addresses and phone numbers found on the posting.
Fields already on file are kept.`,
	Args: cobra.ExactArgs(1),
	Example: `  postule contact Acme
  postule contact Acme --website https://acme.example`,
	RunE: runContact,
}

func init() {
	rootCmd.AddCommand(contactCmd)
	contactCmd.Flags().String("website", "", "company website URL (default: the posting's known website)")
}

func runContact(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	website, _ := cmd.Flags().GetString("website")

	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := resolvePosting(ctx, st, args[0])
	if err != nil {
		return err
	}

	if website == "" {
		if p.Contact.Website == nil {
			return fmt.Errorf("no website on file for %s, pass --website", p.Company)
		}
		website = *p.Contact.Website
	}

	httpClient := &http.Client{Timeout: cfg.Ingest.Timeout}
	opts := extract.Options{
		NoiseTokens: cfg.Ingest.NoiseTokens,
		MaxEmails:   cfg.Ingest.MaxEmails,
		MaxPhones:   cfg.Ingest.MaxPhones,
	}
	enricher := enrich.New(enrich.NewHTTPFetcher(httpClient), opts, cfg.Ingest.Timeout, logger)

	info, err := enricher.Enrich(ctx, website)
	if err != nil {
		return fmt.Errorf("mining %s: %w", website, err)
	}

	p.Contact = p.Contact.Merged(info)
	stored, _, err := st.UpsertPosting(ctx, p)
	if err != nil {
		return fmt.Errorf("saving contact info: %w", err)
	}

	fmt.Println(titleStyle.Render("Contact info for " + stored.Company))
	c := stored.Contact
	if c.Email == nil && c.Phone == nil && !c.HasContactPage {
		fmt.Println("  nothing found")
		return nil
	}
	if c.Email != nil {
		fmt.Printf("  %s %s\n", labelStyle.Render("Email:"), *c.Email)
	}
	if c.Phone != nil {
		fmt.Printf("  %s %s\n", labelStyle.Render("Phone:"), *c.Phone)
	}
	if c.Website != nil {
		fmt.Printf("  %s %s\n", labelStyle.Render("Website:"), *c.Website)
	}
	if c.HasContactPage {
		fmt.Printf("  %s found\n", labelStyle.Render("Contact Page:"))
	}
	return nil
}
