package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mgirault/postule/internal/lifecycle"
	"github.com/mgirault/postule/internal/model"
	"github.com/mgirault/postule/internal/store"
	"github.com/spf13/cobra"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Record what happened to an application",
	Long: `Records company replies, interviews, rejections and offers against an
application. Postings are addressed by ID or by company name.`,
}

var trackResponseCmd = &cobra.Command{
	Use:   "response <id|company>",
	Short: "Record a company reply",
	Args:  cobra.ExactArgs(1),
	Example: `  postule track response Acme --kind positive --note "recruiter call Friday"
  postule track response 4f1c9be2a07d3310 --kind negative`,
	RunE: runTrackResponse,
}

var trackInterviewCmd = &cobra.Command{
	Use:   "interview <id|company>",
	Short: "Schedule an interview",
	Args:  cobra.ExactArgs(1),
	Example: `  postule track interview Acme --date 2026-04-02 --time 14:30 --kind video
  postule track interview Acme --date 2026-04-10 --kind onsite --location "12 rue de la Paix, Paris"`,
	RunE: runTrackInterview,
}

var trackRejectCmd = &cobra.Command{
	Use:   "reject <id|company>",
	Short: "Record a rejection",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrackReject,
}

var trackOfferCmd = &cobra.Command{
	Use:   "offer <id|company>",
	Short: "Record an accepted offer",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrackOffer,
}

var trackNoteCmd = &cobra.Command{
	Use:   "note <id|company> <text>...",
	Short: "Add a free-form note",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTrackNote,
}

var trackShowCmd = &cobra.Command{
	Use:   "show <id|company>",
	Short: "Show one application in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrackShow,
}

func init() {
	rootCmd.AddCommand(trackCmd)
	trackCmd.AddCommand(trackResponseCmd)
	trackCmd.AddCommand(trackInterviewCmd)
	trackCmd.AddCommand(trackRejectCmd)
	trackCmd.AddCommand(trackOfferCmd)
	trackCmd.AddCommand(trackNoteCmd)
	trackCmd.AddCommand(trackShowCmd)

	trackResponseCmd.Flags().String("kind", "neutral", "reply tone (positive, negative, neutral)")
	trackResponseCmd.Flags().String("note", "", "what the company said")

	trackInterviewCmd.Flags().String("date", "", "interview date, YYYY-MM-DD")
	trackInterviewCmd.Flags().String("time", "", "interview time, e.g. 14:30")
	trackInterviewCmd.Flags().String("kind", "video", "interview format (phone, video, onsite)")
	trackInterviewCmd.Flags().String("location", "", "address or meeting link")
	trackInterviewCmd.MarkFlagRequired("date")

	trackRejectCmd.Flags().String("reason", "", "why it did not work out")

	trackOfferCmd.Flags().String("note", "", "offer details")
}

// withRecord opens the store, resolves key to a posting (by ID first, then
// by company name) and runs fn. NotFound coming back from fn means the
// posting has no application yet.
func withRecord(key string, fn func(ctx context.Context, t *lifecycle.Tracker, st model.Store, p model.Posting) error) error {
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
	p, err := resolvePosting(ctx, st, key)
	if err != nil {
		return err
	}

	if err := fn(ctx, lifecycle.New(st, logger), st, p); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("%s at %s has no application on file, apply first", p.Title, p.Company)
		}
		return err
	}
	return nil
}

func resolvePosting(ctx context.Context, st model.Store, key string) (model.Posting, error) {
	p, err := st.GetPosting(ctx, key)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.Posting{}, err
	}
	p, err = st.FindByCompany(ctx, key)
	if errors.Is(err, model.ErrNotFound) {
		return model.Posting{}, fmt.Errorf("no posting matches %q (tried id and company name)", key)
	}
	return p, err
}

func runTrackResponse(cmd *cobra.Command, args []string) error {
	kindFlag, _ := cmd.Flags().GetString("kind")
	note, _ := cmd.Flags().GetString("note")

	kind := model.ResponseKind(kindFlag)
	if !kind.Valid() {
		return fmt.Errorf("unknown response kind %q (positive, negative, neutral)", kindFlag)
	}

	return withRecord(args[0], func(ctx context.Context, t *lifecycle.Tracker, _ model.Store, p model.Posting) error {
		if err := t.RecordResponse(ctx, p.ID, kind, note); err != nil {
			return err
		}
		fmt.Printf("✓ response recorded for %s at %s\n", p.Title, p.Company)
		return nil
	})
}

func runTrackInterview(cmd *cobra.Command, args []string) error {
	dateFlag, _ := cmd.Flags().GetString("date")
	timeFlag, _ := cmd.Flags().GetString("time")
	kindFlag, _ := cmd.Flags().GetString("kind")
	location, _ := cmd.Flags().GetString("location")

	date, err := time.Parse("2006-01-02", dateFlag)
	if err != nil {
		return fmt.Errorf("invalid --date %q, want YYYY-MM-DD", dateFlag)
	}
	kind := model.InterviewKind(kindFlag)
	if !kind.Valid() {
		return fmt.Errorf("unknown interview kind %q (phone, video, onsite)", kindFlag)
	}

	iv := model.Interview{Date: date, Slot: timeFlag, Kind: kind, Location: location}
	return withRecord(args[0], func(ctx context.Context, t *lifecycle.Tracker, _ model.Store, p model.Posting) error {
		if err := t.ScheduleInterview(ctx, p.ID, iv); err != nil {
			return err
		}
		fmt.Printf("✓ interview on %s scheduled for %s at %s\n", dateFlag, p.Title, p.Company)
		return nil
	})
}

func runTrackReject(cmd *cobra.Command, args []string) error {
	reason, _ := cmd.Flags().GetString("reason")

	return withRecord(args[0], func(ctx context.Context, t *lifecycle.Tracker, _ model.Store, p model.Posting) error {
		if err := t.RecordRejection(ctx, p.ID, reason); err != nil {
			return err
		}
		fmt.Printf("✓ rejection recorded for %s at %s\n", p.Title, p.Company)
		return nil
	})
}

func runTrackOffer(cmd *cobra.Command, args []string) error {
	note, _ := cmd.Flags().GetString("note")

	return withRecord(args[0], func(ctx context.Context, t *lifecycle.Tracker, _ model.Store, p model.Posting) error {
		if err := t.RecordOffer(ctx, p.ID, note); err != nil {
			return err
		}
		fmt.Printf("✓ offer recorded for %s at %s\n", p.Title, p.Company)
		return nil
	})
}

func runTrackNote(cmd *cobra.Command, args []string) error {
	note := strings.Join(args[1:], " ")

	return withRecord(args[0], func(ctx context.Context, t *lifecycle.Tracker, _ model.Store, p model.Posting) error {
		if err := t.AddNote(ctx, p.ID, note); err != nil {
			return err
		}
		fmt.Printf("✓ note added to %s at %s\n", p.Title, p.Company)
		return nil
	})
}

func runTrackShow(cmd *cobra.Command, args []string) error {
	return withRecord(args[0], func(ctx context.Context, _ *lifecycle.Tracker, st model.Store, p model.Posting) error {
		app, err := st.GetApplication(ctx, p.ID)
		switch {
		case errors.Is(err, model.ErrNotFound):
			printRecord(p, nil)
		case err != nil:
			return err
		default:
			printRecord(p, &app)
		}
		return nil
	})
}

func printRecord(p model.Posting, app *model.Application) {
	field := func(label, value string) {
		if value != "" {
			fmt.Printf("%s %s\n", labelStyle.Render(label+":"), value)
		}
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("%s at %s", p.Title, p.Company)))
	status := model.StatusPending
	if app != nil {
		status = app.Status
	}
	field("Status", string(status))
	field("Board", p.Board)
	field("Location", p.Location)
	field("URL", p.URL)
	field("Discovered", p.DiscoveredAt.Format("2006-01-02"))
	if p.Contact.Email != nil {
		field("Contact Email", *p.Contact.Email)
	}
	if p.Contact.Phone != nil {
		field("Contact Phone", *p.Contact.Phone)
	}

	if app == nil {
		return
	}
	field("Method", string(app.Method))
	field("Applied", app.AppliedAt.Format("2006-01-02 15:04"))
	if app.ContactedAt != nil {
		field("Contacted", app.ContactedAt.Format("2006-01-02 15:04"))
	}
	if app.ResponseKind != nil {
		field("Response", string(*app.ResponseKind))
	}
	if app.ResponseNote != nil {
		field("Response Note", *app.ResponseNote)
	}
	if app.Interview != nil {
		iv := app.Interview
		detail := iv.Date.Format("2006-01-02")
		if iv.Slot != "" {
			detail += " " + iv.Slot
		}
		detail += fmt.Sprintf(" (%s)", iv.Kind)
		if iv.Location != "" {
			detail += " at " + iv.Location
		}
		field("Interview", detail)
	}
	if app.RejectionReason != nil {
		field("Rejected For", *app.RejectionReason)
	}
	if app.Notes != nil {
		field("Notes", *app.Notes)
	}
}
