// Package report writes xlsx workbooks summarizing tracked applications.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mgirault/postule/internal/model"
	"github.com/mgirault/postule/internal/stats"
)

const (
	dateLayout  = "2006-01-02"
	stampLayout = "2006-01-02 15:04"
)

// Writer renders store records into workbooks under a reports directory.
type Writer struct {
	agg    *stats.Aggregator
	dir    string
	logger *slog.Logger
}

// NewWriter returns a Writer saving workbooks into dir.
func NewWriter(agg *stats.Aggregator, dir string, logger *slog.Logger) *Writer {
	return &Writer{agg: agg, dir: dir, logger: logger}
}

// WriteAll produces the four standard workbooks and returns their paths.
func (w *Writer) WriteAll(ctx context.Context, now time.Time) ([]string, error) {
	var paths []string
	writers := []func() (string, error){
		func() (string, error) { return w.Applications(ctx) },
		func() (string, error) { return w.Contacts(ctx) },
		func() (string, error) { return w.Interviews(ctx, now) },
		func() (string, error) { return w.WeeklySummary(ctx, now) },
	}
	for _, write := range writers {
		path, err := write()
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Applications writes every tracked record, one row per posting, with the
// application columns blank for postings not yet applied to.
func (w *Writer) Applications(ctx context.Context) (string, error) {
	records, err := w.agg.Records(ctx)
	if err != nil {
		return "", fmt.Errorf("applications report: %w", err)
	}
	rows := [][]any{{
		"Company Name", "Job Title", "Location", "Job Board", "Posted Date",
		"Date Applied", "Application Status", "Date Contacted", "Response Type",
		"Interview Scheduled", "Interview Date", "Interview Type",
		"Company Email", "Company Phone", "Notes",
	}}
	for _, r := range records {
		rows = append(rows, applicationRow(r))
	}
	return w.save("all_applications.xlsx", "Applications", rows)
}

// Contacts writes postings with a mined contact email.
func (w *Writer) Contacts(ctx context.Context) (string, error) {
	records, err := w.agg.Contacts(ctx)
	if err != nil {
		return "", fmt.Errorf("contacts report: %w", err)
	}
	rows := [][]any{{
		"Company Name", "Contact Email", "Contact Phone", "Company Website",
		"Last Updated",
	}}
	for _, r := range records {
		lastUpdated := ""
		if r.Application != nil {
			lastUpdated = r.Application.LastUpdated.Format(stampLayout)
		}
		rows = append(rows, []any{
			r.Posting.Company,
			optStr(r.Posting.Contact.Email),
			optStr(r.Posting.Contact.Phone),
			optStr(r.Posting.Contact.Website),
			lastUpdated,
		})
	}
	return w.save("company_contacts.xlsx", "Contacts", rows)
}

// Interviews writes the upcoming interview schedule, soonest first.
func (w *Writer) Interviews(ctx context.Context, now time.Time) (string, error) {
	records, err := w.agg.UpcomingInterviews(ctx, now)
	if err != nil {
		return "", fmt.Errorf("interview schedule: %w", err)
	}
	rows := [][]any{{
		"Company Name", "Job Title", "Interview Date", "Interview Time",
		"Interview Type", "Interview Location", "Contact Email",
		"Contact Phone", "Notes",
	}}
	for _, r := range records {
		iv := r.Application.Interview
		rows = append(rows, []any{
			r.Posting.Company,
			r.Posting.Title,
			iv.Date.Format(dateLayout),
			iv.Slot,
			string(iv.Kind),
			iv.Location,
			optStr(r.Posting.Contact.Email),
			optStr(r.Posting.Contact.Phone),
			optStr(r.Application.Notes),
		})
	}
	return w.save("interview_schedule.xlsx", "Interviews", rows)
}

// WeeklySummary writes the rolling seven-day tally as a one-row sheet.
func (w *Writer) WeeklySummary(ctx context.Context, now time.Time) (string, error) {
	weekly, err := w.agg.Weekly(ctx, now)
	if err != nil {
		return "", fmt.Errorf("weekly report: %w", err)
	}
	rows := [][]any{
		{
			"Week Starting", "Applications Sent", "Responses Received",
			"Response Rate", "Interviews Scheduled", "Rejections", "Offers",
		},
		{
			weekly.WeekStart.Format(dateLayout),
			weekly.Applications,
			weekly.Responses,
			fmt.Sprintf("%.1f%%", weekly.ResponseRate()),
			weekly.Interviews,
			weekly.Rejections,
			weekly.Offers,
		},
	}
	return w.save("weekly_report.xlsx", "Weekly", rows)
}

func (w *Writer) save(name, sheet string, rows [][]any) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating reports dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return "", fmt.Errorf("naming sheet %s: %w", sheet, err)
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return "", fmt.Errorf("addressing row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return "", fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	path := filepath.Join(w.dir, name)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("saving %s: %w", name, err)
	}
	w.logger.Info("report written", "path", path, "rows", len(rows)-1)
	return path, nil
}

func applicationRow(r model.Record) []any {
	p := r.Posting
	row := []any{p.Company, p.Title, p.Location, p.Board, optStamp(p.PostedAt)}

	app := r.Application
	if app == nil {
		return append(row,
			"", string(model.StatusPending), "", "", false, "", "",
			optStr(p.Contact.Email), optStr(p.Contact.Phone), "",
		)
	}

	responseKind := ""
	if app.ResponseKind != nil {
		responseKind = string(*app.ResponseKind)
	}
	interviewDate, interviewKind := "", ""
	if app.Interview != nil {
		interviewDate = app.Interview.Date.Format(dateLayout)
		interviewKind = string(app.Interview.Kind)
	}
	return append(row,
		app.AppliedAt.Format(stampLayout),
		string(app.Status),
		optStamp(app.ContactedAt),
		responseKind,
		app.Interview != nil,
		interviewDate,
		interviewKind,
		optStr(p.Contact.Email),
		optStr(p.Contact.Phone),
		optStr(app.Notes),
	)
}

func optStr(p *string) any {
	if p == nil {
		return ""
	}
	return *p
}

func optStamp(t *time.Time) any {
	if t == nil {
		return ""
	}
	return t.Format(stampLayout)
}
