package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mgirault/postule/internal/model"
)

const (
	postingCols = "id, title, company, location, description, salary_min, salary_max, board, url, " +
		"posted_at, discovered_at, contact_email, contact_phone, contact_website, has_contact_page"
	applicationCols = "posting_id, method, status, applied_at, contacted_at, response_kind, response_note, " +
		"interview_date, interview_slot, interview_kind, interview_location, notes, rejection_reason, last_updated"
)

var (
	prefixedPostingCols     = prefixCols("p", postingCols)
	prefixedApplicationCols = prefixCols("a", applicationCols)
)

func prefixCols(prefix, cols string) string {
	parts := strings.Split(cols, ", ")
	for i, c := range parts {
		parts[i] = prefix + "." + c
	}
	return strings.Join(parts, ", ")
}

// dbTime renders t as UTC RFC3339 at second precision. The fixed width
// keeps lexicographic order aligned with chronological order in SQL
// comparisons.
func dbTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

func parseDBTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored time %q: %w", s, err)
	}
	return t, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return dbTime(*t)
}

func nullStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullRespKind(k *model.ResponseKind) any {
	if k == nil {
		return nil
	}
	return string(*k)
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseDBTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

type postingRow struct {
	id, title, company, location, description string
	salaryMin, salaryMax                      sql.NullFloat64
	board, url                                string
	postedAt                                  sql.NullString
	discoveredAt                              string
	email, phone, website                     sql.NullString
	hasContactPage                            bool
}

func (r *postingRow) dests() []any {
	return []any{
		&r.id, &r.title, &r.company, &r.location, &r.description,
		&r.salaryMin, &r.salaryMax, &r.board, &r.url,
		&r.postedAt, &r.discoveredAt, &r.email, &r.phone, &r.website, &r.hasContactPage,
	}
}

func (r *postingRow) toModel() (model.Posting, error) {
	p := model.Posting{
		ID:          r.id,
		Title:       r.title,
		Company:     r.company,
		Location:    r.location,
		Description: r.description,
		Board:       r.board,
		URL:         r.url,
		Contact: model.ContactInfo{
			Email:          strPtr(r.email),
			Phone:          strPtr(r.phone),
			Website:        strPtr(r.website),
			HasContactPage: r.hasContactPage,
		},
	}
	if r.salaryMin.Valid || r.salaryMax.Valid {
		p.Salary = &model.SalaryRange{Min: r.salaryMin.Float64, Max: r.salaryMax.Float64}
	}
	var err error
	if p.PostedAt, err = timePtr(r.postedAt); err != nil {
		return model.Posting{}, err
	}
	if p.DiscoveredAt, err = parseDBTime(r.discoveredAt); err != nil {
		return model.Posting{}, err
	}
	return p, nil
}

// appRow scans with every column nullable so it also serves the LEFT JOIN
// in Query, where a posting may have no application.
type appRow struct {
	postingID, method, status, appliedAt sql.NullString
	contactedAt, respKind, respNote      sql.NullString
	ivDate, ivSlot, ivKind, ivLocation   sql.NullString
	notes, rejection, lastUpdated        sql.NullString
}

func (r *appRow) dests() []any {
	return []any{
		&r.postingID, &r.method, &r.status, &r.appliedAt, &r.contactedAt,
		&r.respKind, &r.respNote, &r.ivDate, &r.ivSlot, &r.ivKind, &r.ivLocation,
		&r.notes, &r.rejection, &r.lastUpdated,
	}
}

func (r *appRow) present() bool {
	return r.postingID.Valid
}

func (r *appRow) toModel() (model.Application, error) {
	app := model.Application{
		PostingID:       r.postingID.String,
		Method:          model.Method(r.method.String),
		Status:          model.Status(r.status.String),
		ResponseNote:    strPtr(r.respNote),
		Notes:           strPtr(r.notes),
		RejectionReason: strPtr(r.rejection),
	}
	var err error
	if app.AppliedAt, err = parseDBTime(r.appliedAt.String); err != nil {
		return model.Application{}, err
	}
	if app.LastUpdated, err = parseDBTime(r.lastUpdated.String); err != nil {
		return model.Application{}, err
	}
	if app.ContactedAt, err = timePtr(r.contactedAt); err != nil {
		return model.Application{}, err
	}
	if r.respKind.Valid {
		k := model.ResponseKind(r.respKind.String)
		app.ResponseKind = &k
	}
	if r.ivDate.Valid {
		date, err := parseDBTime(r.ivDate.String)
		if err != nil {
			return model.Application{}, err
		}
		app.Interview = &model.Interview{
			Date:     date,
			Slot:     r.ivSlot.String,
			Kind:     model.InterviewKind(r.ivKind.String),
			Location: r.ivLocation.String,
		}
	}
	return app, nil
}

func scanPosting(row rowScanner) (model.Posting, error) {
	var pr postingRow
	if err := row.Scan(pr.dests()...); err != nil {
		return model.Posting{}, err
	}
	return pr.toModel()
}

func scanApplication(row rowScanner) (model.Application, error) {
	var ar appRow
	if err := row.Scan(ar.dests()...); err != nil {
		return model.Application{}, err
	}
	return ar.toModel()
}

func scanRecord(row rowScanner) (model.Record, error) {
	var (
		pr postingRow
		ar appRow
	)
	if err := row.Scan(append(pr.dests(), ar.dests()...)...); err != nil {
		return model.Record{}, err
	}
	p, err := pr.toModel()
	if err != nil {
		return model.Record{}, err
	}
	rec := model.Record{Posting: p}
	if ar.present() {
		app, err := ar.toModel()
		if err != nil {
			return model.Record{}, err
		}
		rec.Application = &app
	}
	return rec, nil
}

func getPostingTx(ctx context.Context, tx *sql.Tx, id string) (model.Posting, error) {
	return scanPosting(tx.QueryRowContext(ctx, `SELECT `+postingCols+` FROM postings WHERE id = ?`, id))
}

func insertApplicationTx(ctx context.Context, tx *sql.Tx, app model.Application) error {
	var ivDate, ivSlot, ivKind, ivLocation any
	if app.Interview != nil {
		ivDate = dbTime(app.Interview.Date)
		ivSlot = app.Interview.Slot
		ivKind = string(app.Interview.Kind)
		ivLocation = app.Interview.Location
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO applications (`+applicationCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		app.PostingID, string(app.Method), string(app.Status), dbTime(app.AppliedAt),
		nullTime(app.ContactedAt), nullRespKind(app.ResponseKind), nullStr(app.ResponseNote),
		ivDate, ivSlot, ivKind, ivLocation,
		nullStr(app.Notes), nullStr(app.RejectionReason), dbTime(app.LastUpdated),
	)
	return err
}
