// Package store persists postings and applications. Two implementations
// share the model.Store contract: SQLiteStore for durable storage and
// MemoryStore for tests and dry runs.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mgirault/postule/internal/model"
)

// SQLiteStore is the durable store. Transactions open with an immediate
// write lock so writers racing on the same posting serialize instead of
// failing mid-transaction.
type SQLiteStore struct {
	db *sql.DB
}

var _ model.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at dbPath and ensures the
// schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf(
		"file:%s?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		dbPath,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS postings (
			id               TEXT PRIMARY KEY,
			title            TEXT NOT NULL,
			company          TEXT NOT NULL,
			location         TEXT NOT NULL DEFAULT '',
			description      TEXT NOT NULL DEFAULT '',
			salary_min       REAL,
			salary_max       REAL,
			board            TEXT NOT NULL DEFAULT '',
			url              TEXT NOT NULL UNIQUE,
			posted_at        TEXT,
			discovered_at    TEXT NOT NULL,
			contact_email    TEXT,
			contact_phone    TEXT,
			contact_website  TEXT,
			has_contact_page INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS applications (
			posting_id         TEXT PRIMARY KEY REFERENCES postings(id),
			method             TEXT NOT NULL,
			status             TEXT NOT NULL,
			applied_at         TEXT NOT NULL,
			contacted_at       TEXT,
			response_kind      TEXT,
			response_note      TEXT,
			interview_date     TEXT,
			interview_slot     TEXT,
			interview_kind     TEXT,
			interview_location TEXT,
			notes              TEXT,
			rejection_reason   TEXT,
			last_updated       TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_postings_company ON postings(company COLLATE NOCASE)`,
		`CREATE INDEX IF NOT EXISTS idx_applications_status ON applications(status)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// UpsertPosting inserts p or merges its contact fields into the existing
// record with the same ID. Title, company and URL are never overwritten.
func (s *SQLiteStore) UpsertPosting(ctx context.Context, p model.Posting) (model.Posting, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Posting{}, false, fmt.Errorf("upserting posting %s: %w", p.ID, err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	existing, err := getPostingTx(ctx, tx, p.ID)
	switch {
	case err == nil:
		merged := existing.Contact.Merged(p.Contact)
		_, err = tx.ExecContext(ctx,
			`UPDATE postings SET contact_email = ?, contact_phone = ?, contact_website = ?, has_contact_page = ? WHERE id = ?`,
			nullStr(merged.Email), nullStr(merged.Phone), nullStr(merged.Website), merged.HasContactPage, p.ID,
		)
		if err != nil {
			return model.Posting{}, false, fmt.Errorf("merging posting %s: %w", p.ID, err)
		}
		if err := tx.Commit(); err != nil {
			return model.Posting{}, false, fmt.Errorf("merging posting %s: %w", p.ID, err)
		}
		committed = true
		existing.Contact = merged
		return existing, false, nil

	case err == sql.ErrNoRows:
		var salaryMin, salaryMax any
		if p.Salary != nil {
			salaryMin, salaryMax = p.Salary.Min, p.Salary.Max
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO postings (id, title, company, location, description, salary_min, salary_max,
				board, url, posted_at, discovered_at, contact_email, contact_phone, contact_website, has_contact_page)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Title, p.Company, p.Location, p.Description, salaryMin, salaryMax,
			p.Board, p.URL, nullTime(p.PostedAt), dbTime(p.DiscoveredAt),
			nullStr(p.Contact.Email), nullStr(p.Contact.Phone), nullStr(p.Contact.Website), p.Contact.HasContactPage,
		)
		if err != nil {
			return model.Posting{}, false, fmt.Errorf("inserting posting %s: %w", p.ID, err)
		}
		if err := tx.Commit(); err != nil {
			return model.Posting{}, false, fmt.Errorf("inserting posting %s: %w", p.ID, err)
		}
		committed = true
		return p, true, nil

	default:
		return model.Posting{}, false, fmt.Errorf("upserting posting %s: %w", p.ID, err)
	}
}

// GetPosting returns the posting with the given ID, or ErrNotFound.
func (s *SQLiteStore) GetPosting(ctx context.Context, id string) (model.Posting, error) {
	p, err := scanPosting(s.db.QueryRowContext(ctx, `SELECT `+postingCols+` FROM postings WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return model.Posting{}, fmt.Errorf("posting %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Posting{}, fmt.Errorf("getting posting %s: %w", id, err)
	}
	return p, nil
}

// FindByCompany returns the most recently discovered posting for the
// company, matched case-insensitively, or ErrNotFound.
func (s *SQLiteStore) FindByCompany(ctx context.Context, name string) (model.Posting, error) {
	p, err := scanPosting(s.db.QueryRowContext(ctx,
		`SELECT `+postingCols+` FROM postings WHERE company = ? COLLATE NOCASE ORDER BY discovered_at DESC, id LIMIT 1`,
		name,
	))
	if err == sql.ErrNoRows {
		return model.Posting{}, fmt.Errorf("company %q: %w", name, model.ErrNotFound)
	}
	if err != nil {
		return model.Posting{}, fmt.Errorf("finding posting for %q: %w", name, err)
	}
	return p, nil
}

// CreateApplication attaches app to the posting, exactly once. A racing
// loser observes ErrAlreadyExists after the winner commits.
func (s *SQLiteStore) CreateApplication(ctx context.Context, postingID string, app model.Application) error {
	if app.Status != model.StatusSent {
		return fmt.Errorf("new application must start as %s: %w", model.StatusSent, model.ErrInvalidTransition)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("creating application for %s: %w", postingID, err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM postings WHERE id = ?`, postingID).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("posting %s: %w", postingID, model.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("creating application for %s: %w", postingID, err)
	}

	err = tx.QueryRowContext(ctx, `SELECT 1 FROM applications WHERE posting_id = ?`, postingID).Scan(&one)
	if err == nil {
		return fmt.Errorf("application for %s: %w", postingID, model.ErrAlreadyExists)
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("creating application for %s: %w", postingID, err)
	}

	app.PostingID = postingID
	app.LastUpdated = time.Now().UTC()
	if err := insertApplicationTx(ctx, tx, app); err != nil {
		return fmt.Errorf("creating application for %s: %w", postingID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("creating application for %s: %w", postingID, err)
	}
	committed = true
	return nil
}

// GetApplication returns the application for the posting, or ErrNotFound.
func (s *SQLiteStore) GetApplication(ctx context.Context, postingID string) (model.Application, error) {
	app, err := scanApplication(s.db.QueryRowContext(ctx,
		`SELECT `+applicationCols+` FROM applications WHERE posting_id = ?`, postingID))
	if err == sql.ErrNoRows {
		return model.Application{}, fmt.Errorf("application for %s: %w", postingID, model.ErrNotFound)
	}
	if err != nil {
		return model.Application{}, fmt.Errorf("getting application for %s: %w", postingID, err)
	}
	return app, nil
}

// UpdateApplication applies a partial update inside one transaction. A
// status change is checked against the transition table while the write
// lock is held, so racing updates cannot skip states.
func (s *SQLiteStore) UpdateApplication(ctx context.Context, postingID string, update model.ApplicationUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("updating application for %s: %w", postingID, err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	app, err := scanApplication(tx.QueryRowContext(ctx,
		`SELECT `+applicationCols+` FROM applications WHERE posting_id = ?`, postingID))
	if err == sql.ErrNoRows {
		return fmt.Errorf("application for %s: %w", postingID, model.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("updating application for %s: %w", postingID, err)
	}

	if update.Status != nil && !app.Status.CanTransitionTo(*update.Status) {
		return fmt.Errorf("application for %s: %s -> %s: %w",
			postingID, app.Status, *update.Status, model.ErrInvalidTransition)
	}
	app = app.Apply(update)
	app.LastUpdated = time.Now().UTC()

	var interviewDate, interviewSlot, interviewKind, interviewLocation any
	if app.Interview != nil {
		interviewDate = dbTime(app.Interview.Date)
		interviewSlot = app.Interview.Slot
		interviewKind = string(app.Interview.Kind)
		interviewLocation = app.Interview.Location
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE applications SET status = ?, contacted_at = ?, response_kind = ?, response_note = ?,
			interview_date = ?, interview_slot = ?, interview_kind = ?, interview_location = ?,
			notes = ?, rejection_reason = ?, last_updated = ?
		 WHERE posting_id = ?`,
		string(app.Status), nullTime(app.ContactedAt), nullRespKind(app.ResponseKind), nullStr(app.ResponseNote),
		interviewDate, interviewSlot, interviewKind, interviewLocation,
		nullStr(app.Notes), nullStr(app.RejectionReason), dbTime(app.LastUpdated),
		postingID,
	)
	if err != nil {
		return fmt.Errorf("updating application for %s: %w", postingID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("updating application for %s: %w", postingID, err)
	}
	committed = true
	return nil
}

// Query returns records matching the filter, postings joined with their
// application when one exists.
func (s *SQLiteStore) Query(ctx context.Context, filter model.QueryFilter) ([]model.Record, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.Statuses) > 0 {
		var parts []string
		for _, st := range filter.Statuses {
			if st == model.StatusPending {
				parts = append(parts, "a.posting_id IS NULL")
				continue
			}
			parts = append(parts, "a.status = ?")
			args = append(args, string(st))
		}
		where = append(where, "("+strings.Join(parts, " OR ")+")")
	}
	if filter.Company != "" {
		where = append(where, "p.company = ? COLLATE NOCASE")
		args = append(args, filter.Company)
	}
	if filter.Board != "" {
		where = append(where, "p.board = ?")
		args = append(args, filter.Board)
	}
	if filter.AppliedSince != nil {
		where = append(where, "a.applied_at >= ?")
		args = append(args, dbTime(*filter.AppliedSince))
	}
	if filter.InterviewAfter != nil {
		where = append(where, "a.interview_date >= ?")
		args = append(args, dbTime(*filter.InterviewAfter))
	}
	if filter.HasContactEmail {
		where = append(where, "p.contact_email IS NOT NULL")
	}

	query := `SELECT ` + prefixedPostingCols + `, ` + prefixedApplicationCols + `
		FROM postings p LEFT JOIN applications a ON a.posting_id = p.id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	switch filter.Order {
	case model.OrderInterviewAsc:
		query += " ORDER BY a.interview_date IS NULL, a.interview_date ASC, p.discovered_at DESC"
	default:
		query += " ORDER BY a.applied_at IS NULL, a.applied_at DESC, p.discovered_at DESC, p.id"
	}
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("querying records: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	return records, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
