package model

import (
	"context"
	"strings"
	"time"
)

// Store owns all Posting and Application records. Implementations must be
// safe for concurrent callers; writes touching the same posting ID
// serialize, so racing creates resolve to one winner and ErrAlreadyExists
// for the rest.
type Store interface {
	// UpsertPosting inserts p or merges it into the stored record with the
	// same ID. Title, company and URL of an existing record are never
	// overwritten; nil contact fields are filled from p. Returns the stored
	// record and whether it was newly created.
	UpsertPosting(ctx context.Context, p Posting) (Posting, bool, error)

	// GetPosting returns the posting with the given ID, or ErrNotFound.
	GetPosting(ctx context.Context, id string) (Posting, error)

	// FindByCompany returns the most recently discovered posting whose
	// company matches name (case-insensitive), or ErrNotFound.
	FindByCompany(ctx context.Context, name string) (Posting, error)

	// CreateApplication attaches app to the posting. Fails with
	// ErrAlreadyExists if an application exists for that posting, and with
	// ErrNotFound if the posting is unknown.
	CreateApplication(ctx context.Context, postingID string, app Application) error

	// GetApplication returns the application for the posting, or ErrNotFound.
	GetApplication(ctx context.Context, postingID string) (Application, error)

	// UpdateApplication applies a partial update. A status change is
	// validated against the transition table in the same atomic step; an
	// illegal one fails with ErrInvalidTransition and changes nothing.
	// LastUpdated is refreshed on every successful update.
	UpdateApplication(ctx context.Context, postingID string, update ApplicationUpdate) error

	// Query returns records matching the filter, ordered per filter.Order.
	Query(ctx context.Context, filter QueryFilter) ([]Record, error)

	Close() error
}

// Record pairs a Posting with its Application, if one exists.
type Record struct {
	Posting     Posting
	Application *Application
}

// Status is the record's effective lifecycle state: StatusPending until an
// application exists, the application's status afterwards.
func (r Record) Status() Status {
	if r.Application == nil {
		return StatusPending
	}
	return r.Application.Status
}

// QueryOrder selects the sort order of Query results.
type QueryOrder int

const (
	// OrderAppliedDesc sorts newest application first; postings without an
	// application sort after those with one, newest discovery first.
	OrderAppliedDesc QueryOrder = iota
	// OrderInterviewAsc sorts soonest interview first.
	OrderInterviewAsc
)

// QueryFilter narrows a Query. The zero value matches every record.
type QueryFilter struct {
	Statuses        []Status   // empty = all; StatusPending selects postings without an application
	Company         string     // exact match, case-insensitive
	Board           string     // exact match
	AppliedSince    *time.Time // only applications on/after this instant
	InterviewAfter  *time.Time // only records with an interview on/after this instant
	HasContactEmail bool       // only postings with a mined contact email
	Order           QueryOrder
	Limit           int // 0 = unlimited
}

// Matches reports whether the record passes every set field of f.
// Ordering and Limit are applied by the store, not here.
func (f QueryFilter) Matches(r Record) bool {
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if r.Status() == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.Company != "" && !strings.EqualFold(r.Posting.Company, f.Company) {
		return false
	}
	if f.Board != "" && r.Posting.Board != f.Board {
		return false
	}
	if f.AppliedSince != nil {
		if r.Application == nil || r.Application.AppliedAt.Before(*f.AppliedSince) {
			return false
		}
	}
	if f.InterviewAfter != nil {
		if r.Application == nil || r.Application.Interview == nil ||
			r.Application.Interview.Date.Before(*f.InterviewAfter) {
			return false
		}
	}
	if f.HasContactEmail && r.Posting.Contact.Email == nil {
		return false
	}
	return true
}

// Message is an outbound application message.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers an outbound message. Implementations wrap transport
// failures in *SendError.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// FormAutomator drives a site's application form or platform flow.
// No implementation ships; submissions by form or platform report
// Unsupported unless one is injected.
type FormAutomator interface {
	Submit(ctx context.Context, p Posting) error
}
