// Package stats computes read-only summaries over the store for the
// status command and the xlsx reports.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/mgirault/postule/internal/model"
)

// Aggregator derives summary numbers from store queries. It never writes.
type Aggregator struct {
	store model.Store
}

// New returns an Aggregator reading from store.
func New(store model.Store) *Aggregator {
	return &Aggregator{store: store}
}

// Summary is the status breakdown across every tracked posting.
type Summary struct {
	TotalPostings int
	Applications  int
	ByStatus      map[model.Status]int
}

// Pending counts postings not yet applied to.
func (s Summary) Pending() int {
	return s.ByStatus[model.StatusPending]
}

// Responded counts applications that moved beyond sent.
func (s Summary) Responded() int {
	return s.ByStatus[model.StatusContacted] +
		s.ByStatus[model.StatusInterview] +
		s.ByStatus[model.StatusRejected] +
		s.ByStatus[model.StatusAccepted]
}

// ResponseRate is the percentage of applications that drew any reply.
func (s Summary) ResponseRate() float64 {
	if s.Applications == 0 {
		return 0
	}
	return float64(s.Responded()) / float64(s.Applications) * 100
}

// Summary tallies every stored record in a single pass, so the counts
// are consistent with each other even while other commands write.
func (a *Aggregator) Summary(ctx context.Context) (Summary, error) {
	records, err := a.store.Query(ctx, model.QueryFilter{})
	if err != nil {
		return Summary{}, fmt.Errorf("loading records: %w", err)
	}
	s := Summary{
		TotalPostings: len(records),
		ByStatus:      make(map[model.Status]int),
	}
	for _, r := range records {
		s.ByStatus[r.Status()]++
		if r.Application != nil {
			s.Applications++
		}
	}
	return s, nil
}

// Weekly is the activity tally for the seven days before a chosen instant.
type Weekly struct {
	WeekStart    time.Time
	Applications int // submissions inside the window
	Responses    int // replies received inside the window
	Interviews   int // window responders with an interview on the books
	Rejections   int // window responders now rejected
	Offers       int // window responders now accepted
}

// ResponseRate is the percentage of the window's submissions that drew a
// reply. Replies to older applications count too, so the rate can pass 100.
func (w Weekly) ResponseRate() float64 {
	if w.Applications == 0 {
		return 0
	}
	return float64(w.Responses) / float64(w.Applications) * 100
}

// Weekly tallies the seven days before now. Responses are dated by
// ContactedAt, so only applications with a recorded company reply count.
func (a *Aggregator) Weekly(ctx context.Context, now time.Time) (Weekly, error) {
	weekAgo := now.UTC().AddDate(0, 0, -7)
	records, err := a.store.Query(ctx, model.QueryFilter{})
	if err != nil {
		return Weekly{}, fmt.Errorf("loading records: %w", err)
	}
	w := Weekly{WeekStart: weekAgo}
	for _, r := range records {
		app := r.Application
		if app == nil {
			continue
		}
		if !app.AppliedAt.Before(weekAgo) {
			w.Applications++
		}
		if app.ContactedAt == nil || app.ContactedAt.Before(weekAgo) {
			continue
		}
		w.Responses++
		if app.Interview != nil {
			w.Interviews++
		}
		switch app.Status {
		case model.StatusRejected:
			w.Rejections++
		case model.StatusAccepted:
			w.Offers++
		}
	}
	return w, nil
}

// UpcomingInterviews returns records with an interview on or after now,
// soonest first. Status is not filtered: a record that was rejected after
// scheduling still appears, with its status visible on the record.
func (a *Aggregator) UpcomingInterviews(ctx context.Context, now time.Time) ([]model.Record, error) {
	after := now.UTC()
	records, err := a.store.Query(ctx, model.QueryFilter{
		InterviewAfter: &after,
		Order:          model.OrderInterviewAsc,
	})
	if err != nil {
		return nil, fmt.Errorf("loading interviews: %w", err)
	}
	return records, nil
}

// Contacts returns postings holding a mined contact email, for follow-up
// and the contacts report.
func (a *Aggregator) Contacts(ctx context.Context) ([]model.Record, error) {
	records, err := a.store.Query(ctx, model.QueryFilter{HasContactEmail: true})
	if err != nil {
		return nil, fmt.Errorf("loading contacts: %w", err)
	}
	return records, nil
}

// Records returns every tracked record, newest application first.
func (a *Aggregator) Records(ctx context.Context) ([]model.Record, error) {
	records, err := a.store.Query(ctx, model.QueryFilter{})
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}
	return records, nil
}
