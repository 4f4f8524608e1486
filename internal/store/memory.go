package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mgirault/postule/internal/model"
)

// MemoryStore keeps everything in process memory. It backs tests and dry
// runs with the same contract as SQLiteStore. Records are copied on the
// way in and out, so callers never share memory with the store.
type MemoryStore struct {
	mu           sync.Mutex
	postings     map[string]model.Posting
	applications map[string]model.Application
}

var _ model.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		postings:     make(map[string]model.Posting),
		applications: make(map[string]model.Application),
	}
}

func (s *MemoryStore) UpsertPosting(_ context.Context, p model.Posting) (model.Posting, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.postings[p.ID]
	if !ok {
		s.postings[p.ID] = clonePosting(p)
		return p, true, nil
	}
	existing.Contact = existing.Contact.Merged(p.Contact)
	s.postings[p.ID] = existing
	return clonePosting(existing), false, nil
}

func (s *MemoryStore) GetPosting(_ context.Context, id string) (model.Posting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.postings[id]
	if !ok {
		return model.Posting{}, fmt.Errorf("posting %s: %w", id, model.ErrNotFound)
	}
	return clonePosting(p), nil
}

func (s *MemoryStore) FindByCompany(_ context.Context, name string) (model.Posting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		best  model.Posting
		found bool
	)
	for _, p := range s.postings {
		if !strings.EqualFold(p.Company, name) {
			continue
		}
		if !found || p.DiscoveredAt.After(best.DiscoveredAt) ||
			(p.DiscoveredAt.Equal(best.DiscoveredAt) && p.ID < best.ID) {
			best = p
			found = true
		}
	}
	if !found {
		return model.Posting{}, fmt.Errorf("company %q: %w", name, model.ErrNotFound)
	}
	return clonePosting(best), nil
}

func (s *MemoryStore) CreateApplication(_ context.Context, postingID string, app model.Application) error {
	if app.Status != model.StatusSent {
		return fmt.Errorf("new application must start as %s: %w", model.StatusSent, model.ErrInvalidTransition)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.postings[postingID]; !ok {
		return fmt.Errorf("posting %s: %w", postingID, model.ErrNotFound)
	}
	if _, ok := s.applications[postingID]; ok {
		return fmt.Errorf("application for %s: %w", postingID, model.ErrAlreadyExists)
	}
	app.PostingID = postingID
	app.LastUpdated = time.Now().UTC()
	s.applications[postingID] = cloneApplication(app)
	return nil
}

func (s *MemoryStore) GetApplication(_ context.Context, postingID string) (model.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.applications[postingID]
	if !ok {
		return model.Application{}, fmt.Errorf("application for %s: %w", postingID, model.ErrNotFound)
	}
	return cloneApplication(app), nil
}

func (s *MemoryStore) UpdateApplication(_ context.Context, postingID string, update model.ApplicationUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.applications[postingID]
	if !ok {
		return fmt.Errorf("application for %s: %w", postingID, model.ErrNotFound)
	}
	if update.Status != nil && !app.Status.CanTransitionTo(*update.Status) {
		return fmt.Errorf("application for %s: %s -> %s: %w",
			postingID, app.Status, *update.Status, model.ErrInvalidTransition)
	}
	app = app.Apply(update)
	app.LastUpdated = time.Now().UTC()
	s.applications[postingID] = cloneApplication(app)
	return nil
}

func (s *MemoryStore) Query(_ context.Context, filter model.QueryFilter) ([]model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []model.Record
	for id, p := range s.postings {
		rec := model.Record{Posting: clonePosting(p)}
		if app, ok := s.applications[id]; ok {
			a := cloneApplication(app)
			rec.Application = &a
		}
		if filter.Matches(rec) {
			records = append(records, rec)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return recordLess(records[i], records[j], filter.Order)
	})
	if filter.Limit > 0 && len(records) > filter.Limit {
		records = records[:filter.Limit]
	}
	return records, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// recordLess mirrors the SQL ordering: records carrying the ordering key
// sort before those without it, newest discovery breaks ties.
func recordLess(a, b model.Record, order model.QueryOrder) bool {
	switch order {
	case model.OrderInterviewAsc:
		da, db := interviewDate(a), interviewDate(b)
		if (da == nil) != (db == nil) {
			return db == nil
		}
		if da != nil && !da.Equal(*db) {
			return da.Before(*db)
		}
	default:
		ta, tb := appliedAt(a), appliedAt(b)
		if (ta == nil) != (tb == nil) {
			return tb == nil
		}
		if ta != nil && !ta.Equal(*tb) {
			return ta.After(*tb)
		}
	}
	if !a.Posting.DiscoveredAt.Equal(b.Posting.DiscoveredAt) {
		return a.Posting.DiscoveredAt.After(b.Posting.DiscoveredAt)
	}
	return a.Posting.ID < b.Posting.ID
}

func appliedAt(r model.Record) *time.Time {
	if r.Application == nil {
		return nil
	}
	return &r.Application.AppliedAt
}

func interviewDate(r model.Record) *time.Time {
	if r.Application == nil || r.Application.Interview == nil {
		return nil
	}
	return &r.Application.Interview.Date
}

func clonePosting(p model.Posting) model.Posting {
	out := p
	out.Salary = clonePtr(p.Salary)
	out.PostedAt = clonePtr(p.PostedAt)
	out.Contact.Email = clonePtr(p.Contact.Email)
	out.Contact.Phone = clonePtr(p.Contact.Phone)
	out.Contact.Website = clonePtr(p.Contact.Website)
	return out
}

func cloneApplication(a model.Application) model.Application {
	out := a
	out.ContactedAt = clonePtr(a.ContactedAt)
	out.ResponseKind = clonePtr(a.ResponseKind)
	out.ResponseNote = clonePtr(a.ResponseNote)
	out.Interview = clonePtr(a.Interview)
	out.Notes = clonePtr(a.Notes)
	out.RejectionReason = clonePtr(a.RejectionReason)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
