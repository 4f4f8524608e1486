package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mgirault/postule/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// forEachStore runs fn against both implementations so they cannot drift
// apart on the contract.
func forEachStore(t *testing.T, fn func(t *testing.T, s model.Store)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, newTestStore(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
}

// date returns a fixed, second-aligned instant so values survive the
// SQLite round trip unchanged.
func date(day int) time.Time {
	return time.Date(2026, 3, day, 10, 0, 0, 0, time.UTC)
}

func strp(s string) *string { return &s }

func seedPosting(t *testing.T, s model.Store, id, company string, discovered time.Time) {
	t.Helper()
	p := model.Posting{
		ID:           id,
		Title:        "Backend Engineer",
		Company:      company,
		Board:        "greenhouse",
		URL:          "https://example.com/jobs/" + id,
		DiscoveredAt: discovered,
	}
	if _, _, err := s.UpsertPosting(context.Background(), p); err != nil {
		t.Fatalf("UpsertPosting %s: %v", id, err)
	}
}

func seedApplication(t *testing.T, s model.Store, postingID string, applied time.Time) {
	t.Helper()
	app := model.Application{
		Method:    model.MethodEmail,
		Status:    model.StatusSent,
		AppliedAt: applied,
	}
	if err := s.CreateApplication(context.Background(), postingID, app); err != nil {
		t.Fatalf("CreateApplication %s: %v", postingID, err)
	}
}

func recordIDs(recs []model.Record) string {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.Posting.ID
	}
	return strings.Join(ids, ",")
}

func TestUpsertPostingNewThenMerge(t *testing.T) {
	forEachStore(t, func(t *testing.T, s model.Store) {
		ctx := context.Background()
		first := model.Posting{
			ID:           "p1",
			Title:        "Backend Engineer",
			Company:      "Acme",
			Board:        "greenhouse",
			URL:          "https://acme.example/jobs/1",
			DiscoveredAt: date(1),
			Contact:      model.ContactInfo{Phone: strp("0612345678")},
		}
		_, wasNew, err := s.UpsertPosting(ctx, first)
		if err != nil {
			t.Fatalf("first UpsertPosting: %v", err)
		}
		if !wasNew {
			t.Error("expected first upsert to report a new posting")
		}

		second := first
		second.Title = "Senior Backend Engineer"
		second.Contact = model.ContactInfo{
			Email:          strp("jobs@acme.example"),
			Phone:          strp("0999999999"),
			HasContactPage: true,
		}
		stored, wasNew, err := s.UpsertPosting(ctx, second)
		if err != nil {
			t.Fatalf("second UpsertPosting: %v", err)
		}
		if wasNew {
			t.Error("expected second upsert to report a duplicate")
		}
		if stored.Title != "Backend Engineer" {
			t.Errorf("title overwritten on merge: %q", stored.Title)
		}
		if stored.Contact.Email == nil || *stored.Contact.Email != "jobs@acme.example" {
			t.Errorf("missing contact email not filled: %v", stored.Contact.Email)
		}
		if stored.Contact.Phone == nil || *stored.Contact.Phone != "0612345678" {
			t.Errorf("existing phone overwritten: %v", stored.Contact.Phone)
		}
		if !stored.Contact.HasContactPage {
			t.Error("expected contact page flag to stick after merge")
		}

		got, err := s.GetPosting(ctx, "p1")
		if err != nil {
			t.Fatalf("GetPosting: %v", err)
		}
		if got.Title != "Backend Engineer" || got.Contact.Email == nil {
			t.Errorf("stored record does not match merge result: %+v", got)
		}
	})
}

func TestGetPostingUnknown(t *testing.T) {
	forEachStore(t, func(t *testing.T, s model.Store) {
		_, err := s.GetPosting(context.Background(), "ghost")
		if !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestFindByCompanyPicksNewest(t *testing.T) {
	forEachStore(t, func(t *testing.T, s model.Store) {
		ctx := context.Background()
		seedPosting(t, s, "old", "Acme", date(1))
		seedPosting(t, s, "new", "Acme", date(5))
		seedPosting(t, s, "other", "Globex", date(9))

		p, err := s.FindByCompany(ctx, "acme")
		if err != nil {
			t.Fatalf("FindByCompany: %v", err)
		}
		if p.ID != "new" {
			t.Errorf("FindByCompany returned %s, want new", p.ID)
		}

		if _, err := s.FindByCompany(ctx, "Initech"); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound for unknown company, got %v", err)
		}
	})
}

func TestCreateApplicationGuards(t *testing.T) {
	forEachStore(t, func(t *testing.T, s model.Store) {
		ctx := context.Background()
		seedPosting(t, s, "p1", "Acme", date(1))
		seedApplication(t, s, "p1", date(2))

		err := s.CreateApplication(ctx, "p1", model.Application{
			Method: model.MethodEmail, Status: model.StatusSent, AppliedAt: date(3),
		})
		if !errors.Is(err, model.ErrAlreadyExists) {
			t.Errorf("duplicate create: expected ErrAlreadyExists, got %v", err)
		}

		err = s.CreateApplication(ctx, "ghost", model.Application{
			Method: model.MethodEmail, Status: model.StatusSent, AppliedAt: date(3),
		})
		if !errors.Is(err, model.ErrNotFound) {
			t.Errorf("unknown posting: expected ErrNotFound, got %v", err)
		}

		seedPosting(t, s, "p2", "Acme", date(1))
		err = s.CreateApplication(ctx, "p2", model.Application{
			Method: model.MethodEmail, Status: model.StatusPending, AppliedAt: date(3),
		})
		if !errors.Is(err, model.ErrInvalidTransition) {
			t.Errorf("non-sent create: expected ErrInvalidTransition, got %v", err)
		}
		if _, err := s.GetApplication(ctx, "p2"); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("rejected create left a record behind: %v", err)
		}
	})
}

func TestCreateApplicationConcurrentExactlyOnce(t *testing.T) {
	forEachStore(t, func(t *testing.T, s model.Store) {
		ctx := context.Background()
		seedPosting(t, s, "race", "Acme", date(1))

		const racers = 8
		errs := make(chan error, racers)
		var wg sync.WaitGroup
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.CreateApplication(ctx, "race", model.Application{
					Method:    model.MethodEmail,
					Status:    model.StatusSent,
					AppliedAt: date(2),
				})
			}()
		}
		wg.Wait()
		close(errs)

		var created, duplicate int
		for err := range errs {
			switch {
			case err == nil:
				created++
			case errors.Is(err, model.ErrAlreadyExists):
				duplicate++
			default:
				t.Fatalf("unexpected error from racing create: %v", err)
			}
		}
		if created != 1 {
			t.Errorf("created = %d, want exactly 1", created)
		}
		if duplicate != racers-1 {
			t.Errorf("duplicate = %d, want %d", duplicate, racers-1)
		}
	})
}

func TestUpdateApplicationEnforcesTransitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []model.Status // walked after the initial sent
		to      model.Status
		wantErr bool
	}{
		{"sent to contacted", nil, model.StatusContacted, false},
		{"sent to interview", nil, model.StatusInterview, false},
		{"sent to rejected", nil, model.StatusRejected, false},
		{"sent to accepted", nil, model.StatusAccepted, false},
		{"contacted to interview", []model.Status{model.StatusContacted}, model.StatusInterview, false},
		{"contacted to rejected", []model.Status{model.StatusContacted}, model.StatusRejected, false},
		{"interview to accepted", []model.Status{model.StatusInterview}, model.StatusAccepted, false},
		{"interview back to contacted", []model.Status{model.StatusInterview}, model.StatusContacted, true},
		{"rejected is terminal", []model.Status{model.StatusRejected}, model.StatusContacted, true},
		{"accepted is terminal", []model.Status{model.StatusAccepted}, model.StatusInterview, true},
		{"no self transition", nil, model.StatusSent, true},
		{"cannot revert to pending", nil, model.StatusPending, true},
	}

	forEachStore(t, func(t *testing.T, s model.Store) {
		ctx := context.Background()
		for i, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				id := fmt.Sprintf("tr-%d", i)
				seedPosting(t, s, id, "Acme", date(1))
				seedApplication(t, s, id, date(2))
				for _, st := range tt.path {
					st := st
					if err := s.UpdateApplication(ctx, id, model.ApplicationUpdate{Status: &st}); err != nil {
						t.Fatalf("walking to %s: %v", st, err)
					}
				}

				to := tt.to
				err := s.UpdateApplication(ctx, id, model.ApplicationUpdate{Status: &to})
				app, getErr := s.GetApplication(ctx, id)
				if getErr != nil {
					t.Fatalf("GetApplication: %v", getErr)
				}

				if tt.wantErr {
					if !errors.Is(err, model.ErrInvalidTransition) {
						t.Fatalf("expected ErrInvalidTransition, got %v", err)
					}
					want := model.StatusSent
					if len(tt.path) > 0 {
						want = tt.path[len(tt.path)-1]
					}
					if app.Status != want {
						t.Errorf("status changed to %s after rejected transition", app.Status)
					}
					return
				}
				if err != nil {
					t.Fatalf("UpdateApplication: %v", err)
				}
				if app.Status != tt.to {
					t.Errorf("status = %s, want %s", app.Status, tt.to)
				}
			})
		}
	})
}

func TestUpdateApplicationFieldsRoundTrip(t *testing.T) {
	forEachStore(t, func(t *testing.T, s model.Store) {
		ctx := context.Background()
		seedPosting(t, s, "p1", "Acme", date(1))
		seedApplication(t, s, "p1", date(2))

		contacted := model.StatusContacted
		contactedAt := date(3)
		kind := model.ResponsePositive
		err := s.UpdateApplication(ctx, "p1", model.ApplicationUpdate{
			Status:       &contacted,
			ContactedAt:  &contactedAt,
			ResponseKind: &kind,
			ResponseNote: strp("recruiter wants a call"),
		})
		if err != nil {
			t.Fatalf("recording response: %v", err)
		}

		interview := model.StatusInterview
		err = s.UpdateApplication(ctx, "p1", model.ApplicationUpdate{
			Status: &interview,
			Interview: &model.Interview{
				Date:     date(10),
				Slot:     "14:30",
				Kind:     model.InterviewVideo,
				Location: "https://meet.example/abc",
			},
		})
		if err != nil {
			t.Fatalf("scheduling interview: %v", err)
		}

		app, err := s.GetApplication(ctx, "p1")
		if err != nil {
			t.Fatalf("GetApplication: %v", err)
		}
		if app.Status != model.StatusInterview {
			t.Errorf("status = %s, want interview", app.Status)
		}
		if !app.AppliedAt.Equal(date(2)) {
			t.Errorf("applied at drifted: %v", app.AppliedAt)
		}
		if app.ContactedAt == nil || !app.ContactedAt.Equal(date(3)) {
			t.Errorf("contacted at = %v, want %v", app.ContactedAt, date(3))
		}
		if app.ResponseKind == nil || *app.ResponseKind != model.ResponsePositive {
			t.Errorf("response kind = %v", app.ResponseKind)
		}
		if app.ResponseNote == nil || *app.ResponseNote != "recruiter wants a call" {
			t.Errorf("response note = %v", app.ResponseNote)
		}
		if app.Interview == nil {
			t.Fatal("interview details missing")
		}
		if !app.Interview.Date.Equal(date(10)) || app.Interview.Slot != "14:30" ||
			app.Interview.Kind != model.InterviewVideo || app.Interview.Location != "https://meet.example/abc" {
			t.Errorf("interview round trip mangled: %+v", app.Interview)
		}
		if app.LastUpdated.IsZero() {
			t.Error("last updated not stamped")
		}

		// A payload-only update must leave the status and earlier fields alone.
		if err := s.UpdateApplication(ctx, "p1", model.ApplicationUpdate{Notes: strp("sent follow-up")}); err != nil {
			t.Fatalf("adding note: %v", err)
		}
		app, err = s.GetApplication(ctx, "p1")
		if err != nil {
			t.Fatalf("GetApplication: %v", err)
		}
		if app.Status != model.StatusInterview || app.Interview == nil {
			t.Errorf("note update disturbed other fields: %+v", app)
		}
		if app.Notes == nil || *app.Notes != "sent follow-up" {
			t.Errorf("notes = %v", app.Notes)
		}
	})
}

func TestUpdateApplicationUnknown(t *testing.T) {
	forEachStore(t, func(t *testing.T, s model.Store) {
		err := s.UpdateApplication(context.Background(), "ghost", model.ApplicationUpdate{Notes: strp("x")})
		if !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestQueryStatusFilter(t *testing.T) {
	forEachStore(t, func(t *testing.T, s model.Store) {
		ctx := context.Background()
		seedPosting(t, s, "a", "Acme", date(1))
		seedPosting(t, s, "b", "Globex", date(2))
		seedApplication(t, s, "b", date(3))
		seedPosting(t, s, "c", "Initech", date(4))
		seedApplication(t, s, "c", date(5))
		contacted := model.StatusContacted
		if err := s.UpdateApplication(ctx, "c", model.ApplicationUpdate{Status: &contacted}); err != nil {
			t.Fatalf("UpdateApplication: %v", err)
		}

		recs, err := s.Query(ctx, model.QueryFilter{Statuses: []model.Status{model.StatusPending}})
		if err != nil {
			t.Fatalf("Query pending: %v", err)
		}
		if got := recordIDs(recs); got != "a" {
			t.Errorf("pending filter returned %q, want a", got)
		}

		recs, err = s.Query(ctx, model.QueryFilter{Statuses: []model.Status{model.StatusSent}})
		if err != nil {
			t.Fatalf("Query sent: %v", err)
		}
		if got := recordIDs(recs); got != "b" {
			t.Errorf("sent filter returned %q, want b", got)
		}

		recs, err = s.Query(ctx, model.QueryFilter{
			Statuses: []model.Status{model.StatusPending, model.StatusContacted},
		})
		if err != nil {
			t.Fatalf("Query pending+contacted: %v", err)
		}
		if len(recs) != 2 {
			t.Errorf("pending+contacted returned %d records, want 2", len(recs))
		}

		recs, err = s.Query(ctx, model.QueryFilter{})
		if err != nil {
			t.Fatalf("Query all: %v", err)
		}
		if len(recs) != 3 {
			t.Errorf("unfiltered query returned %d records, want 3", len(recs))
		}
	})
}

func TestQueryOrderAppliedDesc(t *testing.T) {
	forEachStore(t, func(t *testing.T, s model.Store) {
		ctx := context.Background()
		seedPosting(t, s, "p-old", "Acme", date(1))
		seedApplication(t, s, "p-old", date(2))
		seedPosting(t, s, "p-new", "Globex", date(1))
		seedApplication(t, s, "p-new", date(6))
		seedPosting(t, s, "p-none", "Initech", date(9))

		recs, err := s.Query(ctx, model.QueryFilter{})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if got := recordIDs(recs); got != "p-new,p-old,p-none" {
			t.Errorf("order = %q, want p-new,p-old,p-none", got)
		}
	})
}

func TestQueryInterviewOrderAndWindow(t *testing.T) {
	forEachStore(t, func(t *testing.T, s model.Store) {
		ctx := context.Background()
		schedule := func(id string, ivDate time.Time) {
			t.Helper()
			st := model.StatusInterview
			err := s.UpdateApplication(ctx, id, model.ApplicationUpdate{
				Status:    &st,
				Interview: &model.Interview{Date: ivDate, Kind: model.InterviewVideo},
			})
			if err != nil {
				t.Fatalf("scheduling interview for %s: %v", id, err)
			}
		}

		seedPosting(t, s, "far", "Acme", date(1))
		seedApplication(t, s, "far", date(2))
		schedule("far", date(20))
		seedPosting(t, s, "soon", "Globex", date(1))
		seedApplication(t, s, "soon", date(2))
		schedule("soon", date(12))
		seedPosting(t, s, "none", "Initech", date(1))
		seedApplication(t, s, "none", date(2))

		recs, err := s.Query(ctx, model.QueryFilter{Order: model.OrderInterviewAsc})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if got := recordIDs(recs); got != "soon,far,none" {
			t.Errorf("order = %q, want soon,far,none", got)
		}

		after := date(15)
		recs, err = s.Query(ctx, model.QueryFilter{
			Order:          model.OrderInterviewAsc,
			InterviewAfter: &after,
		})
		if err != nil {
			t.Fatalf("Query with window: %v", err)
		}
		if got := recordIDs(recs); got != "far" {
			t.Errorf("windowed query = %q, want far", got)
		}
	})
}

func TestQueryFieldFiltersAndLimit(t *testing.T) {
	forEachStore(t, func(t *testing.T, s model.Store) {
		ctx := context.Background()
		upsert := func(p model.Posting) {
			t.Helper()
			if _, _, err := s.UpsertPosting(ctx, p); err != nil {
				t.Fatalf("UpsertPosting %s: %v", p.ID, err)
			}
		}
		upsert(model.Posting{
			ID: "x1", Title: "Dev", Company: "Acme", Board: "greenhouse",
			URL: "https://a.example/1", DiscoveredAt: date(3),
			Contact: model.ContactInfo{Email: strp("jobs@acme.example")},
		})
		upsert(model.Posting{
			ID: "x2", Title: "Dev", Company: "Acme", Board: "lever",
			URL: "https://a.example/2", DiscoveredAt: date(2),
		})
		upsert(model.Posting{
			ID: "x3", Title: "Dev", Company: "Globex", Board: "greenhouse",
			URL: "https://g.example/1", DiscoveredAt: date(1),
			Contact: model.ContactInfo{Email: strp("talent@globex.example")},
		})

		recs, err := s.Query(ctx, model.QueryFilter{Company: "acme"})
		if err != nil {
			t.Fatalf("Query company: %v", err)
		}
		if got := recordIDs(recs); got != "x1,x2" {
			t.Errorf("company filter = %q, want x1,x2", got)
		}

		recs, err = s.Query(ctx, model.QueryFilter{Board: "greenhouse"})
		if err != nil {
			t.Fatalf("Query board: %v", err)
		}
		if got := recordIDs(recs); got != "x1,x3" {
			t.Errorf("board filter = %q, want x1,x3", got)
		}

		recs, err = s.Query(ctx, model.QueryFilter{HasContactEmail: true})
		if err != nil {
			t.Fatalf("Query contact email: %v", err)
		}
		if got := recordIDs(recs); got != "x1,x3" {
			t.Errorf("contact filter = %q, want x1,x3", got)
		}

		recs, err = s.Query(ctx, model.QueryFilter{Limit: 2})
		if err != nil {
			t.Fatalf("Query limit: %v", err)
		}
		if len(recs) != 2 {
			t.Errorf("limit returned %d records, want 2", len(recs))
		}
	})
}
