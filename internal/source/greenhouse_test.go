package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mgirault/postule/internal/model"
)

// roundTripFunc adapts a function into an http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// redirectClient returns a client that rewrites every request to hit srv.
func redirectClient(srv *httptest.Server) *http.Client {
	return &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			req.URL.Scheme = "http"
			req.URL.Host = srv.Listener.Addr().String()
			return http.DefaultTransport.RoundTrip(req)
		}),
	}
}

func TestGreenhouseFetch_Success(t *testing.T) {
	payload := `{
		"jobs": [
			{
				"id": 12345,
				"title": "Software Engineer",
				"content": "&lt;p&gt;Build and run backend services.&lt;/p&gt;",
				"location": {"name": "Paris, France"},
				"absolute_url": "https://boards.greenhouse.io/acme/jobs/12345",
				"first_published": "2026-02-10T09:00:00Z",
				"updated_at": "2026-02-13T10:00:00Z"
			},
			{
				"id": 67890,
				"title": "Backend Engineer",
				"content": "",
				"location": {"name": "Remote, France"},
				"absolute_url": "https://boards.greenhouse.io/acme/jobs/67890",
				"first_published": "",
				"updated_at": "2026-02-13T11:30:00Z"
			}
		]
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	src := NewGreenhouse("acme", "Acme Corp", "https://acme.example", redirectClient(srv))

	raws, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raws) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(raws))
	}

	r := raws[0]
	if r.Title != "Software Engineer" {
		t.Errorf("title = %q", r.Title)
	}
	if r.Company != "Acme Corp" {
		t.Errorf("company = %q", r.Company)
	}
	if r.URL != "https://boards.greenhouse.io/acme/jobs/12345" {
		t.Errorf("url = %q", r.URL)
	}
	if r.Location != "Paris, France" {
		t.Errorf("location = %q", r.Location)
	}
	if r.Description != "Build and run backend services." {
		t.Errorf("description = %q", r.Description)
	}
	if r.Board != "greenhouse" {
		t.Errorf("board = %q", r.Board)
	}
	if r.Website != "https://acme.example" {
		t.Errorf("website = %q", r.Website)
	}
	if r.PostedAt == nil {
		t.Fatal("expected PostedAt to be set")
	}
	if r.PostedAt.Day() != 10 {
		t.Errorf("PostedAt should come from first_published, got %v", r.PostedAt)
	}

	// The second job has no first_published, so updated_at fills in.
	if raws[1].PostedAt == nil || raws[1].PostedAt.Day() != 13 {
		t.Errorf("fallback PostedAt = %v", raws[1].PostedAt)
	}
}

func TestGreenhouseFetch_EmptyBoard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jobs": []}`))
	}))
	defer srv.Close()

	src := NewGreenhouse("empty-co", "Empty Co", "", redirectClient(srv))

	raws, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raws) != 0 {
		t.Fatalf("expected 0 postings, got %d", len(raws))
	}
}

func TestGreenhouseFetch_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{not valid json`))
	}))
	defer srv.Close()

	src := NewGreenhouse("bad-co", "Bad Co", "", redirectClient(srv))

	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}

func TestGreenhouseFetch_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	src := NewGreenhouse("busy-co", "Busy Co", "", redirectClient(srv))

	_, err := src.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for HTTP 429, got nil")
	}
	var fetchErr *model.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %T: %v", err, err)
	}
	if fetchErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", fetchErr.StatusCode)
	}
	if fetchErr.RetryAfter != 120*time.Second {
		t.Errorf("retry after = %v, want 2m0s", fetchErr.RetryAfter)
	}
}
