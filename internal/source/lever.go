package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mgirault/postule/internal/model"
	"github.com/mgirault/postule/internal/normalize"
)

const leverBaseURL = "https://api.lever.co/v0/postings"

// leverCategories represents the categories object in a Lever job.
type leverCategories struct {
	Team         string   `json:"team"`
	Department   string   `json:"department"`
	Location     string   `json:"location"`
	Commitment   string   `json:"commitment"`
	AllLocations []string `json:"allLocations"`
}

// leverJob represents a single job in the Lever API response.
type leverJob struct {
	ID               string          `json:"id"`
	Text             string          `json:"text"`
	Description      string          `json:"description"`
	DescriptionPlain string          `json:"descriptionPlain"`
	Categories       leverCategories `json:"categories"`
	CreatedAt        int64           `json:"createdAt"`
	HostedURL        string          `json:"hostedUrl"`
	ApplyURL         string          `json:"applyUrl"`
}

// LeverSource fetches postings from the Lever public postings API.
type LeverSource struct {
	slug    string
	company string
	website string
	client  *http.Client
}

var _ Source = (*LeverSource)(nil)

// NewLever creates a source for one Lever board. website is the company
// site used for contact enrichment; empty disables it.
func NewLever(slug, company, website string, client *http.Client) *LeverSource {
	return &LeverSource{
		slug:    slug,
		company: company,
		website: website,
		client:  client,
	}
}

func (s *LeverSource) Name() string  { return "lever/" + s.slug }
func (s *LeverSource) Board() string { return "lever" }

// Fetch retrieves all postings on the board and maps them onto raw
// postings.
func (s *LeverSource) Fetch(ctx context.Context) ([]normalize.RawPosting, error) {
	url := fmt.Sprintf("%s/%s?mode=json", leverBaseURL, s.slug)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("lever fetch for %s: %w", s.slug, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &model.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var leverJobs []leverJob
	if err := json.NewDecoder(resp.Body).Decode(&leverJobs); err != nil {
		return nil, &model.FetchError{URL: url, Err: fmt.Errorf("decoding payload: %w", err)}
	}

	raws := make([]normalize.RawPosting, 0, len(leverJobs))
	for _, lj := range leverJobs {
		// Prefer allLocations when present, fall back to the single location.
		location := lj.Categories.Location
		if len(lj.Categories.AllLocations) > 0 {
			location = strings.Join(lj.Categories.AllLocations, ", ")
		}

		description := lj.DescriptionPlain
		if description == "" {
			description = extractText(lj.Description)
		}

		// createdAt is Unix milliseconds.
		var postedAt *time.Time
		if lj.CreatedAt > 0 {
			t := time.UnixMilli(lj.CreatedAt).UTC()
			postedAt = &t
		}

		raws = append(raws, normalize.RawPosting{
			Title:       lj.Text,
			Company:     s.company,
			URL:         lj.HostedURL,
			Location:    location,
			Description: description,
			Board:       s.Board(),
			Website:     s.website,
			PostedAt:    postedAt,
		})
	}
	return raws, nil
}
