package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mgirault/postule/internal/model"
	"github.com/mgirault/postule/internal/normalize"
)

const greenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"

// greenhouseJob represents a single job in the Greenhouse API response.
type greenhouseJob struct {
	ID             int64              `json:"id"`
	Title          string             `json:"title"`
	Content        string             `json:"content"`
	Location       greenhouseLocation `json:"location"`
	AbsoluteURL    string             `json:"absolute_url"`
	FirstPublished string             `json:"first_published"`
	UpdatedAt      string             `json:"updated_at"`
}

type greenhouseLocation struct {
	Name string `json:"name"`
}

// greenhouseResponse is the top-level Greenhouse jobs API response.
type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

// GreenhouseSource fetches postings from the Greenhouse public boards API.
type GreenhouseSource struct {
	boardToken string
	company    string
	website    string
	client     *http.Client
}

var _ Source = (*GreenhouseSource)(nil)

// NewGreenhouse creates a source for one Greenhouse board. website is the
// company site used for contact enrichment; empty disables it.
func NewGreenhouse(boardToken, company, website string, client *http.Client) *GreenhouseSource {
	return &GreenhouseSource{
		boardToken: boardToken,
		company:    company,
		website:    website,
		client:     client,
	}
}

func (s *GreenhouseSource) Name() string  { return "greenhouse/" + s.boardToken }
func (s *GreenhouseSource) Board() string { return "greenhouse" }

// Fetch retrieves all jobs on the board, descriptions included, and maps
// them onto raw postings.
func (s *GreenhouseSource) Fetch(ctx context.Context) ([]normalize.RawPosting, error) {
	url := fmt.Sprintf("%s/%s/jobs?content=true", greenhouseBaseURL, s.boardToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", s.boardToken, err)
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

	var payload greenhouseResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &model.FetchError{URL: url, Err: fmt.Errorf("decoding payload: %w", err)}
	}

	raws := make([]normalize.RawPosting, 0, len(payload.Jobs))
	for _, gj := range payload.Jobs {
		raws = append(raws, normalize.RawPosting{
			Title:       gj.Title,
			Company:     s.company,
			URL:         gj.AbsoluteURL,
			Location:    gj.Location.Name,
			Description: extractText(gj.Content),
			Board:       s.Board(),
			Website:     s.website,
			PostedAt:    parseTimestamp(gj.FirstPublished, gj.UpdatedAt),
		})
	}
	return raws, nil
}
