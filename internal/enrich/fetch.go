package enrich

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/net/html"

	"github.com/mgirault/postule/internal/model"
)

const userAgent = "Mozilla/5.0 (compatible; postule/1.0)"

// HTTPFetcher fetches company pages over plain GET. A circuit breaker
// trips after consecutive failures so a dead network fails the rest of a
// batch fast instead of timing out page by page.
type HTTPFetcher struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher wraps client for page fetching. The client's timeout
// applies per request.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "enrich-fetch",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})
	return &HTTPFetcher{client: client, breaker: cb}
}

// Fetch GETs url and parses the response as HTML.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*html.Node, error) {
	doc, err := f.breaker.Execute(func() (any, error) {
		return f.get(ctx, url)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &model.FetchError{URL: url, Err: err}
		}
		return nil, err
	}
	return doc.(*html.Node), nil
}

func (f *HTTPFetcher) get(ctx context.Context, url string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &model.FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &model.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, &model.FetchError{URL: url, Err: err}
	}
	return doc, nil
}
