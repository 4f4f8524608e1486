// Package source fetches postings from job board APIs. Each source speaks
// one board's public endpoint and maps its payload onto RawPostings for
// the normalization stage.
package source

import (
	"context"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mgirault/postule/internal/normalize"
)

// Source fetches raw postings from one configured job board.
type Source interface {
	// Name uniquely identifies the configured source, e.g. "greenhouse/acme".
	Name() string
	// Board is the ATS family the source talks to. Sources sharing a board
	// share the API host, so pacing keys on it.
	Board() string
	Fetch(ctx context.Context) ([]normalize.RawPosting, error)
}

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// extractText converts an HTML or HTML-encoded string to plain text.
// It first unescapes HTML entities (handles Greenhouse's double-encoding;
// no-op on already-real HTML), strips all tags, then collapses whitespace.
func extractText(content string) string {
	unescaped := html.UnescapeString(content)
	plain := htmlTagRegex.ReplaceAllString(unescaped, "")
	return strings.Join(strings.Fields(plain), " ")
}

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// parseTimestamp returns the first candidate that parses as RFC3339.
func parseTimestamp(candidates ...string) *time.Time {
	for _, v := range candidates {
		if v == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return &t
		}
	}
	return nil
}
