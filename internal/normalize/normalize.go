// Package normalize converts raw scraped records into canonical Postings
// keyed by a stable, run-independent identity.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mgirault/postule/internal/extract"
	"github.com/mgirault/postule/internal/model"
)

// RawPosting is the field mapping a source-specific scraper hands over.
// Zero-value fields mean the source did not provide them.
type RawPosting struct {
	Title       string
	Company     string
	URL         string
	Location    string
	Description string
	SalaryText  string
	Board       string
	Website     string // company site, when the board exposes it
	PostedAt    *time.Time
}

// ErrIncomplete marks a raw record missing a required field. Callers log
// the skip and move on; an incomplete record never aborts a batch.
var ErrIncomplete = errors.New("incomplete posting")

const maxSnippet = 280

// Normalize validates raw and shapes it into a Posting. Records missing
// title, company or URL fail with ErrIncomplete.
func Normalize(raw RawPosting, now time.Time) (model.Posting, error) {
	title := clean(raw.Title)
	company := clean(raw.Company)
	rawURL := strings.TrimSpace(raw.URL)

	var missing []string
	if title == "" {
		missing = append(missing, "title")
	}
	if company == "" {
		missing = append(missing, "company")
	}
	if rawURL == "" {
		missing = append(missing, "url")
	}
	if len(missing) > 0 {
		return model.Posting{}, fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}

	canonical, err := CanonicalURL(rawURL)
	if err != nil {
		return model.Posting{}, fmt.Errorf("%w: bad url %q: %v", ErrIncomplete, rawURL, err)
	}

	p := model.Posting{
		ID:           PostingID(canonical),
		Title:        title,
		Company:      company,
		Location:     clean(raw.Location),
		Description:  snippet(clean(raw.Description), maxSnippet),
		Board:        raw.Board,
		URL:          canonical,
		PostedAt:     raw.PostedAt,
		DiscoveredAt: now.UTC(),
	}
	if min, max, ok := extract.Salary(raw.SalaryText); ok {
		p.Salary = &model.SalaryRange{Min: min, Max: max}
	}
	if w := strings.TrimSpace(raw.Website); w != "" {
		p.Contact.Website = &w
	}
	return p, nil
}

// trackingParams are stripped from canonical URLs alongside utm_* keys.
var trackingParams = map[string]bool{
	"fbclid": true,
	"gclid":  true,
	"ref":    true,
}

// CanonicalURL normalizes raw for identity derivation: scheme and host
// lowercased, default ports and fragments stripped, tracking parameters
// removed, remaining query sorted, trailing slash trimmed. Two spellings
// of the same listing URL canonicalize to the same string.
func CanonicalURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("missing scheme or host")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	switch u.Scheme {
	case "http":
		host = strings.TrimSuffix(host, ":80")
	case "https":
		host = strings.TrimSuffix(host, ":443")
	}
	u.Host = host
	u.Fragment = ""

	q := u.Query()
	for key := range q {
		if strings.HasPrefix(key, "utm_") || trackingParams[key] {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode() // Encode sorts keys
	u.Path = strings.TrimSuffix(u.Path, "/")

	return u.String(), nil
}

// PostingID is the stable identity key for a canonical URL: the first 16
// hex characters of its SHA-256. Re-scraping the same listing in any run
// yields the same ID.
func PostingID(canonicalURL string) string {
	sum := sha256.Sum256([]byte(canonicalURL))
	return hex.EncodeToString(sum[:])[:16]
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func snippet(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	cut := string(runes[:limit])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}
