// Package enrich mines company contact data for postings. Enrichment is
// best-effort: any failure degrades to empty ContactInfo and the posting's
// contact fields stay null.
package enrich

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/mgirault/postule/internal/extract"
	"github.com/mgirault/postule/internal/model"
)

// Fetcher retrieves a parsed HTML document. Implementations return
// *model.FetchError for network, status and parse failures.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*html.Node, error)
}

const defaultTimeout = 10 * time.Second

// Enricher mines ContactInfo from a company website using the injected
// fetch capability.
type Enricher struct {
	fetcher Fetcher
	opts    extract.Options
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an Enricher. timeout bounds each page fetch; zero means the
// default.
func New(fetcher Fetcher, opts extract.Options, timeout time.Duration, logger *slog.Logger) *Enricher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Enricher{
		fetcher: fetcher,
		opts:    opts,
		timeout: timeout,
		logger:  logger,
	}
}

// Enrich fetches websiteURL and mines contact data from it: the first
// candidate email and phone found in the page text, plus whether a contact
// page is linked. On any failure it returns the zero ContactInfo and the
// error; callers absorb that as a skip.
func (e *Enricher) Enrich(ctx context.Context, websiteURL string) (model.ContactInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	doc, err := e.fetcher.Fetch(ctx, websiteURL)
	if err != nil {
		return model.ContactInfo{}, err
	}

	text := pageText(doc)
	site := websiteURL
	info := model.ContactInfo{Website: &site}
	if emails := extract.Emails(text, e.opts); len(emails) > 0 {
		info.Email = &emails[0]
	}
	if phones := extract.Phones(text, e.opts); len(phones) > 0 {
		info.Phone = &phones[0]
	}
	if link := extract.ContactLink(doc, websiteURL); link != "" {
		info.HasContactPage = true
	}

	e.logger.Debug("enriched company site",
		"url", websiteURL,
		"email_found", info.Email != nil,
		"phone_found", info.Phone != nil,
		"contact_page", info.HasContactPage,
	)
	return info, nil
}

// pageText flattens the document's visible text, skipping script and style
// blocks.
func pageText(doc *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}
