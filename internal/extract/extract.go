// Package extract holds the pure text-mining heuristics used for contact
// enrichment. All functions are total: malformed or empty input yields an
// empty result, never an error.
package extract

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// phonePatterns covers the regional number forms we mine: French
// international (+33, optional space) and national (leading zero).
var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\+?33\s?[0-9]{9}`),
	regexp.MustCompile(`0[0-9]{9}`),
}

// DefaultNoiseTokens disqualify machine mailboxes from mined emails.
var DefaultNoiseTokens = []string{"noreply", "no-reply", "notification", "bot"}

const (
	DefaultMaxEmails = 5
	DefaultMaxPhones = 3

	contactToken = "contact"
)

// Options bounds extraction results. The zero value means defaults.
type Options struct {
	NoiseTokens []string // substrings that disqualify an email, case-insensitive
	MaxEmails   int
	MaxPhones   int
}

func (o Options) withDefaults() Options {
	if o.NoiseTokens == nil {
		o.NoiseTokens = DefaultNoiseTokens
	}
	if o.MaxEmails <= 0 {
		o.MaxEmails = DefaultMaxEmails
	}
	if o.MaxPhones <= 0 {
		o.MaxPhones = DefaultMaxPhones
	}
	return o
}

// Emails returns candidate contact addresses found in text, first
// occurrence first, deduplicated case-insensitively, capped at
// opts.MaxEmails. Addresses containing a noise token are dropped.
func Emails(text string, opts Options) []string {
	opts = opts.withDefaults()
	var out []string
	seen := make(map[string]bool)
	for _, match := range emailRegex.FindAllString(text, -1) {
		lower := strings.ToLower(match)
		if seen[lower] || noisy(lower, opts.NoiseTokens) {
			continue
		}
		seen[lower] = true
		out = append(out, match)
		if len(out) == opts.MaxEmails {
			break
		}
	}
	return out
}

func noisy(addr string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(addr, tok) {
			return true
		}
	}
	return false
}

// Phones returns candidate phone numbers found in text, first occurrence
// first, deduplicated ignoring spacing, capped at opts.MaxPhones.
func Phones(text string, opts Options) []string {
	opts = opts.withDefaults()
	type match struct {
		pos int
		val string
	}
	var found []match
	for _, re := range phonePatterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			found = append(found, match{loc[0], text[loc[0]:loc[1]]})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	var out []string
	seen := make(map[string]bool)
	for _, m := range found {
		key := strings.ReplaceAll(m.val, " ", "")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m.val)
		if len(out) == opts.MaxPhones {
			break
		}
	}
	return out
}

// ContactLink scans anchors in document order and returns the first whose
// visible text or href contains the contact token (case-insensitive),
// resolved against baseURL. Returns "" when nothing usable is found.
func ContactLink(doc *html.Node, baseURL string) string {
	if doc == nil {
		return ""
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	var found string
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "a" {
			href := attrVal(n, "href")
			label := nodeText(n)
			if containsFold(label, contactToken) || containsFold(href, contactToken) {
				if resolved := resolveHref(base, href); resolved != "" {
					found = resolved
					return true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return found
}

func containsFold(s, token string) bool {
	return strings.Contains(strings.ToLower(s), token)
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func resolveHref(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	if base == nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// salaryNumRegex matches a grouped-thousands figure (40,000 / 40 000) or a
// plain number, with an optional k multiplier suffix.
var salaryNumRegex = regexp.MustCompile(`([0-9]+(?:[ ,][0-9]{3})+|[0-9]+(?:\.[0-9]+)?)\s*([kK])?`)

// Salary mines a numeric min/max pair from a board's salary text. A single
// figure yields min == max. Ordering in the text is not trusted: the pair
// is returned low first.
func Salary(text string) (min, max float64, ok bool) {
	var vals []float64
	for _, m := range salaryNumRegex.FindAllStringSubmatch(text, -1) {
		raw := strings.NewReplacer(" ", "", ",", "").Replace(m[1])
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if m[2] != "" {
			v *= 1000
		}
		vals = append(vals, v)
	}
	switch len(vals) {
	case 0:
		return 0, 0, false
	case 1:
		return vals[0], vals[0], true
	}
	min, max = vals[0], vals[1]
	if min > max {
		min, max = max, min
	}
	return min, max, true
}
