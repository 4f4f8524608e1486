package extract

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func TestEmails(t *testing.T) {
	tests := []struct {
		name string
		text string
		opts Options
		want []string
	}{
		{
			name: "noise addresses dropped",
			text: "Contact us at a@x.com or noreply@x.com",
			want: []string{"a@x.com"},
		},
		{
			name: "first occurrence order kept",
			text: "write hr@acme.fr, or jobs@acme.fr, or hr@acme.fr again",
			want: []string{"hr@acme.fr", "jobs@acme.fr"},
		},
		{
			name: "dedup is case-insensitive",
			text: "HR@acme.fr then hr@acme.fr",
			want: []string{"HR@acme.fr"},
		},
		{
			name: "cap respected",
			text: "a@x.fr b@x.fr c@x.fr d@x.fr",
			opts: Options{MaxEmails: 2},
			want: []string{"a@x.fr", "b@x.fr"},
		},
		{
			name: "custom noise tokens",
			text: "real@x.fr robot@x.fr",
			opts: Options{NoiseTokens: []string{"robot"}},
			want: []string{"real@x.fr"},
		},
		{
			name: "no addresses",
			text: "nothing to see here",
			want: nil,
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Emails(tt.text, tt.opts)
			if !equalSlices(got, tt.want) {
				t.Errorf("Emails() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPhones(t *testing.T) {
	tests := []struct {
		name string
		text string
		opts Options
		want []string
	}{
		{
			name: "national form",
			text: "call 0612345678 today",
			want: []string{"0612345678"},
		},
		{
			name: "international form with space",
			text: "ligne directe +33 612345678",
			want: []string{"+33 612345678"},
		},
		{
			name: "spacing variants dedup",
			text: "+33612345678 or +33 612345678",
			want: []string{"+33612345678"},
		},
		{
			name: "cap respected",
			text: "0611111111 0622222222 0633333333 0644444444",
			opts: Options{MaxPhones: 2},
			want: []string{"0611111111", "0622222222"},
		},
		{
			name: "no numbers",
			text: "call us maybe",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Phones(tt.text, tt.opts)
			if !equalSlices(got, tt.want) {
				t.Errorf("Phones() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContactLink(t *testing.T) {
	tests := []struct {
		name string
		html string
		base string
		want string
	}{
		{
			name: "relative href resolved against base",
			html: `<html><body><a href="/contact">Contact Us</a></body></html>`,
			base: "https://x.com",
			want: "https://x.com/contact",
		},
		{
			name: "absolute href kept as is",
			html: `<a href="https://other.example/reach-us">Contact</a>`,
			base: "https://x.com",
			want: "https://other.example/reach-us",
		},
		{
			name: "token in href only",
			html: `<a href="/contact-us">Get in touch</a>`,
			base: "https://x.com",
			want: "https://x.com/contact-us",
		},
		{
			name: "token match is case-insensitive",
			html: `<a href="/about">About</a><a href="/reach">CONTACT</a>`,
			base: "https://x.com",
			want: "https://x.com/reach",
		},
		{
			name: "first match in document order wins",
			html: `<a href="/contact-sales">Contact sales</a><a href="/contact">Contact</a>`,
			base: "https://x.com",
			want: "https://x.com/contact-sales",
		},
		{
			name: "anchor without usable href is skipped",
			html: `<a href="">Contact</a><a href="/contact">Contact</a>`,
			base: "https://x.com",
			want: "https://x.com/contact",
		},
		{
			name: "no matching anchor",
			html: `<a href="/jobs">Jobs</a>`,
			base: "https://x.com",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := html.Parse(strings.NewReader(tt.html))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got := ContactLink(doc, tt.base); got != tt.want {
				t.Errorf("ContactLink() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContactLinkNilDocument(t *testing.T) {
	if got := ContactLink(nil, "https://x.com"); got != "" {
		t.Errorf("ContactLink(nil) = %q, want empty", got)
	}
}

func TestSalary(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantMin float64
		wantMax float64
		wantOK  bool
	}{
		{"k suffixed range", "40k-50k", 40000, 50000, true},
		{"grouped thousands", "€40,000 - €50,000 per year", 40000, 50000, true},
		{"space grouped", "40 000 € brut annuel", 40000, 40000, true},
		{"single figure", "up to 55k", 55000, 55000, true},
		{"reversed pair normalized", "50000-40000", 40000, 50000, true},
		{"no figures", "Competitive", 0, 0, false},
		{"empty", "", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotMin, gotMax, ok := Salary(tt.text)
			if ok != tt.wantOK || gotMin != tt.wantMin || gotMax != tt.wantMax {
				t.Errorf("Salary(%q) = (%v, %v, %v), want (%v, %v, %v)",
					tt.text, gotMin, gotMax, ok, tt.wantMin, tt.wantMax, tt.wantOK)
			}
		})
	}
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
