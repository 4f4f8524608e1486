package model

import (
	"time"
)

// Posting is a normalized job listing with a stable identity.
type Posting struct {
	ID           string       // deterministic key derived from the canonical source URL
	Title        string       // job title
	Company      string       // company name
	Location     string       // location string
	Description  string       // short snippet, not the full listing
	Salary       *SalaryRange // nullable (most boards omit pay data)
	Board        string       // source board name
	URL          string       // source URL, unique across the store
	PostedAt     *time.Time   // nullable (not all boards provide this)
	DiscoveredAt time.Time    // our clock (set on first normalization)
	Contact      ContactInfo
}

// ContactInfo holds contact data mined from the company website.
// Pointer fields stay nil until enrichment fills them; a failed
// enrichment leaves them nil rather than erroring.
type ContactInfo struct {
	Email          *string
	Phone          *string
	Website        *string
	HasContactPage bool
}

// Merged fills c's nil fields from other without overwriting anything
// already set. Used by stores on re-upsert of a known posting.
func (c ContactInfo) Merged(other ContactInfo) ContactInfo {
	out := c
	if out.Email == nil {
		out.Email = other.Email
	}
	if out.Phone == nil {
		out.Phone = other.Phone
	}
	if out.Website == nil {
		out.Website = other.Website
	}
	out.HasContactPage = out.HasContactPage || other.HasContactPage
	return out
}

// SalaryRange is an annual salary span in the board's currency.
// A single advertised figure is stored with Min == Max.
type SalaryRange struct {
	Min float64
	Max float64
}
