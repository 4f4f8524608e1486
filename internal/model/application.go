package model

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an application effort against a posting.
type Status string

const (
	StatusPending   Status = "pending"   // posting known, not yet applied
	StatusSent      Status = "sent"      // application submitted
	StatusContacted Status = "contacted" // company responded, no decision yet
	StatusInterview Status = "interview" // interview scheduled
	StatusRejected  Status = "rejected"  // terminal
	StatusAccepted  Status = "accepted"  // terminal
)

// transitions maps each status to the statuses it may legally move to.
// Interview is not terminal: a scheduled interview can still resolve
// either way.
var transitions = map[Status][]Status{
	StatusPending:   {StatusSent},
	StatusSent:      {StatusContacted, StatusInterview, StatusRejected, StatusAccepted},
	StatusContacted: {StatusInterview, StatusRejected, StatusAccepted},
	StatusInterview: {StatusRejected, StatusAccepted},
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusContacted, StatusInterview, StatusRejected, StatusAccepted:
		return true
	}
	return false
}

// Terminal reports whether no further transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0 && s.Valid()
}

// ParseStatus converts s to a Status, rejecting unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// Method is how an application was (or would be) delivered.
type Method string

const (
	MethodEmail    Method = "email"
	MethodForm     Method = "form"
	MethodPlatform Method = "platform"
)

// ParseMethod converts s to a Method, rejecting unknown values.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodEmail, MethodForm, MethodPlatform:
		return m, nil
	}
	return "", fmt.Errorf("unknown application method %q", s)
}

// ResponseKind classifies a company's reply.
type ResponseKind string

const (
	ResponsePositive ResponseKind = "positive"
	ResponseNegative ResponseKind = "negative"
	ResponseNeutral  ResponseKind = "neutral"
)

// Valid reports whether k is a known response kind.
func (k ResponseKind) Valid() bool {
	switch k {
	case ResponsePositive, ResponseNegative, ResponseNeutral:
		return true
	}
	return false
}

// InterviewKind is the interview format.
type InterviewKind string

const (
	InterviewPhone  InterviewKind = "phone"
	InterviewVideo  InterviewKind = "video"
	InterviewOnsite InterviewKind = "onsite"
)

// Valid reports whether k is a known interview kind.
func (k InterviewKind) Valid() bool {
	switch k {
	case InterviewPhone, InterviewVideo, InterviewOnsite:
		return true
	}
	return false
}

// Interview holds the details of a scheduled interview.
type Interview struct {
	Date     time.Time
	Slot     string // wall-clock time as entered, e.g. "14:30"
	Kind     InterviewKind
	Location string // address or meeting link
}

// Application is the lifecycle record attached 1:1 to a Posting once a
// submission succeeded. It is created with StatusSent and afterwards
// mutated only through legal status transitions.
type Application struct {
	PostingID       string
	Method          Method
	Status          Status
	AppliedAt       time.Time
	ContactedAt     *time.Time
	ResponseKind    *ResponseKind
	ResponseNote    *string
	Interview       *Interview
	Notes           *string
	RejectionReason *string
	LastUpdated     time.Time // refreshed by the store on every mutation
}

// ApplicationUpdate is a partial mutation of an existing Application.
// Nil fields are left untouched. A non-nil Status must be a legal
// transition from the record's current status.
type ApplicationUpdate struct {
	Status          *Status
	ContactedAt     *time.Time
	ResponseKind    *ResponseKind
	ResponseNote    *string
	Interview       *Interview
	Notes           *string
	RejectionReason *string
}

// Apply returns a copy of a with the update's non-nil fields set. Status
// legality and LastUpdated stamping are the store's concern.
func (a Application) Apply(update ApplicationUpdate) Application {
	if update.Status != nil {
		a.Status = *update.Status
	}
	if update.ContactedAt != nil {
		a.ContactedAt = update.ContactedAt
	}
	if update.ResponseKind != nil {
		a.ResponseKind = update.ResponseKind
	}
	if update.ResponseNote != nil {
		a.ResponseNote = update.ResponseNote
	}
	if update.Interview != nil {
		a.Interview = update.Interview
	}
	if update.Notes != nil {
		a.Notes = update.Notes
	}
	if update.RejectionReason != nil {
		a.RejectionReason = update.RejectionReason
	}
	return a
}
