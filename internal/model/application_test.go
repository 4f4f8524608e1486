package model

import (
	"testing"
)

func TestStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pending to sent", StatusPending, StatusSent, true},
		{"pending straight to interview", StatusPending, StatusInterview, false},
		{"sent to contacted", StatusSent, StatusContacted, true},
		{"sent to interview", StatusSent, StatusInterview, true},
		{"sent to rejected", StatusSent, StatusRejected, true},
		{"sent to accepted", StatusSent, StatusAccepted, true},
		{"contacted to interview", StatusContacted, StatusInterview, true},
		{"contacted to accepted", StatusContacted, StatusAccepted, true},
		{"interview to rejected", StatusInterview, StatusRejected, true},
		{"interview to accepted", StatusInterview, StatusAccepted, true},
		{"interview back to contacted", StatusInterview, StatusContacted, false},
		{"rejected to sent", StatusRejected, StatusSent, false},
		{"rejected to accepted", StatusRejected, StatusAccepted, false},
		{"accepted to rejected", StatusAccepted, StatusRejected, false},
		{"sent to itself", StatusSent, StatusSent, false},
		{"unknown status goes nowhere", Status("limbo"), StatusSent, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusRejected, StatusAccepted} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusSent, StatusContacted, StatusInterview} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	if Status("limbo").Terminal() {
		t.Error("unknown status should not report terminal")
	}
}

func TestContactInfoMerged(t *testing.T) {
	email := "jobs@acme.example"
	phone := "0612345678"
	site := "https://acme.example"
	newEmail := "hr@acme.example"

	stored := ContactInfo{Email: &email}
	incoming := ContactInfo{Email: &newEmail, Phone: &phone, Website: &site, HasContactPage: true}

	got := stored.Merged(incoming)
	if got.Email == nil || *got.Email != email {
		t.Errorf("existing email overwritten: got %v", got.Email)
	}
	if got.Phone == nil || *got.Phone != phone {
		t.Errorf("nil phone not filled: got %v", got.Phone)
	}
	if got.Website == nil || *got.Website != site {
		t.Errorf("nil website not filled: got %v", got.Website)
	}
	if !got.HasContactPage {
		t.Error("contact-page flag not carried over")
	}
}

func TestRecordStatus(t *testing.T) {
	r := Record{Posting: Posting{ID: "p1"}}
	if got := r.Status(); got != StatusPending {
		t.Errorf("record without application: status = %s, want pending", got)
	}
	r.Application = &Application{Status: StatusInterview}
	if got := r.Status(); got != StatusInterview {
		t.Errorf("record with application: status = %s, want interview", got)
	}
}
