// Package submit delivers applications under the daily quota. The quota
// slot is reserved before the send and returned whenever nothing went
// out, so the counter only ever counts submissions that actually left.
package submit

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/mgirault/postule/internal/model"
	"github.com/mgirault/postule/internal/quota"
)

// Outcome classifies how a submission attempt ended.
type Outcome string

const (
	OutcomeSubmitted      Outcome = "submitted"
	OutcomeQuotaExceeded  Outcome = "quota_exceeded"
	OutcomeMissingContact Outcome = "missing_contact"
	OutcomeUnsupported    Outcome = "unsupported"
	OutcomeSendFailed     Outcome = "send_failed"
)

// Result reports one submission attempt. Recorded is false when the
// message went out but the store write did not land; the send is real and
// cannot be undone, so the caller reconciles by hand. Err carries the
// underlying failure where one exists.
type Result struct {
	Outcome  Outcome
	Recorded bool
	Err      error
}

// Profile identifies the applicant in outgoing messages.
type Profile struct {
	Name  string
	Email string
	Phone string
}

// Submitter performs rate-limited submissions against the store.
type Submitter struct {
	store     model.Store
	sender    model.Sender
	automator model.FormAutomator
	counter   quota.Counter
	profile   Profile
	logger    *slog.Logger
}

// New wires a submitter. automator may be nil, in which case form and
// platform submissions report OutcomeUnsupported.
func New(
	store model.Store,
	sender model.Sender,
	automator model.FormAutomator,
	counter quota.Counter,
	profile Profile,
	logger *slog.Logger,
) *Submitter {
	return &Submitter{
		store:     store,
		sender:    sender,
		automator: automator,
		counter:   counter,
		profile:   profile,
		logger:    logger,
	}
}

// Submit attempts one application for posting using method. Every failure
// mode comes back inside the Result; nothing escapes as a bare error.
func (s *Submitter) Submit(ctx context.Context, posting model.Posting, method model.Method) Result {
	if !s.counter.Acquire() {
		return Result{Outcome: OutcomeQuotaExceeded}
	}

	var err error
	switch method {
	case model.MethodEmail:
		if posting.Contact.Email == nil {
			s.counter.Release()
			return Result{Outcome: OutcomeMissingContact}
		}
		err = s.sendEmail(ctx, posting)
	case model.MethodForm, model.MethodPlatform:
		if s.automator == nil {
			s.counter.Release()
			return Result{Outcome: OutcomeUnsupported}
		}
		err = s.automator.Submit(ctx, posting)
	default:
		s.counter.Release()
		return Result{Outcome: OutcomeUnsupported, Err: fmt.Errorf("unknown method %q", method)}
	}
	if err != nil {
		s.counter.Release()
		s.logger.Warn("submission failed",
			"posting_id", posting.ID, "company", posting.Company, "error", err)
		return Result{Outcome: OutcomeSendFailed, Err: err}
	}

	app := model.Application{
		Method:    method,
		Status:    model.StatusSent,
		AppliedAt: time.Now().UTC(),
	}
	if err := s.store.CreateApplication(ctx, posting.ID, app); err != nil {
		s.logger.Error("submission sent but not recorded",
			"posting_id", posting.ID, "error", err)
		return Result{Outcome: OutcomeSubmitted, Err: err}
	}
	s.logger.Info("application submitted",
		"posting_id", posting.ID, "company", posting.Company, "method", string(method))
	return Result{Outcome: OutcomeSubmitted, Recorded: true}
}

func (s *Submitter) sendEmail(ctx context.Context, posting model.Posting) error {
	body, err := s.coverLetter(posting)
	if err != nil {
		return fmt.Errorf("building cover letter: %w", err)
	}
	return s.sender.Send(ctx, model.Message{
		To:      *posting.Contact.Email,
		Subject: fmt.Sprintf("Application for %s Position", posting.Title),
		Body:    body,
	})
}

var coverTmpl = template.Must(template.New("cover").Parse(`Dear Hiring Manager,

I am writing to express my strong interest in the {{.Title}} position at {{.Company}}.

With my experience and skills, I am confident I can make a meaningful contribution to your team.

Job details:
- Position: {{.Title}}
- Company: {{.Company}}
- Location: {{.Location}}

Thank you for considering my application. I look forward to discussing how I can contribute to your organization.

Best regards,
{{.Name}}
{{.Email}}{{if .Phone}}
{{.Phone}}{{end}}
`))

// coverLetter renders the outgoing body from posting and profile fields
// only, so the same posting always produces the same letter.
func (s *Submitter) coverLetter(p model.Posting) (string, error) {
	data := struct {
		Title, Company, Location string
		Name, Email, Phone       string
	}{p.Title, p.Company, p.Location, s.profile.Name, s.profile.Email, s.profile.Phone}

	var buf bytes.Buffer
	if err := coverTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
