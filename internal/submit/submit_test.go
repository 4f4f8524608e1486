package submit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mgirault/postule/internal/model"
	"github.com/mgirault/postule/internal/quota"
	"github.com/mgirault/postule/internal/store"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []model.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeAutomator struct {
	calls int
	err   error
}

func (f *fakeAutomator) Submit(_ context.Context, _ model.Posting) error {
	f.calls++
	return f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testProfile() Profile {
	return Profile{Name: "Marie Girault", Email: "marie@example.com", Phone: "0612345678"}
}

func strp(s string) *string { return &s }

func seedPosting(t *testing.T, s model.Store, id string, email *string) model.Posting {
	t.Helper()
	p := model.Posting{
		ID:           id,
		Title:        "Backend Engineer",
		Company:      "Acme",
		Location:     "Paris",
		URL:          "https://acme.example/jobs/" + id,
		DiscoveredAt: time.Now().UTC(),
		Contact:      model.ContactInfo{Email: email},
	}
	if _, _, err := s.UpsertPosting(context.Background(), p); err != nil {
		t.Fatalf("UpsertPosting: %v", err)
	}
	return p
}

func TestSubmitEmailHappyPath(t *testing.T) {
	st := store.NewMemoryStore()
	sender := &fakeSender{}
	counter := quota.NewDailyCounter(5, 0)
	sub := New(st, sender, nil, counter, testProfile(), discardLogger())
	posting := seedPosting(t, st, "p1", strp("jobs@acme.example"))

	res := sub.Submit(context.Background(), posting, model.MethodEmail)
	if res.Outcome != OutcomeSubmitted {
		t.Fatalf("outcome = %s, want submitted (err: %v)", res.Outcome, res.Err)
	}
	if !res.Recorded {
		t.Error("expected the submission to be recorded")
	}
	if counter.Used() != 1 {
		t.Errorf("counter used = %d, want 1", counter.Used())
	}

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != "jobs@acme.example" {
		t.Errorf("recipient = %s", msg.To)
	}
	if msg.Subject != "Application for Backend Engineer Position" {
		t.Errorf("subject = %q", msg.Subject)
	}
	for _, want := range []string{"Dear Hiring Manager", "Acme", "Paris", "Marie Girault"} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("body missing %q", want)
		}
	}

	app, err := st.GetApplication(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetApplication: %v", err)
	}
	if app.Status != model.StatusSent || app.Method != model.MethodEmail {
		t.Errorf("stored application = %+v", app)
	}
}

func TestSubmitQuotaExceededHasNoSideEffects(t *testing.T) {
	st := store.NewMemoryStore()
	sender := &fakeSender{}
	counter := quota.NewDailyCounter(0, 0)
	sub := New(st, sender, nil, counter, testProfile(), discardLogger())
	posting := seedPosting(t, st, "p1", strp("jobs@acme.example"))

	res := sub.Submit(context.Background(), posting, model.MethodEmail)
	if res.Outcome != OutcomeQuotaExceeded {
		t.Fatalf("outcome = %s, want quota_exceeded", res.Outcome)
	}
	if len(sender.sent) != 0 {
		t.Error("message sent despite exhausted quota")
	}
	if _, err := st.GetApplication(context.Background(), "p1"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("store written despite exhausted quota: %v", err)
	}
}

func TestSubmitMissingContactWritesNothing(t *testing.T) {
	st := store.NewMemoryStore()
	sender := &fakeSender{}
	counter := quota.NewDailyCounter(5, 0)
	sub := New(st, sender, nil, counter, testProfile(), discardLogger())
	posting := seedPosting(t, st, "p1", nil)

	res := sub.Submit(context.Background(), posting, model.MethodEmail)
	if res.Outcome != OutcomeMissingContact {
		t.Fatalf("outcome = %s, want missing_contact", res.Outcome)
	}
	if len(sender.sent) != 0 {
		t.Error("message sent without a contact email")
	}
	if _, err := st.GetApplication(context.Background(), "p1"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("store written on missing contact: %v", err)
	}
	if counter.Used() != 0 {
		t.Errorf("counter used = %d, want 0 after refused submission", counter.Used())
	}
}

func TestSubmitSendFailureReleasesSlot(t *testing.T) {
	st := store.NewMemoryStore()
	sendErr := &model.SendError{Recipient: "jobs@acme.example", Err: errors.New("connection refused")}
	sender := &fakeSender{err: sendErr}
	counter := quota.NewDailyCounter(1, 0)
	sub := New(st, sender, nil, counter, testProfile(), discardLogger())
	posting := seedPosting(t, st, "p1", strp("jobs@acme.example"))

	res := sub.Submit(context.Background(), posting, model.MethodEmail)
	if res.Outcome != OutcomeSendFailed {
		t.Fatalf("outcome = %s, want send_failed", res.Outcome)
	}
	if res.Err == nil {
		t.Error("send failure carried no error")
	}
	if _, err := st.GetApplication(context.Background(), "p1"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("store written after failed send: %v", err)
	}

	// The slot came back, so a retry can go out.
	sender.err = nil
	res = sub.Submit(context.Background(), posting, model.MethodEmail)
	if res.Outcome != OutcomeSubmitted {
		t.Errorf("retry outcome = %s, want submitted", res.Outcome)
	}
}

func TestSubmitFormWithoutAutomatorUnsupported(t *testing.T) {
	st := store.NewMemoryStore()
	counter := quota.NewDailyCounter(5, 0)
	sub := New(st, &fakeSender{}, nil, counter, testProfile(), discardLogger())
	posting := seedPosting(t, st, "p1", strp("jobs@acme.example"))

	for _, method := range []model.Method{model.MethodForm, model.MethodPlatform} {
		res := sub.Submit(context.Background(), posting, method)
		if res.Outcome != OutcomeUnsupported {
			t.Errorf("%s outcome = %s, want unsupported", method, res.Outcome)
		}
	}
	if counter.Used() != 0 {
		t.Errorf("counter used = %d, want 0", counter.Used())
	}
}

func TestSubmitFormWithAutomator(t *testing.T) {
	st := store.NewMemoryStore()
	automator := &fakeAutomator{}
	counter := quota.NewDailyCounter(5, 0)
	sub := New(st, &fakeSender{}, automator, counter, testProfile(), discardLogger())
	posting := seedPosting(t, st, "p1", nil)

	res := sub.Submit(context.Background(), posting, model.MethodForm)
	if res.Outcome != OutcomeSubmitted {
		t.Fatalf("outcome = %s, want submitted (err: %v)", res.Outcome, res.Err)
	}
	if automator.calls != 1 {
		t.Errorf("automator called %d times, want 1", automator.calls)
	}

	app, err := st.GetApplication(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetApplication: %v", err)
	}
	if app.Method != model.MethodForm {
		t.Errorf("stored method = %s, want form", app.Method)
	}
}

func TestSubmitAlreadyAppliedKeepsSlot(t *testing.T) {
	st := store.NewMemoryStore()
	sender := &fakeSender{}
	counter := quota.NewDailyCounter(5, 0)
	sub := New(st, sender, nil, counter, testProfile(), discardLogger())
	posting := seedPosting(t, st, "p1", strp("jobs@acme.example"))

	err := st.CreateApplication(context.Background(), "p1", model.Application{
		Method: model.MethodEmail, Status: model.StatusSent, AppliedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateApplication: %v", err)
	}

	res := sub.Submit(context.Background(), posting, model.MethodEmail)
	if res.Outcome != OutcomeSubmitted {
		t.Fatalf("outcome = %s, want submitted", res.Outcome)
	}
	if res.Recorded {
		t.Error("expected recorded=false when the application row already existed")
	}
	if !errors.Is(res.Err, model.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", res.Err)
	}
	// The message really went out, so the slot stays consumed.
	if counter.Used() != 1 {
		t.Errorf("counter used = %d, want 1", counter.Used())
	}
}

func TestConcurrentSubmitsRespectCap(t *testing.T) {
	const limit = 3
	st := store.NewMemoryStore()
	sender := &fakeSender{}
	counter := quota.NewDailyCounter(limit, 0)
	sub := New(st, sender, nil, counter, testProfile(), discardLogger())

	postings := make([]model.Posting, 10)
	for i := range postings {
		id := fmt.Sprintf("p%d", i)
		postings[i] = seedPosting(t, st, id, strp("jobs@acme.example"))
	}

	results := make(chan Result, len(postings))
	var wg sync.WaitGroup
	for _, p := range postings {
		wg.Add(1)
		go func(p model.Posting) {
			defer wg.Done()
			results <- sub.Submit(context.Background(), p, model.MethodEmail)
		}(p)
	}
	wg.Wait()
	close(results)

	var submitted, refused int
	for res := range results {
		switch res.Outcome {
		case OutcomeSubmitted:
			submitted++
		case OutcomeQuotaExceeded:
			refused++
		default:
			t.Errorf("unexpected outcome %s (err: %v)", res.Outcome, res.Err)
		}
	}
	if submitted != limit {
		t.Errorf("submitted = %d, want exactly %d", submitted, limit)
	}
	if refused != len(postings)-limit {
		t.Errorf("refused = %d, want %d", refused, len(postings)-limit)
	}
	if sender.count() != limit {
		t.Errorf("messages sent = %d, want %d", sender.count(), limit)
	}

	recs, err := st.Query(context.Background(), model.QueryFilter{
		Statuses: []model.Status{model.StatusSent},
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(recs) != limit {
		t.Errorf("stored applications = %d, want %d", len(recs), limit)
	}
}

func TestCoverLetterDeterministic(t *testing.T) {
	st := store.NewMemoryStore()
	sender := &fakeSender{}
	sub := New(st, sender, nil, quota.NewDailyCounter(5, 0), testProfile(), discardLogger())

	a := seedPosting(t, st, "a", strp("jobs@acme.example"))
	b := seedPosting(t, st, "b", strp("jobs@acme.example"))

	if res := sub.Submit(context.Background(), a, model.MethodEmail); res.Outcome != OutcomeSubmitted {
		t.Fatalf("first submit: %s", res.Outcome)
	}
	if res := sub.Submit(context.Background(), b, model.MethodEmail); res.Outcome != OutcomeSubmitted {
		t.Fatalf("second submit: %s", res.Outcome)
	}
	if sender.sent[0].Body != sender.sent[1].Body {
		t.Error("identical posting fields produced different cover letters")
	}
}
