// Package lifecycle moves applications through their state machine:
// sent → contacted → interview → rejected/accepted. Each event shapes a
// partial update; the store validates the status transition atomically, so
// an illegal event fails without changing the record.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mgirault/postule/internal/model"
)

// Tracker records lifecycle events against stored applications.
type Tracker struct {
	store  model.Store
	logger *slog.Logger
}

func New(store model.Store, logger *slog.Logger) *Tracker {
	return &Tracker{store: store, logger: logger}
}

// RecordResponse marks a company reply, moving the application to
// contacted and stamping the reply time.
func (t *Tracker) RecordResponse(ctx context.Context, postingID string, kind model.ResponseKind, note string) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown response kind %q", kind)
	}
	status := model.StatusContacted
	now := time.Now().UTC()
	update := model.ApplicationUpdate{
		Status:       &status,
		ContactedAt:  &now,
		ResponseKind: &kind,
	}
	if note != "" {
		update.ResponseNote = &note
	}
	if err := t.store.UpdateApplication(ctx, postingID, update); err != nil {
		return fmt.Errorf("recording response: %w", err)
	}
	t.logger.Info("response recorded", "posting_id", postingID, "kind", string(kind))
	return nil
}

// ScheduleInterview moves the application to interview. The date is
// required; slot, kind and location travel along as given.
func (t *Tracker) ScheduleInterview(ctx context.Context, postingID string, iv model.Interview) error {
	if iv.Date.IsZero() {
		return errors.New("interview date is required")
	}
	if iv.Kind != "" && !iv.Kind.Valid() {
		return fmt.Errorf("unknown interview kind %q", iv.Kind)
	}
	status := model.StatusInterview
	err := t.store.UpdateApplication(ctx, postingID, model.ApplicationUpdate{
		Status:    &status,
		Interview: &iv,
	})
	if err != nil {
		return fmt.Errorf("scheduling interview: %w", err)
	}
	t.logger.Info("interview scheduled",
		"posting_id", postingID, "date", iv.Date.Format("2006-01-02"))
	return nil
}

// RecordRejection closes the application as rejected.
func (t *Tracker) RecordRejection(ctx context.Context, postingID, reason string) error {
	status := model.StatusRejected
	update := model.ApplicationUpdate{Status: &status}
	if reason != "" {
		update.RejectionReason = &reason
	}
	if err := t.store.UpdateApplication(ctx, postingID, update); err != nil {
		return fmt.Errorf("recording rejection: %w", err)
	}
	t.logger.Info("rejection recorded", "posting_id", postingID)
	return nil
}

// RecordOffer closes the application as accepted.
func (t *Tracker) RecordOffer(ctx context.Context, postingID, note string) error {
	status := model.StatusAccepted
	update := model.ApplicationUpdate{Status: &status}
	if note != "" {
		update.Notes = &note
	}
	if err := t.store.UpdateApplication(ctx, postingID, update); err != nil {
		return fmt.Errorf("recording offer: %w", err)
	}
	t.logger.Info("offer recorded", "posting_id", postingID)
	return nil
}

// AddNote appends note to the application's free-form notes without
// touching the status.
func (t *Tracker) AddNote(ctx context.Context, postingID, note string) error {
	if note == "" {
		return errors.New("note is empty")
	}
	app, err := t.store.GetApplication(ctx, postingID)
	if err != nil {
		return fmt.Errorf("adding note: %w", err)
	}
	combined := note
	if app.Notes != nil && *app.Notes != "" {
		combined = *app.Notes + "\n" + note
	}
	if err := t.store.UpdateApplication(ctx, postingID, model.ApplicationUpdate{Notes: &combined}); err != nil {
		return fmt.Errorf("adding note: %w", err)
	}
	t.logger.Debug("note added", "posting_id", postingID)
	return nil
}
