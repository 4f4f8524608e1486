// Package ingest runs the posting pipeline: fetch each configured board,
// normalize and dedupe into the store, then mine contact details for
// postings seen for the first time. One source failing never aborts the
// others; everything recoverable is logged and tallied instead.
package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mgirault/postule/internal/model"
	"github.com/mgirault/postule/internal/normalize"
	"github.com/mgirault/postule/internal/ratelimit"
	"github.com/mgirault/postule/internal/source"
)

const defaultWorkers = 4

// ContactEnricher mines contact info from a company website.
type ContactEnricher interface {
	Enrich(ctx context.Context, websiteURL string) (model.ContactInfo, error)
}

// Summary tallies one ingestion run.
type Summary struct {
	Found     int // raw postings fetched across all sources
	New       int // stored for the first time
	Duplicate int // already known, contact fields merged
	Skipped   int // incomplete records and failed store writes
	Enriched  int // new postings that gained contact info
	Failed    int // sources that errored out entirely
}

func (s *Summary) add(o Summary) {
	s.Found += o.Found
	s.New += o.New
	s.Duplicate += o.Duplicate
	s.Skipped += o.Skipped
	s.Enriched += o.Enriched
	s.Failed += o.Failed
}

// Runner owns the full ingestion pipeline across all configured sources.
type Runner struct {
	sources  []source.Source
	store    model.Store
	enricher ContactEnricher
	limiter  *ratelimit.KeyedLimiter
	workers  int
	logger   *slog.Logger
}

// NewRunner wires a runner. enricher may be nil to disable contact mining;
// workers <= 0 selects the default bound.
func NewRunner(
	sources []source.Source,
	store model.Store,
	enricher ContactEnricher,
	limiter *ratelimit.KeyedLimiter,
	workers int,
	logger *slog.Logger,
) *Runner {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Runner{
		sources:  sources,
		store:    store,
		enricher: enricher,
		limiter:  limiter,
		workers:  workers,
		logger:   logger,
	}
}

// Run fetches every source with bounded parallelism and returns the
// combined tally. The only returned error is context cancellation.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	logger := r.logger.With("run_id", uuid.NewString())
	logger.Info("ingestion started", "sources", len(r.sources))

	var (
		mu      sync.Mutex
		summary Summary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, src := range r.sources {
		src := src
		g.Go(func() error {
			tally := r.runSource(gctx, src, logger)
			mu.Lock()
			summary.add(tally)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	logger.Info("ingestion finished",
		"found", summary.Found, "new", summary.New, "duplicate", summary.Duplicate,
		"skipped", summary.Skipped, "enriched", summary.Enriched, "failed", summary.Failed)
	return summary, ctx.Err()
}

func (r *Runner) runSource(ctx context.Context, src source.Source, logger *slog.Logger) Summary {
	var tally Summary

	if err := r.limiter.Wait(ctx, src.Board()); err != nil {
		logger.Warn("source skipped", "source", src.Name(), "error", err)
		tally.Failed++
		return tally
	}

	raws, err := src.Fetch(ctx)
	if err != nil {
		logger.Warn("fetch failed", "source", src.Name(), "error", err)
		tally.Failed++
		return tally
	}
	tally.Found = len(raws)

	now := time.Now()
	for _, raw := range raws {
		p, err := normalize.Normalize(raw, now)
		if err != nil {
			logger.Debug("posting skipped",
				"source", src.Name(), "url", raw.URL, "error", err)
			tally.Skipped++
			continue
		}

		stored, wasNew, err := r.store.UpsertPosting(ctx, p)
		if err != nil {
			logger.Error("upsert failed",
				"source", src.Name(), "posting_id", p.ID, "error", err)
			tally.Skipped++
			continue
		}
		if !wasNew {
			tally.Duplicate++
			continue
		}
		tally.New++
		logger.Info("new posting",
			"posting_id", p.ID, "company", p.Company, "title", p.Title)

		if r.enricher != nil && stored.Contact.Website != nil && stored.Contact.Email == nil {
			if r.enrichPosting(ctx, stored, logger) {
				tally.Enriched++
			}
		}
	}
	return tally
}

// enrichPosting mines the company site and merges whatever it finds back
// into the stored record. Failures degrade to missing contact fields.
func (r *Runner) enrichPosting(ctx context.Context, p model.Posting, logger *slog.Logger) bool {
	info, err := r.enricher.Enrich(ctx, *p.Contact.Website)
	if err != nil {
		logger.Debug("enrichment failed", "posting_id", p.ID, "error", err)
		return false
	}
	if info.Email == nil && info.Phone == nil && !info.HasContactPage {
		return false
	}

	p.Contact = p.Contact.Merged(info)
	if _, _, err := r.store.UpsertPosting(ctx, p); err != nil {
		logger.Error("storing contact info failed", "posting_id", p.ID, "error", err)
		return false
	}
	return true
}
