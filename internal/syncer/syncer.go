package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Source lists events from the source calendar within a window.
// Implementations must page through all results; silent truncation breaks
// the delete half of reconciliation.
type Source interface {
	List(ctx context.Context, window Window) ([]Event, error)
}

// Target is the writable side of the sync. List must return only events
// carrying the tool's managed marker, so user-created events are invisible
// to reconciliation and never touched.
type Target interface {
	List(ctx context.Context, window Window) ([]Event, error)
	Create(ctx context.Context, event Event) (Event, error)
	Update(ctx context.Context, target Event, event Event) error
	Delete(ctx context.Context, id string) error
}

// Recorder receives per-run sync metrics. Implementations must be safe to
// call with a nil receiver guard; the Syncer itself tolerates a nil Recorder.
type Recorder interface {
	RecordEvents(ctx context.Context, operation string, count int)
	RecordRunDuration(ctx context.Context, d time.Duration, success bool)
}

// Options configures a Syncer.
type Options struct {
	Logger *slog.Logger
	Fields FieldSet

	// DryRun logs the plan without applying any writes.
	DryRun bool

	Recorder Recorder
}

// Result summarizes one completed run.
type Result struct {
	SourceEvents int
	TargetEvents int
	Created      int
	Updated      int
	Deleted      int
}

// Syncer runs one-way reconciliation passes from a source to a target
// calendar. It holds no state between runs; every pass re-reads both sides.
type Syncer struct {
	source Source
	target Target
	opts   Options
}

// New creates a Syncer. A nil Logger falls back to slog.Default.
func New(source Source, target Target, opts Options) *Syncer {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Fields == nil {
		opts.Fields = DefaultFields()
	}
	return &Syncer{source: source, target: target, opts: opts}
}

// Run performs a full reconciliation pass and applies the resulting plan in
// create, update, delete order. On error the target is left in whatever
// state the last successful write produced; there is no rollback.
func (s *Syncer) Run(ctx context.Context, window Window) (Result, error) {
	logger := s.opts.Logger
	started := time.Now()
	logger.Info("sync run started",
		slog.Time("window_start", window.Start),
		slog.Time("window_end", window.End),
	)

	result, err := s.run(ctx, window)
	if s.opts.Recorder != nil {
		s.opts.Recorder.RecordRunDuration(ctx, time.Since(started), err == nil)
	}
	if err != nil {
		logger.Error("sync run failed", slog.String("error", err.Error()))
		return result, err
	}
	logger.Info("sync run finished",
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated),
		slog.Int("deleted", result.Deleted),
		slog.Duration("duration", time.Since(started)),
	)
	return result, nil
}

func (s *Syncer) run(ctx context.Context, window Window) (Result, error) {
	var result Result

	sourceEvents, err := s.source.List(ctx, window)
	if err != nil {
		return result, fmt.Errorf("failed to list source events: %w", err)
	}
	result.SourceEvents = len(sourceEvents)
	s.opts.Logger.Debug("fetched source events", slog.Int("count", len(sourceEvents)))

	targetEvents, err := s.target.List(ctx, window)
	if err != nil {
		return result, fmt.Errorf("failed to list target events: %w", err)
	}
	result.TargetEvents = len(targetEvents)
	s.opts.Logger.Debug("fetched managed target events", slog.Int("count", len(targetEvents)))

	plan, err := Reconcile(sourceEvents, targetEvents, s.opts.Fields)
	if err != nil {
		return result, err
	}
	if plan.Empty() {
		s.opts.Logger.Info("calendars already in sync")
		return result, nil
	}

	if s.opts.DryRun {
		s.logPlan(plan)
		return result, nil
	}
	return s.apply(ctx, plan, result)
}

func (s *Syncer) apply(ctx context.Context, plan Plan, result Result) (Result, error) {
	logger := s.opts.Logger

	for _, ev := range plan.Create {
		created, err := s.target.Create(ctx, ev)
		if err != nil {
			return result, fmt.Errorf("failed to create event %q: %w", ev.Title, err)
		}
		result.Created++
		logger.Debug("event created",
			slog.String("title", ev.Title),
			slog.Time("start", ev.Start),
			slog.String("id", created.ID),
		)
	}
	s.record(ctx, "create", result.Created)

	for _, pair := range plan.Update {
		if err := s.target.Update(ctx, pair.Target, pair.Source); err != nil {
			return result, fmt.Errorf("failed to update event %q: %w", pair.Source.Title, err)
		}
		result.Updated++
		logger.Debug("event updated",
			slog.String("title", pair.Source.Title),
			slog.String("id", pair.Target.ID),
		)
	}
	s.record(ctx, "update", result.Updated)

	for _, ev := range plan.Delete {
		if err := s.target.Delete(ctx, ev.ID); err != nil {
			return result, fmt.Errorf("failed to delete event %q: %w", ev.Title, err)
		}
		result.Deleted++
		logger.Debug("orphaned event deleted",
			slog.String("title", ev.Title),
			slog.String("id", ev.ID),
		)
	}
	s.record(ctx, "delete", result.Deleted)

	return result, nil
}

func (s *Syncer) record(ctx context.Context, operation string, count int) {
	if s.opts.Recorder != nil && count > 0 {
		s.opts.Recorder.RecordEvents(ctx, operation, count)
	}
}

func (s *Syncer) logPlan(plan Plan) {
	logger := s.opts.Logger
	for _, ev := range plan.Create {
		logger.Info("[dry-run] would create event",
			slog.String("title", ev.Title), slog.Time("start", ev.Start))
	}
	for _, pair := range plan.Update {
		logger.Info("[dry-run] would update event",
			slog.String("title", pair.Source.Title), slog.String("id", pair.Target.ID))
	}
	for _, ev := range plan.Delete {
		logger.Info("[dry-run] would delete event",
			slog.String("title", ev.Title), slog.String("id", ev.ID))
	}
}
