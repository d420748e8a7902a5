// Package scheduler expands schedule rules into concrete recordings and
// fires them at their start times. One goroutine per due recording is
// handed to the runner; the scheduler itself never blocks on a recording.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"aircheck/internal/logging"
	"aircheck/internal/services"
	"aircheck/internal/store"
)

// Runner executes or settles recordings on the scheduler's behalf.
type Runner interface {
	// Run drives a live recording to its terminal state. It blocks until
	// the recording settles; the scheduler calls it on its own goroutine.
	Run(ctx context.Context, rec *store.Recording)
	// Settle closes out a recording whose window expired while the
	// daemon was not running.
	Settle(ctx context.Context, rec *store.Recording)
}

// Options configures the scheduler.
type Options struct {
	Store  *store.Store
	Runner Runner
	Logger *slog.Logger
	Tick   time.Duration

	// DefaultFormat and DefaultBitrate apply to instances of stations
	// whose probe reported no codec or bitrate.
	DefaultFormat  string
	DefaultBitrate int
}

// Scheduler owns rule expansion and recording dispatch.
type Scheduler struct {
	store          *store.Store
	runner         Runner
	logger         *slog.Logger
	tick           time.Duration
	defaultFormat  string
	defaultBitrate int

	wg sync.WaitGroup
}

// New constructs a scheduler.
func New(opts Options) (*Scheduler, error) {
	if opts.Store == nil {
		return nil, errors.New("store required")
	}
	if opts.Runner == nil {
		return nil, errors.New("runner required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = 5 * time.Second
	}
	format := opts.DefaultFormat
	if format == "" {
		format = "mp3"
	}
	bitrate := opts.DefaultBitrate
	if bitrate <= 0 {
		bitrate = 128
	}
	return &Scheduler{
		store:          opts.Store,
		runner:         opts.Runner,
		logger:         logging.WithComponent(logger, "scheduler"),
		tick:           tick,
		defaultFormat:  format,
		defaultBitrate: bitrate,
	}, nil
}

// SubmitRule validates a rule against its station, persists it and
// materializes its first recording instance.
func (s *Scheduler) SubmitRule(ctx context.Context, rule *store.Rule) (*store.Rule, error) {
	if rule == nil {
		return nil, errors.New("rule required")
	}
	if rule.Name == "" {
		return nil, services.Wrap(services.ErrValidation, "scheduler", "submit", "rule name required", nil)
	}
	if rule.Duration <= 0 {
		return nil, services.Wrap(services.ErrValidation, "scheduler", "submit", "rule duration must be positive", nil)
	}
	if _, ok := store.ParseRecurrence(string(rule.Recurrence)); !ok {
		return nil, services.Wrap(services.ErrValidation, "scheduler", "submit", fmt.Sprintf("unknown recurrence %q", rule.Recurrence), nil)
	}
	if rule.RecurrenceEnd != nil && rule.RecurrenceEnd.Before(rule.Start) {
		return nil, services.Wrap(services.ErrValidation, "scheduler", "submit", "recurrence end precedes first start", nil)
	}

	station, err := s.store.StationByID(ctx, rule.StationID)
	if err != nil {
		return nil, fmt.Errorf("load station: %w", err)
	}
	if station == nil {
		return nil, services.Wrap(services.ErrNotFound, "scheduler", "submit", fmt.Sprintf("station %d not found", rule.StationID), nil)
	}
	if !station.Valid {
		return nil, services.Wrap(services.ErrValidation, "scheduler", "submit", fmt.Sprintf("station %q has not been validated", station.Name), nil)
	}

	if _, ok := NextOccurrence(rule, time.Now().UTC()); !ok {
		return nil, services.Wrap(services.ErrValidation, "scheduler", "submit", "rule has no future occurrence", nil)
	}

	created, err := s.store.CreateRule(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}
	if _, err := s.materializeNext(ctx, created, station); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "rule submitted",
		logging.String("name", created.Name),
		logging.String("recurrence", string(created.Recurrence)))
	return created, nil
}

// CancelRecording removes a recording that has not started. Recordings
// already on air or settled cannot be cancelled.
func (s *Scheduler) CancelRecording(ctx context.Context, id int64) error {
	deleted, err := s.store.DeleteScheduled(ctx, id)
	if err != nil {
		return fmt.Errorf("cancel recording: %w", err)
	}
	if !deleted {
		return services.Wrap(services.ErrValidation, "scheduler", "cancel", fmt.Sprintf("recording %d is not cancellable", id), nil)
	}
	s.logger.InfoContext(ctx, "recording cancelled", logging.Int64(logging.FieldRecordingID, id))
	return nil
}

// RecoverOnStartup reconciles persisted state with reality after a
// restart: recordings whose window expired settle with whatever segments
// they have, recordings still inside their window resume, and every rule
// gets its pending instance back.
func (s *Scheduler) RecoverOnStartup(ctx context.Context) error {
	now := time.Now().UTC()

	abandoned, err := s.store.AbandonedBefore(ctx, now)
	if err != nil {
		return fmt.Errorf("list abandoned recordings: %w", err)
	}
	for _, rec := range abandoned {
		s.logger.WarnContext(ctx, "settling abandoned recording",
			logging.Int64(logging.FieldRecordingID, rec.ID),
			logging.String("name", rec.Name))
		s.runner.Settle(ctx, rec)
	}

	active, err := s.store.ActiveAt(ctx, now)
	if err != nil {
		return fmt.Errorf("list active recordings: %w", err)
	}
	for _, rec := range active {
		s.logger.InfoContext(ctx, "resuming in-window recording",
			logging.Int64(logging.FieldRecordingID, rec.ID),
			logging.String("name", rec.Name))
		s.launch(ctx, rec)
	}

	return s.ensureInstances(ctx)
}

// Start runs the tick loop until the context is cancelled, then waits for
// in-flight recordings to settle.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			if err := s.tickOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "scheduler tick failed", logging.Error(err))
			}
		}
	}
}

// Wait blocks until all launched recordings have settled.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) tickOnce(ctx context.Context) error {
	if err := s.ensureInstances(ctx); err != nil {
		return err
	}
	due, err := s.store.DueScheduled(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("list due recordings: %w", err)
	}
	for _, rec := range due {
		s.launch(ctx, rec)
	}
	return nil
}

// launch hands a recording to the runner on its own goroutine. The
// begin-transition guard inside the runner makes duplicate launches
// harmless.
func (s *Scheduler) launch(ctx context.Context, rec *store.Recording) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runner.Run(ctx, rec)
	}()
}

// ensureInstances gives every rule with a live recurrence a pending
// recording instance.
func (s *Scheduler) ensureInstances(ctx context.Context) error {
	rules, err := s.store.ListRules(ctx)
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}
	for _, rule := range rules {
		pending, err := s.store.NextScheduledForRule(ctx, rule.ID)
		if err != nil {
			return err
		}
		if pending != nil {
			continue
		}
		station, err := s.store.StationByID(ctx, rule.StationID)
		if err != nil || station == nil {
			continue
		}
		if _, err := s.materializeNext(ctx, rule, station); err != nil {
			s.logger.WarnContext(ctx, "materialize next occurrence failed",
				logging.String("rule", rule.Name),
				logging.Error(err))
		}
	}
	return nil
}

// materializeNext creates the concrete recording for a rule's next
// occurrence. Once-rules whose occurrence already fired produce nothing.
func (s *Scheduler) materializeNext(ctx context.Context, rule *store.Rule, station *store.Station) (*store.Recording, error) {
	reference := time.Now().UTC()

	// An occurrence that already produced a recording must not fire
	// twice; search past the latest known instance.
	if latest, err := s.latestInstanceStart(ctx, rule.ID); err == nil && latest != nil {
		if latest.Add(rule.Duration).After(reference) {
			reference = latest.Add(rule.Duration)
		}
	}

	start, ok := NextOccurrence(rule, reference)
	if !ok {
		return nil, nil
	}

	format := station.Format
	if format == "" {
		format = s.defaultFormat
	}
	bitrate := station.Bitrate
	if bitrate <= 0 {
		bitrate = s.defaultBitrate
	}
	rec, err := s.store.CreateRecording(ctx, &store.Recording{
		RuleID:     &rule.ID,
		StationID:  rule.StationID,
		Name:       rule.Name,
		Start:      start,
		End:        start.Add(rule.Duration),
		Format:     format,
		Bitrate:    bitrate,
		PodcastID:  rule.PodcastID,
		ExtraLocal: rule.ExtraLocal,
		Remote:     rule.Remote,
		KeepCount:  rule.KeepCount,
	})
	if err != nil {
		return nil, fmt.Errorf("materialize occurrence: %w", err)
	}
	s.logger.InfoContext(ctx, "occurrence materialized",
		logging.String("rule", rule.Name),
		logging.Int64(logging.FieldRecordingID, rec.ID),
		logging.Time("start", start))
	return rec, nil
}

func (s *Scheduler) latestInstanceStart(ctx context.Context, ruleID int64) (*time.Time, error) {
	recs, err := s.store.ListRecordings(ctx)
	if err != nil {
		return nil, err
	}
	var latest *time.Time
	for _, rec := range recs {
		if rec.RuleID == nil || *rec.RuleID != ruleID {
			continue
		}
		start := rec.Start
		if latest == nil || start.After(*latest) {
			latest = &start
		}
	}
	return latest, nil
}
