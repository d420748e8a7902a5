// Package dispatch connects settled recordings to their consequences:
// storage fan-out, notifications and podcast publication. It implements
// the runner surface the scheduler drives.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"aircheck/internal/fanout"
	"aircheck/internal/logging"
	"aircheck/internal/notify"
	"aircheck/internal/podcast"
	"aircheck/internal/store"
	"aircheck/internal/supervisor"
)

// Options configures the dispatcher.
type Options struct {
	Supervisor *supervisor.Supervisor
	Fanout     *fanout.Service
	Notifier   notify.Service
	Podcasts   *podcast.Service
	Logger     *slog.Logger
}

// Dispatcher runs recordings and handles their terminal consequences.
type Dispatcher struct {
	supervisor *supervisor.Supervisor
	fanout     *fanout.Service
	notifier   notify.Service
	podcasts   *podcast.Service
	logger     *slog.Logger
}

// New constructs a dispatcher.
func New(opts Options) (*Dispatcher, error) {
	if opts.Supervisor == nil {
		return nil, errors.New("supervisor required")
	}
	if opts.Fanout == nil {
		return nil, errors.New("fanout service required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		supervisor: opts.Supervisor,
		fanout:     opts.Fanout,
		notifier:   opts.Notifier,
		podcasts:   opts.Podcasts,
		logger:     logging.WithComponent(logger, "dispatch"),
	}, nil
}

// Run drives one recording to its terminal state and processes the
// outcome. Implements the scheduler's runner surface.
func (d *Dispatcher) Run(ctx context.Context, rec *store.Recording) {
	outcome, err := d.supervisor.Run(ctx, rec)
	if err != nil {
		d.logger.ErrorContext(ctx, "recording run failed",
			logging.Int64(logging.FieldRecordingID, rec.ID),
			logging.Error(err))
		return
	}
	d.handleOutcome(ctx, outcome)
}

// Settle closes out an abandoned recording and processes the outcome.
func (d *Dispatcher) Settle(ctx context.Context, rec *store.Recording) {
	outcome, err := d.supervisor.SettleAbandoned(ctx, rec)
	if err != nil {
		d.logger.ErrorContext(ctx, "abandoned settlement failed",
			logging.Int64(logging.FieldRecordingID, rec.ID),
			logging.Error(err))
		return
	}
	d.handleOutcome(ctx, outcome)
}

// handleOutcome fans the final file out, notifies the operator and
// publishes the podcast episode. Notification and publication failures
// are logged, never propagated.
func (d *Dispatcher) handleOutcome(ctx context.Context, outcome *supervisor.Outcome) {
	if outcome == nil {
		return
	}
	// Terminal handling must finish even when the daemon is stopping.
	ctx = context.WithoutCancel(ctx)
	rec := outcome.Recording
	logger := d.logger.With(logging.Int64(logging.FieldRecordingID, rec.ID))

	summary := notify.Summary{
		RecordingID: rec.ID,
		Name:        rec.Name,
		Status:      string(rec.Status),
		Duration:    rec.Duration(),
		FileSize:    rec.FileSize,
	}

	if rec.Status != store.StatusFailed && outcome.MergedPath != "" {
		result, err := d.fanout.Deliver(ctx, rec, outcome.MergedPath)
		if err != nil {
			logger.ErrorContext(ctx, "storage fan-out failed", logging.Error(err))
			summary.FailedDestinations = append(summary.FailedDestinations, string(store.DestinationFlat))
			if d.notifier != nil {
				storageCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
				if nerr := d.notifier.NotifyStorageFailure(storageCtx, rec.Name, string(store.DestinationFlat), err.Error()); nerr != nil {
					logger.WarnContext(ctx, "storage failure notification failed", logging.Error(nerr))
				}
				cancel()
			}
		} else {
			summary.FailedDestinations = result.FailedDestinations
			rec.FinalFile = result.FlatPath
			if err := d.updateFinalFile(ctx, rec); err != nil {
				logger.WarnContext(ctx, "persist final location failed", logging.Error(err))
			}
		}
	}

	if d.notifier != nil {
		notifyCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := d.notifier.NotifyRecordingFinished(notifyCtx, summary); err != nil {
			logger.WarnContext(ctx, "notification failed", logging.Error(err))
		}
		cancel()
	}

	if d.podcasts != nil {
		if _, err := d.podcasts.PublishRecording(ctx, rec); err != nil {
			logger.WarnContext(ctx, "podcast publication failed", logging.Error(err))
		}
	}
}

func (d *Dispatcher) updateFinalFile(ctx context.Context, rec *store.Recording) error {
	return d.fanout.PersistFinalLocation(ctx, rec)
}
