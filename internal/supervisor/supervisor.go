// Package supervisor runs one recording from its start time to its hard
// end: it drives capture attempts, retries interrupted streams with a
// backoff bounded by the recording window, and settles the recording into
// its terminal status with a merged output file.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"aircheck/internal/capture"
	"aircheck/internal/events"
	"aircheck/internal/logging"
	"aircheck/internal/notify"
	"aircheck/internal/services"
	"aircheck/internal/store"
)

// Recorder is the slice of the capture client the supervisor needs.
type Recorder interface {
	Capture(ctx context.Context, job capture.Job) (*capture.Result, error)
	Merge(ctx context.Context, segmentPaths []string, outputPath string) error
}

// Outcome reports how a recording settled.
type Outcome struct {
	Recording  *store.Recording
	MergedPath string
}

// Options configures a supervisor.
type Options struct {
	Store      *store.Store
	Recorder   Recorder
	Publisher  events.Publisher
	Notifier   notify.Service
	Registry   *Registry
	Logger     *slog.Logger
	StagingDir string
	Backoff    time.Duration
}

// Supervisor owns the in-flight state machine for recordings.
type Supervisor struct {
	store     *store.Store
	recorder  Recorder
	publisher events.Publisher
	notifier  notify.Service
	registry  *Registry
	logger    *slog.Logger

	stagingDir string
	backoff    time.Duration
}

// New constructs a supervisor.
func New(opts Options) (*Supervisor, error) {
	if opts.Store == nil {
		return nil, errors.New("store required")
	}
	if opts.Recorder == nil {
		return nil, errors.New("recorder required")
	}
	if opts.StagingDir == "" {
		return nil, errors.New("staging directory required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	registry := opts.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 30 * time.Second
	}
	return &Supervisor{
		store:      opts.Store,
		recorder:   opts.Recorder,
		publisher:  publisher,
		notifier:   opts.Notifier,
		registry:   registry,
		logger:     logging.WithComponent(logger, "supervisor"),
		stagingDir: opts.StagingDir,
		backoff:    backoff,
	}, nil
}

// Run executes the recording until its hard end and settles it into a
// terminal status. Run is safe to call concurrently for different
// recordings; calling it twice for the same recording is a no-op because
// the begin transition is guarded.
func (s *Supervisor) Run(ctx context.Context, rec *store.Recording) (*Outcome, error) {
	if rec == nil {
		return nil, errors.New("recording required")
	}
	ctx = services.WithRecordingID(ctx, rec.ID)
	logger := s.logger.With(logging.Int64(logging.FieldRecordingID, rec.ID))

	resumed := rec.Status == store.StatusRecording
	if rec.Status == store.StatusScheduled {
		started, err := s.store.BeginRecording(ctx, rec.ID)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "supervisor", "begin", "transition recording", err)
		}
		if !started {
			logger.InfoContext(ctx, "recording already handled, skipping")
			return nil, nil
		}
		rec.Status = store.StatusRecording
	} else if !resumed {
		return nil, fmt.Errorf("recording %d is %s, not runnable", rec.ID, rec.Status)
	}

	// A resumed recording keeps the segments it captured before the
	// restart; the restart itself is a coverage gap.
	var segments []*store.Segment
	if resumed {
		persisted, err := s.store.SegmentsForRecording(ctx, rec.ID)
		if err != nil {
			return nil, fmt.Errorf("load prior segments: %w", err)
		}
		segments = persisted
		if !rec.Interrupted {
			rec.Interrupted = true
			if err := s.store.UpdateRecording(ctx, rec); err != nil {
				logger.WarnContext(ctx, "persist interrupted flag failed", logging.Error(err))
			}
		}
		logger.InfoContext(ctx, "resuming recording",
			logging.Int("segments", len(segments)))
	}

	claimed, release := s.registry.Claim(rec.Name)
	defer release()
	if claimed != rec.Name {
		logger.WarnContext(ctx, "name already on air, using suffixed name",
			logging.String("name", claimed))
		rec.Name = claimed
		if err := s.store.UpdateRecording(ctx, rec); err != nil {
			logger.WarnContext(ctx, "persist suffixed name failed", logging.Error(err))
		}
	}

	station, err := s.store.StationByID(ctx, rec.StationID)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "supervisor", "station", "load station", err)
	}

	runCtx, cancel := context.WithDeadline(ctx, rec.End)
	defer cancel()

	if station == nil || !station.Valid {
		logger.ErrorContext(ctx, "station unavailable, failing recording",
			logging.Int64(logging.FieldStationID, rec.StationID))
		return s.settle(ctx, rec, segments)
	}

	s.publisher.Publish(ctx, events.RecordingStartRequested, events.Payload{
		RecordingID: rec.ID,
		StationID:   rec.StationID,
		Name:        rec.Name,
		OccurredAt:  time.Now().UTC(),
	})
	if s.notifier != nil && !resumed {
		notifyCtx, cancelNotify := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		go func() {
			defer cancelNotify()
			if err := s.notifier.NotifyRecordingStarted(notifyCtx, rec.Name); err != nil {
				logger.WarnContext(notifyCtx, "start notification failed", logging.Error(err))
			}
		}()
	}
	logger.InfoContext(ctx, "recording started",
		logging.String("name", rec.Name),
		logging.Duration("window", rec.Duration()))

	segments = append(segments, s.captureLoop(runCtx, logger, rec, station)...)

	// A daemon shutdown inside the window leaves the recording in place;
	// startup recovery resumes it with the segments captured so far.
	if ctx.Err() != nil && time.Until(rec.End) > 0 {
		logger.InfoContext(ctx, "shutdown during recording, leaving for resume",
			logging.Int("segments", len(segments)))
		return nil, nil
	}
	return s.settle(context.WithoutCancel(ctx), rec, segments)
}

// SettleAbandoned closes out a recording whose window expired while no
// supervisor was running, typically after a daemon restart. Segments that
// made it to disk before the outage still merge into a partial result.
func (s *Supervisor) SettleAbandoned(ctx context.Context, rec *store.Recording) (*Outcome, error) {
	if rec == nil {
		return nil, errors.New("recording required")
	}
	ctx = services.WithRecordingID(ctx, rec.ID)
	rec.Interrupted = true
	if err := s.store.UpdateRecording(ctx, rec); err != nil {
		s.logger.WarnContext(ctx, "persist interrupted flag failed",
			logging.Int64(logging.FieldRecordingID, rec.ID),
			logging.Error(err))
	}
	segments, err := s.store.SegmentsForRecording(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("load segments: %w", err)
	}
	return s.settle(ctx, rec, segments)
}

// captureLoop runs attempts until the window deadline, persisting each
// produced segment. Attempt failures set the interrupted flag and wait
// one backoff before retrying; the wait is cut short by the deadline.
func (s *Supervisor) captureLoop(ctx context.Context, logger *slog.Logger, rec *store.Recording, station *store.Station) []*store.Segment {
	var segments []*store.Segment
	stagingDir := filepath.Join(s.stagingDir, rec.Name)

	for {
		if time.Until(rec.End) <= 0 || ctx.Err() != nil {
			return segments
		}
		seq, err := s.store.NextSegmentSeq(ctx, rec.ID)
		if err != nil {
			logger.ErrorContext(ctx, "segment sequence lookup failed", logging.Error(err))
			seq = len(segments) + 1
		}

		job := capture.Job{
			StreamURL:  station.StreamURL,
			OutputPath: filepath.Join(stagingDir, "segment-"+strconv.Itoa(seq)+"."+rec.Format),
			Format:     rec.Format,
			Bitrate:    rec.Bitrate,
			StreamCopy: station.Format == rec.Format,
			StopAt:     rec.End,
		}
		result, captureErr := s.recorder.Capture(ctx, job)

		if result != nil {
			segment, storeErr := s.store.AddSegment(ctx, &store.Segment{
				RecordingID: rec.ID,
				Seq:         seq,
				Path:        result.Path,
				Size:        result.Size,
				StartedAt:   result.StartedAt,
				EndedAt:     result.EndedAt,
			})
			if storeErr != nil {
				logger.ErrorContext(ctx, "persist segment failed", logging.Error(storeErr))
			} else {
				segments = append(segments, segment)
			}
		}

		if captureErr == nil {
			// The attempt ran the window out.
			return segments
		}
		if time.Until(rec.End) <= 0 {
			return segments
		}

		logger.WarnContext(ctx, "capture interrupted, retrying",
			logging.Int("segment", seq),
			logging.Duration("backoff", s.backoff),
			logging.Error(captureErr))
		if !rec.Interrupted {
			rec.Interrupted = true
			if err := s.store.UpdateRecording(ctx, rec); err != nil {
				logger.WarnContext(ctx, "persist interrupted flag failed", logging.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			return segments
		case <-time.After(s.backoff):
		}
	}
}

// settle merges captured segments, classifies the terminal status and
// persists it. Classification follows coverage: uninterrupted audio is
// complete, interrupted-but-present audio is partial, nothing usable is
// failed.
func (s *Supervisor) settle(ctx context.Context, rec *store.Recording, segments []*store.Segment) (*Outcome, error) {
	logger := s.logger.With(logging.Int64(logging.FieldRecordingID, rec.ID))

	var mergedPath string
	status := store.StatusFailed
	var size int64

	usable := usableSegments(segments)
	if len(usable) > 0 {
		paths := make([]string, 0, len(usable))
		for _, segment := range usable {
			paths = append(paths, segment.Path)
		}
		mergedPath = filepath.Join(s.stagingDir, rec.Name, rec.Name+"-merged."+rec.Format)
		if err := s.recorder.Merge(ctx, paths, mergedPath); err != nil {
			logger.ErrorContext(ctx, "segment merge failed", logging.Error(err))
			mergedPath = ""
		} else {
			if info, err := os.Stat(mergedPath); err == nil {
				size = info.Size()
			}
			if rec.Interrupted || len(usable) > 1 {
				status = store.StatusPartial
			} else {
				status = store.StatusComplete
			}
		}
	}

	applied, err := s.store.FinishRecording(ctx, rec.ID, status, mergedPath, size)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "supervisor", "settle", "finish recording", err)
	}
	if !applied {
		logger.WarnContext(ctx, "recording already terminal, not settling again")
		return nil, nil
	}
	rec.Status = status
	rec.FinalFile = mergedPath
	rec.FileSize = size

	event := events.RecordingFailed
	switch status {
	case store.StatusComplete:
		event = events.RecordingCompleted
	case store.StatusPartial:
		event = events.RecordingPartial
	}
	s.publisher.Publish(ctx, event, events.Payload{
		RecordingID: rec.ID,
		StationID:   rec.StationID,
		Name:        rec.Name,
		Status:      string(status),
		FileSize:    size,
		Duration:    rec.Duration().String(),
		OccurredAt:  time.Now().UTC(),
	})
	logger.InfoContext(ctx, "recording settled",
		logging.String("status", string(status)),
		logging.Int("segments", len(segments)))

	return &Outcome{Recording: rec, MergedPath: mergedPath}, nil
}

func usableSegments(segments []*store.Segment) []*store.Segment {
	usable := make([]*store.Segment, 0, len(segments))
	for _, segment := range segments {
		if segment.Size > 0 {
			usable = append(usable, segment)
		}
	}
	return usable
}
