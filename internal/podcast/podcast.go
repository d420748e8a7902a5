// Package podcast publishes finished recordings as podcast episodes.
package podcast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"aircheck/internal/logging"
	"aircheck/internal/store"
)

// Service turns completed recordings into episodes of their podcast.
type Service struct {
	store  *store.Store
	logger *slog.Logger
}

// NewService constructs a podcast service.
func NewService(st *store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{store: st, logger: logging.WithComponent(logger, "podcast")}
}

// PublishRecording creates an episode for the recording if its rule named
// a podcast and no episode exists yet. Failed recordings are skipped.
func (s *Service) PublishRecording(ctx context.Context, rec *store.Recording) (*store.Episode, error) {
	if rec == nil || rec.PodcastID == nil {
		return nil, nil
	}
	if rec.Status != store.StatusComplete && rec.Status != store.StatusPartial {
		return nil, nil
	}

	existing, err := s.store.EpisodeByRecording(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing episode: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	podcast, err := s.store.PodcastByID(ctx, *rec.PodcastID)
	if err != nil {
		return nil, fmt.Errorf("load podcast: %w", err)
	}
	if podcast == nil {
		return nil, fmt.Errorf("podcast %d not found", *rec.PodcastID)
	}

	episode, err := s.store.CreateEpisode(ctx, &store.Episode{
		PodcastID:   podcast.ID,
		RecordingID: rec.ID,
		Title:       EpisodeTitle(rec.Name, rec.Start),
		Description: EpisodeDescription(rec.Name, rec.Start),
		PubDate:     rec.End,
	})
	if err != nil {
		return nil, fmt.Errorf("create episode: %w", err)
	}
	s.logger.InfoContext(ctx, "episode published",
		logging.Int64(logging.FieldRecordingID, rec.ID),
		logging.String("podcast", podcast.Title),
		logging.String("episode", episode.Title))
	return episode, nil
}

// EpisodeTitle renders a dated episode title such as
// "morning-show, Tuesday 1 September 2026".
func EpisodeTitle(name string, start time.Time) string {
	return fmt.Sprintf("%s, %s %d %s %d",
		name,
		start.Weekday(),
		start.Day(),
		start.Month(),
		start.Year())
}

// EpisodeDescription renders the long-form description, spelling the
// recording date with an ordinal day, e.g. "Episode of morning-show,
// recorded on Tuesday, 1st of September 2026 at 06:00".
func EpisodeDescription(name string, start time.Time) string {
	return fmt.Sprintf("Episode of %s, recorded on %s, %s of %s %d at %s",
		name,
		start.Weekday(),
		ordinal(start.Day()),
		start.Month(),
		start.Year(),
		start.Format("15:04"))
}

func ordinal(day int) string {
	suffix := "th"
	switch day % 100 {
	case 11, 12, 13:
	default:
		switch day % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", day, suffix)
}
