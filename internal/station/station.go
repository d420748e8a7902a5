// Package station manages stream sources and their validation.
package station

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"aircheck/internal/capture"
	"aircheck/internal/logging"
	"aircheck/internal/services"
	"aircheck/internal/store"
)

// Prober is the slice of the ffprobe wrapper the service needs.
type Prober interface {
	Probe(ctx context.Context, streamURL string) (*capture.StreamInfo, error)
}

// Service registers stations and validates their streams before any rule
// may reference them.
type Service struct {
	store  *store.Store
	prober Prober
	logger *slog.Logger
}

// NewService constructs a station service.
func NewService(st *store.Store, prober Prober, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{store: st, prober: prober, logger: logging.WithComponent(logger, "station")}
}

// Register creates a station and probes its stream. A failed probe leaves
// the station registered but unvalidated; rules cannot use it until a
// revalidation succeeds.
func (s *Service) Register(ctx context.Context, name, streamURL string) (*store.Station, error) {
	name = strings.TrimSpace(name)
	streamURL = strings.TrimSpace(streamURL)
	if name == "" {
		return nil, services.Wrap(services.ErrValidation, "station", "register", "station name required", nil)
	}
	if streamURL == "" {
		return nil, services.Wrap(services.ErrValidation, "station", "register", "stream url required", nil)
	}

	created, err := s.store.CreateStation(ctx, name, streamURL)
	if err != nil {
		return nil, fmt.Errorf("create station: %w", err)
	}
	if err := s.Validate(ctx, created.ID); err != nil {
		s.logger.WarnContext(ctx, "station validation failed",
			logging.Int64(logging.FieldStationID, created.ID),
			logging.Error(err))
		return created, nil
	}
	return s.store.StationByID(ctx, created.ID)
}

// Validate probes the station's stream and records the observed codec and
// bitrate on success.
func (s *Service) Validate(ctx context.Context, id int64) error {
	station, err := s.store.StationByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load station: %w", err)
	}
	if station == nil {
		return services.Wrap(services.ErrNotFound, "station", "validate", fmt.Sprintf("station %d not found", id), nil)
	}
	if s.prober == nil {
		return errors.New("prober not configured")
	}

	info, err := s.prober.Probe(ctx, station.StreamURL)
	if err != nil {
		if markErr := s.store.SetStationValidation(ctx, id, station.Format, station.Bitrate, false); markErr != nil {
			s.logger.WarnContext(ctx, "persist validation failure", logging.Error(markErr))
		}
		return services.Wrap(services.ErrExternalTool, "station", "validate", "probe stream", err)
	}
	if err := s.store.SetStationValidation(ctx, id, info.Codec, info.Bitrate, true); err != nil {
		return fmt.Errorf("persist validation: %w", err)
	}
	s.logger.InfoContext(ctx, "station validated",
		logging.Int64(logging.FieldStationID, id),
		logging.String("codec", info.Codec),
		logging.Int("bitrate", info.Bitrate))
	return nil
}
