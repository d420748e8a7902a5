package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"aircheck/internal/logging"
)

// LogPublisher emits events as structured log records so downstream
// tooling can tail them from the daemon log.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher wires a publisher onto the given logger.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LogPublisher{logger: logging.WithComponent(logger, "events")}
}

// Publish implements Publisher. Marshal failures are logged and dropped.
func (p *LogPublisher) Publish(ctx context.Context, event Type, payload Payload) {
	if payload.OccurredAt.IsZero() {
		payload.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.WarnContext(ctx, "drop event",
			logging.String(logging.FieldEventType, string(event)),
			logging.Error(err))
		return
	}
	p.logger.InfoContext(ctx, "event",
		logging.String(logging.FieldEventType, string(event)),
		logging.Int64(logging.FieldRecordingID, payload.RecordingID),
		logging.String("payload", string(body)))
}

// Multi fans one event out to several publishers. Each publisher is
// independent: one consumer's failure never reaches another.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, event Type, payload Payload) {
	for _, publisher := range m {
		if publisher == nil {
			continue
		}
		publisher.Publish(ctx, event, payload)
	}
}
