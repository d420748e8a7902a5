// Package events defines the lifecycle events recordings emit and the
// publishers that deliver them. Delivery is fire-and-forget: a failed or
// dropped event never affects the recording that produced it, and no
// ordering is guaranteed across publishers.
package events

import (
	"context"
	"time"
)

// Type identifies a lifecycle event.
type Type string

const (
	// RecordingStartRequested fires when the scheduler hands a recording
	// to its supervisor.
	RecordingStartRequested Type = "recording.start_requested"
	// RecordingCompleted fires when a recording ends with full coverage.
	RecordingCompleted Type = "recording.completed"
	// RecordingPartial fires when a recording ends with usable audio but
	// gaps in coverage.
	RecordingPartial Type = "recording.partial"
	// RecordingFailed fires when a recording ends with no usable audio.
	RecordingFailed Type = "recording.failed"
	// FileStored fires once per destination that accepted the final file.
	FileStored Type = "file.stored"
	// FileStoreFailed fires once per destination that rejected the final
	// file.
	FileStoreFailed Type = "file.store_failed"
)

// Payload carries the context of a single event occurrence.
type Payload struct {
	RecordingID int64     `json:"recording_id"`
	StationID   int64     `json:"station_id,omitempty"`
	Name        string    `json:"name,omitempty"`
	Status      string    `json:"status,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Location    string    `json:"location,omitempty"`
	FileSize    int64     `json:"file_size,omitempty"`
	Duration    string    `json:"duration,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher delivers lifecycle events to interested consumers. Publish
// must never block the caller for long and must swallow its own failures.
type Publisher interface {
	Publish(ctx context.Context, event Type, payload Payload)
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Type, Payload) {}
