package store

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a recording.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusRecording Status = "recording"
	StatusComplete  Status = "complete"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusScheduled,
	StatusRecording,
	StatusComplete,
	StatusPartial,
	StatusFailed,
}

var terminalStatuses = map[Status]struct{}{
	StatusComplete: {},
	StatusPartial:  {},
	StatusFailed:   {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether a status permits no further transitions.
func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// Recurrence identifies how a schedule rule repeats.
type Recurrence string

const (
	RecurrenceOnce     Recurrence = "once"
	RecurrenceDaily    Recurrence = "daily"
	RecurrenceWeekdays Recurrence = "weekdays"
	RecurrenceWeekends Recurrence = "weekends"
	RecurrenceWeekly   Recurrence = "weekly"
)

var allRecurrences = []Recurrence{
	RecurrenceOnce,
	RecurrenceDaily,
	RecurrenceWeekdays,
	RecurrenceWeekends,
	RecurrenceWeekly,
}

// ParseRecurrence converts a string into a known Recurrence.
func ParseRecurrence(value string) (Recurrence, bool) {
	normalized := Recurrence(strings.ToLower(strings.TrimSpace(value)))
	for _, recurrence := range allRecurrences {
		if recurrence == normalized {
			return recurrence, true
		}
	}
	return "", false
}

// Destination identifies a storage fan-out target.
type Destination string

const (
	DestinationFlat       Destination = "flat"
	DestinationExtraLocal Destination = "extra_local"
	DestinationRemote     Destination = "remote"
)

// StorageState tracks a single destination's delivery outcome.
type StorageState string

const (
	StoragePending StorageState = "pending"
	StorageSuccess StorageState = "success"
	StorageFailed  StorageState = "failed"
)

// Station is a validated stream source.
type Station struct {
	ID        int64
	Name      string
	StreamURL string
	Format    string
	Bitrate   int
	Valid     bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Rule is a recurring or one-off schedule owning generated recordings.
type Rule struct {
	ID            int64
	StationID     int64
	Name          string
	Recurrence    Recurrence
	Start         time.Time
	Duration      time.Duration
	RecurrenceEnd *time.Time
	PodcastID     *int64
	ExtraLocal    bool
	Remote        bool
	KeepCount     int
	CreatedAt     time.Time
}

// Recording is one concrete scheduled capture window.
type Recording struct {
	ID          int64
	RuleID      *int64
	StationID   int64
	Name        string
	Start       time.Time
	End         time.Time
	Status      Status
	Interrupted bool
	FinalFile   string
	FileSize    int64
	Format      string
	Bitrate     int
	PodcastID   *int64
	ExtraLocal  bool
	Remote      bool
	KeepCount   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Duration returns the scheduled capture length.
func (r *Recording) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Segment is the on-disk artifact of one continuous capture attempt.
type Segment struct {
	ID          int64
	RecordingID int64
	Seq         int
	Path        string
	Size        int64
	StartedAt   time.Time
	EndedAt     time.Time
}

// StorageStatus is the delivery outcome for one destination.
type StorageStatus struct {
	RecordingID int64
	Destination Destination
	State       StorageState
	Location    string
	Detail      string
	UpdatedAt   time.Time
}

// Podcast is a feed recordings can be attached to.
type Podcast struct {
	ID          int64
	UUID        string
	Title       string
	Description string
	Author      string
	Language    string
	CreatedAt   time.Time
}

// Episode references one recording published into a podcast.
type Episode struct {
	ID          int64
	PodcastID   int64
	RecordingID int64
	Title       string
	Description string
	PubDate     time.Time
}
