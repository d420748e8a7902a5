package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "aircheck.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreateStation(t *testing.T, s *Store) *Station {
	t.Helper()
	station, err := s.CreateStation(context.Background(), "BBC Radio 4", "http://stream.example/radio4.mp3")
	if err != nil {
		t.Fatalf("CreateStation: %v", err)
	}
	return station
}

func mustCreateRecording(t *testing.T, s *Store, stationID int64, start time.Time, dur time.Duration) *Recording {
	t.Helper()
	rec, err := s.CreateRecording(context.Background(), &Recording{
		StationID: stationID,
		Name:      "morning-show",
		Start:     start,
		End:       start.Add(dur),
		Format:    "mp3",
		Bitrate:   128,
	})
	if err != nil {
		t.Fatalf("CreateRecording: %v", err)
	}
	return rec
}

func TestCreateStationRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	station := mustCreateStation(t, s)
	if station.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if station.Valid {
		t.Fatal("new stations must start unvalidated")
	}

	if err := s.SetStationValidation(ctx, station.ID, "mp3", 128, true); err != nil {
		t.Fatalf("SetStationValidation: %v", err)
	}
	got, err := s.StationByID(ctx, station.ID)
	if err != nil {
		t.Fatalf("StationByID: %v", err)
	}
	if got == nil || !got.Valid || got.Format != "mp3" || got.Bitrate != 128 {
		t.Fatalf("unexpected station after validation: %+v", got)
	}
}

func TestStationByIDMissing(t *testing.T) {
	s := newTestStore(t)
	got, err := s.StationByID(context.Background(), 9999)
	if err != nil {
		t.Fatalf("StationByID: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing station, got %+v", got)
	}
}

func TestRuleRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	station := mustCreateStation(t, s)

	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	rule, err := s.CreateRule(ctx, &Rule{
		StationID:     station.ID,
		Name:          "evening-news",
		Recurrence:    RecurrenceWeekdays,
		Start:         time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC),
		Duration:      30 * time.Minute,
		RecurrenceEnd: &end,
		Remote:        true,
		KeepCount:     5,
	})
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	got, err := s.RuleByID(ctx, rule.ID)
	if err != nil {
		t.Fatalf("RuleByID: %v", err)
	}
	if got.Recurrence != RecurrenceWeekdays {
		t.Fatalf("recurrence = %q", got.Recurrence)
	}
	if got.Duration != 30*time.Minute {
		t.Fatalf("duration = %s", got.Duration)
	}
	if got.RecurrenceEnd == nil || !got.RecurrenceEnd.Equal(end) {
		t.Fatalf("recurrence end = %v", got.RecurrenceEnd)
	}
	if !got.Remote || got.KeepCount != 5 {
		t.Fatalf("unexpected rule: %+v", got)
	}
}

func TestDeleteRuleCancelsPendingAndDetachesFinished(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	station := mustCreateStation(t, s)

	rule, err := s.CreateRule(ctx, &Rule{
		StationID:  station.ID,
		Name:       "weekly-show",
		Recurrence: RecurrenceWeekly,
		Start:      time.Date(2026, 9, 5, 20, 0, 0, 0, time.UTC),
		Duration:   time.Hour,
	})
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	finished, err := s.CreateRecording(ctx, &Recording{
		RuleID:    &rule.ID,
		StationID: station.ID,
		Name:      "weekly-show",
		Start:     rule.Start,
		End:       rule.Start.Add(rule.Duration),
		Format:    "mp3",
		Bitrate:   128,
	})
	if err != nil {
		t.Fatalf("CreateRecording: %v", err)
	}
	if _, err := s.BeginRecording(ctx, finished.ID); err != nil {
		t.Fatalf("BeginRecording: %v", err)
	}
	if _, err := s.FinishRecording(ctx, finished.ID, StatusComplete, "/tmp/weekly-show.mp3", 1024); err != nil {
		t.Fatalf("FinishRecording: %v", err)
	}
	pending, err := s.CreateRecording(ctx, &Recording{
		RuleID:    &rule.ID,
		StationID: station.ID,
		Name:      "weekly-show",
		Start:     rule.Start.AddDate(0, 0, 7),
		End:       rule.Start.AddDate(0, 0, 7).Add(rule.Duration),
		Format:    "mp3",
		Bitrate:   128,
	})
	if err != nil {
		t.Fatalf("CreateRecording: %v", err)
	}

	deleted, err := s.DeleteRule(ctx, rule.ID)
	if err != nil {
		t.Fatalf("DeleteRule: %v", err)
	}
	if !deleted {
		t.Fatal("expected rule to be deleted")
	}

	gone, err := s.RecordingByID(ctx, pending.ID)
	if err != nil {
		t.Fatalf("RecordingByID: %v", err)
	}
	if gone != nil {
		t.Fatal("pending instance must be cancelled with its rule")
	}

	kept, err := s.RecordingByID(ctx, finished.ID)
	if err != nil {
		t.Fatalf("RecordingByID: %v", err)
	}
	if kept == nil {
		t.Fatal("finished recording must survive rule deletion")
	}
	if kept.RuleID != nil {
		t.Fatalf("expected detached recording, rule id = %v", *kept.RuleID)
	}
}

func TestBeginRecordingGuards(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	station := mustCreateStation(t, s)
	rec := mustCreateRecording(t, s, station.ID, time.Now().UTC(), time.Hour)

	started, err := s.BeginRecording(ctx, rec.ID)
	if err != nil {
		t.Fatalf("BeginRecording: %v", err)
	}
	if !started {
		t.Fatal("expected first begin to succeed")
	}

	again, err := s.BeginRecording(ctx, rec.ID)
	if err != nil {
		t.Fatalf("BeginRecording second call: %v", err)
	}
	if again {
		t.Fatal("recording must not begin twice")
	}
}

func TestFinishRecordingRequiresTerminalStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	station := mustCreateStation(t, s)
	rec := mustCreateRecording(t, s, station.ID, time.Now().UTC(), time.Hour)

	if _, err := s.FinishRecording(ctx, rec.ID, StatusRecording, "", 0); err == nil {
		t.Fatal("expected error for non-terminal status")
	}

	if _, err := s.BeginRecording(ctx, rec.ID); err != nil {
		t.Fatalf("BeginRecording: %v", err)
	}
	done, err := s.FinishRecording(ctx, rec.ID, StatusComplete, "/tmp/morning-show.mp3", 2048)
	if err != nil {
		t.Fatalf("FinishRecording: %v", err)
	}
	if !done {
		t.Fatal("expected finish to apply")
	}

	got, err := s.RecordingByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("RecordingByID: %v", err)
	}
	if got.Status != StatusComplete || got.FinalFile != "/tmp/morning-show.mp3" || got.FileSize != 2048 {
		t.Fatalf("unexpected recording after finish: %+v", got)
	}

	// Terminal states stay terminal.
	redo, err := s.FinishRecording(ctx, rec.ID, StatusFailed, "", 0)
	if err != nil {
		t.Fatalf("FinishRecording after terminal: %v", err)
	}
	if redo {
		t.Fatal("terminal recording must not transition again")
	}
}

func TestDueScheduledOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	station := mustCreateStation(t, s)

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	later := mustCreateRecording(t, s, station.ID, now.Add(-time.Minute), time.Hour)
	earlier := mustCreateRecording(t, s, station.ID, now.Add(-time.Hour), 2*time.Hour)
	mustCreateRecording(t, s, station.ID, now.Add(time.Hour), time.Hour)

	due, err := s.DueScheduled(ctx, now)
	if err != nil {
		t.Fatalf("DueScheduled: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 due recordings, got %d", len(due))
	}
	if due[0].ID != earlier.ID || due[1].ID != later.ID {
		t.Fatalf("unexpected order: %d, %d", due[0].ID, due[1].ID)
	}
}

func TestAbandonedBefore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	station := mustCreateStation(t, s)

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	rec := mustCreateRecording(t, s, station.ID, now.Add(-2*time.Hour), time.Hour)
	if _, err := s.BeginRecording(ctx, rec.ID); err != nil {
		t.Fatalf("BeginRecording: %v", err)
	}
	// Still inside its window, must not be reported.
	active := mustCreateRecording(t, s, station.ID, now.Add(-30*time.Minute), time.Hour)
	if _, err := s.BeginRecording(ctx, active.ID); err != nil {
		t.Fatalf("BeginRecording: %v", err)
	}

	abandoned, err := s.AbandonedBefore(ctx, now)
	if err != nil {
		t.Fatalf("AbandonedBefore: %v", err)
	}
	if len(abandoned) != 1 || abandoned[0].ID != rec.ID {
		t.Fatalf("unexpected abandoned set: %+v", abandoned)
	}
}

func TestSegmentsOrderedBySeq(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	station := mustCreateStation(t, s)
	rec := mustCreateRecording(t, s, station.ID, time.Now().UTC(), time.Hour)

	seq, err := s.NextSegmentSeq(ctx, rec.ID)
	if err != nil {
		t.Fatalf("NextSegmentSeq: %v", err)
	}
	if seq != 1 {
		t.Fatalf("first seq = %d", seq)
	}

	for i := 1; i <= 3; i++ {
		started := rec.Start.Add(time.Duration(i) * time.Minute)
		if _, err := s.AddSegment(ctx, &Segment{
			RecordingID: rec.ID,
			Seq:         i,
			Path:        filepath.Join(t.TempDir(), "part"),
			Size:        int64(i * 100),
			StartedAt:   started,
			EndedAt:     started.Add(time.Minute),
		}); err != nil {
			t.Fatalf("AddSegment %d: %v", i, err)
		}
	}

	segments, err := s.SegmentsForRecording(ctx, rec.ID)
	if err != nil {
		t.Fatalf("SegmentsForRecording: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	for i, seg := range segments {
		if seg.Seq != i+1 {
			t.Fatalf("segment %d has seq %d", i, seg.Seq)
		}
	}

	seq, err = s.NextSegmentSeq(ctx, rec.ID)
	if err != nil {
		t.Fatalf("NextSegmentSeq: %v", err)
	}
	if seq != 4 {
		t.Fatalf("next seq = %d", seq)
	}
}

func TestStorageStatusUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	station := mustCreateStation(t, s)
	rec := mustCreateRecording(t, s, station.ID, time.Now().UTC(), time.Hour)

	if err := s.SetStorageStatus(ctx, &StorageStatus{
		RecordingID: rec.ID,
		Destination: DestinationRemote,
		State:       StoragePending,
	}); err != nil {
		t.Fatalf("SetStorageStatus: %v", err)
	}
	if err := s.SetStorageStatus(ctx, &StorageStatus{
		RecordingID: rec.ID,
		Destination: DestinationRemote,
		State:       StorageFailed,
		Detail:      "connection refused",
	}); err != nil {
		t.Fatalf("SetStorageStatus update: %v", err)
	}

	statuses, err := s.StorageStatuses(ctx, rec.ID)
	if err != nil {
		t.Fatalf("StorageStatuses: %v", err)
	}
	if len(statuses) != 1 {
		t.Fatalf("expected single row, got %d", len(statuses))
	}
	if statuses[0].State != StorageFailed || statuses[0].Detail != "connection refused" {
		t.Fatalf("unexpected status: %+v", statuses[0])
	}
}

func TestPodcastEpisodeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	station := mustCreateStation(t, s)
	rec := mustCreateRecording(t, s, station.ID, time.Now().UTC(), time.Hour)

	podcast, err := s.CreatePodcast(ctx, &Podcast{Title: "Morning Archive"})
	if err != nil {
		t.Fatalf("CreatePodcast: %v", err)
	}
	if podcast.UUID == "" {
		t.Fatal("expected generated uuid")
	}
	if podcast.Language != "en-GB" {
		t.Fatalf("language = %q", podcast.Language)
	}

	episode, err := s.CreateEpisode(ctx, &Episode{
		PodcastID:   podcast.ID,
		RecordingID: rec.ID,
		Title:       "morning-show",
		Description: "Recorded on Tuesday",
		PubDate:     rec.End,
	})
	if err != nil {
		t.Fatalf("CreateEpisode: %v", err)
	}
	if episode.ID == 0 {
		t.Fatal("expected assigned episode id")
	}

	got, err := s.EpisodeByRecording(ctx, rec.ID)
	if err != nil {
		t.Fatalf("EpisodeByRecording: %v", err)
	}
	if got == nil || got.Title != "morning-show" {
		t.Fatalf("unexpected episode: %+v", got)
	}
}

func TestSchemaVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aircheck.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.db.Exec(`UPDATE schema_version SET version = version + 1`); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	s.Close()

	if _, err := Open(path); err == nil {
		t.Fatal("expected schema mismatch error")
	}
}
