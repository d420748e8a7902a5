package podcast

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"aircheck/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "aircheck.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOrdinalDates(t *testing.T) {
	cases := []struct {
		day  int
		want string
	}{
		{1, "1st"},
		{2, "2nd"},
		{3, "3rd"},
		{4, "4th"},
		{11, "11th"},
		{12, "12th"},
		{13, "13th"},
		{21, "21st"},
		{22, "22nd"},
		{23, "23rd"},
		{31, "31st"},
	}
	for _, tc := range cases {
		if got := ordinal(tc.day); got != tc.want {
			t.Errorf("ordinal(%d) = %s, want %s", tc.day, got, tc.want)
		}
	}
}

func TestEpisodeDescription(t *testing.T) {
	start := time.Date(2025, 12, 13, 20, 0, 0, 0, time.UTC)
	got := EpisodeDescription("saturday-play", start)
	want := "Episode of saturday-play, recorded on Saturday, 13th of December 2025 at 20:00"
	if got != want {
		t.Fatalf("description = %q, want %q", got, want)
	}
}

func TestPublishRecordingCreatesEpisodeOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	service := NewService(s, nil)

	station, err := s.CreateStation(ctx, "BBC Radio 4", "http://stream.example/radio4.mp3")
	if err != nil {
		t.Fatalf("CreateStation: %v", err)
	}
	podcast, err := s.CreatePodcast(ctx, &store.Podcast{Title: "Drama Archive"})
	if err != nil {
		t.Fatalf("CreatePodcast: %v", err)
	}

	start := time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC)
	rec, err := s.CreateRecording(ctx, &store.Recording{
		StationID: station.ID,
		Name:      "morning-show",
		Start:     start,
		End:       start.Add(time.Hour),
		Status:    store.StatusScheduled,
		Format:    "mp3",
		Bitrate:   128,
		PodcastID: &podcast.ID,
	})
	if err != nil {
		t.Fatalf("CreateRecording: %v", err)
	}
	if _, err := s.BeginRecording(ctx, rec.ID); err != nil {
		t.Fatalf("BeginRecording: %v", err)
	}
	if _, err := s.FinishRecording(ctx, rec.ID, store.StatusComplete, "/tmp/x.mp3", 100); err != nil {
		t.Fatalf("FinishRecording: %v", err)
	}
	rec, err = s.RecordingByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("RecordingByID: %v", err)
	}

	episode, err := service.PublishRecording(ctx, rec)
	if err != nil {
		t.Fatalf("PublishRecording: %v", err)
	}
	if episode == nil {
		t.Fatal("expected an episode")
	}

	again, err := service.PublishRecording(ctx, rec)
	if err != nil {
		t.Fatalf("PublishRecording second call: %v", err)
	}
	if again == nil || again.ID != episode.ID {
		t.Fatalf("expected idempotent publish, got %+v", again)
	}
}

func TestPublishRecordingSkipsFailedAndUnlinked(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	service := NewService(s, nil)

	episode, err := service.PublishRecording(ctx, &store.Recording{ID: 1, Status: store.StatusComplete})
	if err != nil {
		t.Fatalf("PublishRecording without podcast: %v", err)
	}
	if episode != nil {
		t.Fatal("recording without podcast must not publish")
	}

	podcastID := int64(1)
	episode, err = service.PublishRecording(ctx, &store.Recording{ID: 1, Status: store.StatusFailed, PodcastID: &podcastID})
	if err != nil {
		t.Fatalf("PublishRecording failed recording: %v", err)
	}
	if episode != nil {
		t.Fatal("failed recording must not publish")
	}
}
