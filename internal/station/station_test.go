package station

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"aircheck/internal/capture"
	"aircheck/internal/store"
)

type fakeProber struct {
	info *capture.StreamInfo
	err  error
}

func (f *fakeProber) Probe(context.Context, string) (*capture.StreamInfo, error) {
	return f.info, f.err
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "aircheck.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRegisterValidStream(t *testing.T) {
	s := newTestStore(t)
	service := NewService(s, &fakeProber{info: &capture.StreamInfo{Codec: "mp3", Bitrate: 128}}, nil)

	station, err := service.Register(context.Background(), "BBC Radio 4", "http://stream.example/radio4.mp3")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !station.Valid {
		t.Fatal("expected validated station")
	}
	if station.Format != "mp3" || station.Bitrate != 128 {
		t.Fatalf("unexpected stream info: %+v", station)
	}
}

func TestRegisterKeepsUnreachableStationUnvalidated(t *testing.T) {
	s := newTestStore(t)
	service := NewService(s, &fakeProber{err: errors.New("connection refused")}, nil)

	station, err := service.Register(context.Background(), "Dead Air FM", "http://stream.example/dead")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if station.Valid {
		t.Fatal("unreachable stream must not validate")
	}

	stored, err := s.StationByID(context.Background(), station.ID)
	if err != nil {
		t.Fatalf("StationByID: %v", err)
	}
	if stored == nil || stored.Valid {
		t.Fatalf("expected persisted unvalidated station, got %+v", stored)
	}
}

func TestRegisterRejectsEmptyInput(t *testing.T) {
	s := newTestStore(t)
	service := NewService(s, &fakeProber{}, nil)

	if _, err := service.Register(context.Background(), "", "http://x"); err == nil {
		t.Fatal("expected error for empty name")
	}
	if _, err := service.Register(context.Background(), "Name", ""); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestValidateMissingStation(t *testing.T) {
	s := newTestStore(t)
	service := NewService(s, &fakeProber{}, nil)
	if err := service.Validate(context.Background(), 42); err == nil {
		t.Fatal("expected error for missing station")
	}
}
