package services_test

import (
	"errors"
	"strings"
	"testing"

	"aircheck/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	cause := errors.New("exit status 1")
	err := services.Wrap(services.ErrExternalTool, "capture", "run ffmpeg", "stream dropped", cause)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause: %v", err)
	}
	if !strings.Contains(err.Error(), "capture: run ffmpeg: stream dropped") {
		t.Fatalf("unexpected detail: %v", err)
	}
}

func TestWrapWithoutCauseOrMarker(t *testing.T) {
	err := services.Wrap(nil, "scheduler", "", "bad rule", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected default marker: %v", err)
	}
}
