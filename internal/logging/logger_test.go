package logging_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"aircheck/internal/logging"
)

func TestConsoleHandlerFormatsComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	scoped := logging.WithComponent(logger, "scheduler")
	scoped.Info("recording fired",
		logging.Int64(logging.FieldRecordingID, 42),
		logging.String("name", "Morning Show"),
	)

	line := buf.String()
	if !strings.Contains(line, "scheduler: recording fired") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "recording_id=42") {
		t.Fatalf("expected recording_id attr, got %q", line)
	}
	if !strings.Contains(line, `name="Morning Show"`) {
		t.Fatalf("expected quoted name attr, got %q", line)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown", logging.Error(errors.New("boom")))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should have been suppressed: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "error=boom") {
		t.Fatalf("warn line missing: %q", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("stored", logging.String("destination", "flat"))
	if !strings.Contains(buf.String(), `"destination":"flat"`) {
		t.Fatalf("expected JSON attr, got %q", buf.String())
	}
}

func TestUnsupportedFormatRejected(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
