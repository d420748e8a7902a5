package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"aircheck/internal/store"
)

const (
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
	ansiReset  = "\x1b[0m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func colorStatus(status store.Status, colorize bool) string {
	text := string(status)
	if !colorize {
		return text
	}
	switch status {
	case store.StatusComplete:
		return ansiGreen + text + ansiReset
	case store.StatusPartial:
		return ansiYellow + text + ansiReset
	case store.StatusFailed:
		return ansiRed + text + ansiReset
	default:
		return text
	}
}

func formatTimestamp(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Local().Format("2006-01-02 15:04")
}

func formatDuration(value time.Duration) string {
	value = value.Round(time.Second)
	if value <= 0 {
		return "-"
	}
	return value.String()
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// parseStatuses converts comma-separated status filters into store
// statuses, rejecting unknown names.
func parseStatuses(raw string) ([]store.Status, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var statuses []store.Status
	for _, part := range strings.Split(raw, ",") {
		status, ok := store.ParseStatus(part)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", strings.TrimSpace(part))
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
