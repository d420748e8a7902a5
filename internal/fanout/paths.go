package fanout

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// FlatFileName renders the dated file name used in the flat recordings
// directory, e.g. "morning-show260901-Tue.mp3".
func FlatFileName(name string, start time.Time, format string) string {
	return fmt.Sprintf("%s%s.%s", sanitizeName(name), start.Format("060102-Mon"), normalizeExtension(format))
}

// HierarchicalDir renders the per-show archive directory relative to its
// base, e.g. "morning-show/2026/September".
func HierarchicalDir(name string, start time.Time) string {
	return path.Join(sanitizeName(name), fmt.Sprintf("%d", start.Year()), start.Month().String())
}

// HierarchicalPath renders the absolute archive location for a local base
// directory.
func HierarchicalPath(base, name string, start time.Time, format string) string {
	return filepath.Join(base, filepath.FromSlash(HierarchicalDir(name, start)), FlatFileName(name, start, format))
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", "*", "-", "?", "", "\"", "", "<", "", ">", "", "|", "", " ", "-")
	return replacer.Replace(name)
}

func normalizeExtension(format string) string {
	format = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(format, ".")))
	if format == "" {
		return "mp3"
	}
	return format
}
