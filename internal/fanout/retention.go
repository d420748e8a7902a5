package fanout

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"aircheck/internal/logging"
	"aircheck/internal/store"
)

// flatDateSuffix is what FlatFileName appends after the show name, e.g.
// "260901-Tue.mp3". Matching it keeps retention from touching another
// show whose name merely extends this one.
var flatDateSuffix = regexp.MustCompile(`^\d{6}-[A-Z][a-z]{2}\.[A-Za-z0-9]+$`)

// applyRetention trims the flat recordings directory down to the rule's
// keep count for this show. Only the flat directory is pruned; archive
// copies are never touched. Retention failures are logged and ignored.
func (s *Service) applyRetention(ctx context.Context, rec *store.Recording) {
	if rec.KeepCount <= 0 {
		return
	}
	prefix := sanitizeName(rec.Name)
	entries, err := os.ReadDir(s.recordingsDir)
	if err != nil {
		s.logger.WarnContext(ctx, "retention scan failed", logging.Error(err))
		return
	}

	type dated struct {
		path    string
		modTime int64
	}
	var matches []dated
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if !flatDateSuffix.MatchString(entry.Name()[len(prefix):]) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		matches = append(matches, dated{
			path:    filepath.Join(s.recordingsDir, entry.Name()),
			modTime: info.ModTime().UnixNano(),
		})
	}
	if len(matches) <= rec.KeepCount {
		return
	}

	// Newest first, prune the rest.
	sort.Slice(matches, func(i, j int) bool { return matches[i].modTime > matches[j].modTime })
	for _, stale := range matches[rec.KeepCount:] {
		if err := os.Remove(stale.path); err != nil {
			s.logger.WarnContext(ctx, "retention delete failed",
				logging.String("path", stale.path),
				logging.Error(err))
			continue
		}
		s.logger.InfoContext(ctx, "retention pruned old recording",
			logging.Int64(logging.FieldRecordingID, rec.ID),
			logging.String("path", stale.path))
	}
}
