package scheduler

import (
	"time"

	"aircheck/internal/store"
)

// maxLookahead bounds the recurrence search; no supported recurrence has
// a gap longer than a week.
const maxLookahead = 500

// NextOccurrence returns the next start time of a rule whose capture
// window is still at least partly ahead of the reference time. Windows
// that already closed are skipped, which is what makes startup catch-up
// work: an occurrence missed while the daemon was down still fires as
// long as some of its window remains.
func NextOccurrence(rule *store.Rule, after time.Time) (time.Time, bool) {
	if rule == nil || rule.Duration <= 0 {
		return time.Time{}, false
	}

	if rule.Recurrence == store.RecurrenceOnce {
		if !rule.Start.Add(rule.Duration).After(after) {
			return time.Time{}, false
		}
		return rule.Start, true
	}

	candidate := rule.Start
	for i := 0; i < maxLookahead; i++ {
		if rule.RecurrenceEnd != nil && candidate.After(*rule.RecurrenceEnd) {
			return time.Time{}, false
		}
		if candidate.Add(rule.Duration).After(after) && matchesRecurrence(rule.Recurrence, rule.Start, candidate) {
			return candidate, true
		}
		candidate = candidate.AddDate(0, 0, 1)
	}
	return time.Time{}, false
}

func matchesRecurrence(recurrence store.Recurrence, origin, candidate time.Time) bool {
	switch recurrence {
	case store.RecurrenceDaily:
		return true
	case store.RecurrenceWeekdays:
		day := candidate.Weekday()
		return day != time.Saturday && day != time.Sunday
	case store.RecurrenceWeekends:
		day := candidate.Weekday()
		return day == time.Saturday || day == time.Sunday
	case store.RecurrenceWeekly:
		return candidate.Weekday() == origin.Weekday()
	default:
		return false
	}
}
