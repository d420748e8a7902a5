package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const ruleColumns = "id, station_id, name, recurrence, start_time, duration_secs, recurrence_end, podcast_id, extra_local, remote, keep_count, created_at"

// CreateRule persists a schedule rule.
func (s *Store) CreateRule(ctx context.Context, rule *Rule) (*Rule, error) {
	if rule == nil {
		return nil, errors.New("rule is nil")
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO rules (
            station_id, name, recurrence, start_time, duration_secs,
            recurrence_end, podcast_id, extra_local, remote, keep_count, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.StationID,
		rule.Name,
		string(rule.Recurrence),
		formatTime(rule.Start),
		int64(rule.Duration/time.Second),
		nullableTime(rule.RecurrenceEnd),
		nullableInt64(rule.PodcastID),
		boolToInt(rule.ExtraLocal),
		boolToInt(rule.Remote),
		rule.KeepCount,
		formatTime(time.Now()),
	)
	if err != nil {
		return nil, fmt.Errorf("insert rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.RuleByID(ctx, id)
}

// RuleByID fetches a rule by identifier.
func (s *Store) RuleByID(ctx context.Context, id int64) (*Rule, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rule: %w", err)
	}
	return rule, nil
}

// ListRules returns all rules ordered by creation time.
func (s *Store) ListRules(ctx context.Context) ([]*Rule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+ruleColumns+` FROM rules ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []*Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// DeleteRule removes a rule along with its not-yet-started instance.
// Recordings that already ran are kept, detached from the rule.
func (s *Store) DeleteRule(ctx context.Context, id int64) (bool, error) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM recordings WHERE rule_id = ? AND status = ?`, id, string(StatusScheduled)); err != nil {
		return false, fmt.Errorf("cancel pending recordings: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE recordings SET rule_id = NULL WHERE rule_id = ?`, id); err != nil {
		return false, fmt.Errorf("detach recordings: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanRule(scanner interface{ Scan(dest ...any) error }) (*Rule, error) {
	var (
		id            int64
		stationID     int64
		name          string
		recurrence    string
		startRaw      string
		durationSecs  int64
		recurrenceEnd sql.NullString
		podcastID     sql.NullInt64
		extraLocal    int
		remote        int
		keepCount     int
		createdRaw    string
	)
	if err := scanner.Scan(
		&id, &stationID, &name, &recurrence, &startRaw, &durationSecs,
		&recurrenceEnd, &podcastID, &extraLocal, &remote, &keepCount, &createdRaw,
	); err != nil {
		return nil, err
	}
	rule := &Rule{
		ID:            id,
		StationID:     stationID,
		Name:          name,
		Recurrence:    Recurrence(recurrence),
		Duration:      time.Duration(durationSecs) * time.Second,
		RecurrenceEnd: parseNullTime(recurrenceEnd),
		PodcastID:     nullInt64Ptr(podcastID),
		ExtraLocal:    extraLocal != 0,
		Remote:        remote != 0,
		KeepCount:     keepCount,
	}
	if start, err := parseTimeString(startRaw); err == nil {
		rule.Start = start
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		rule.CreatedAt = created
	}
	return rule, nil
}
