package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const recordingColumns = "id, rule_id, station_id, name, start_time, end_time, status, interrupted, final_file, file_size, format, bitrate, podcast_id, extra_local, remote, keep_count, created_at, updated_at"

// CreateRecording inserts a new scheduled recording instance.
func (s *Store) CreateRecording(ctx context.Context, rec *Recording) (*Recording, error) {
	if rec == nil {
		return nil, errors.New("recording is nil")
	}
	if !rec.End.After(rec.Start) {
		return nil, errors.New("recording end must be after start")
	}
	now := formatTime(time.Now())
	status := rec.Status
	if status == "" {
		status = StatusScheduled
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO recordings (
            rule_id, station_id, name, start_time, end_time, status, interrupted,
            final_file, file_size, format, bitrate, podcast_id,
            extra_local, remote, keep_count, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableInt64(rec.RuleID),
		rec.StationID,
		rec.Name,
		formatTime(rec.Start),
		formatTime(rec.End),
		string(status),
		boolToInt(rec.Interrupted),
		nullableString(rec.FinalFile),
		rec.FileSize,
		rec.Format,
		rec.Bitrate,
		nullableInt64(rec.PodcastID),
		boolToInt(rec.ExtraLocal),
		boolToInt(rec.Remote),
		rec.KeepCount,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert recording: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.RecordingByID(ctx, id)
}

// RecordingByID fetches a recording by identifier.
func (s *Store) RecordingByID(ctx context.Context, id int64) (*Recording, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE id = ?`, id)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recording: %w", err)
	}
	return rec, nil
}

// UpdateRecording persists changes to an existing recording.
func (s *Store) UpdateRecording(ctx context.Context, rec *Recording) error {
	if rec == nil {
		return errors.New("recording is nil")
	}
	rec.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE recordings
         SET name = ?, start_time = ?, end_time = ?, status = ?, interrupted = ?,
             final_file = ?, file_size = ?, format = ?, bitrate = ?, updated_at = ?
         WHERE id = ?`,
		rec.Name,
		formatTime(rec.Start),
		formatTime(rec.End),
		string(rec.Status),
		boolToInt(rec.Interrupted),
		nullableString(rec.FinalFile),
		rec.FileSize,
		rec.Format,
		rec.Bitrate,
		formatTime(rec.UpdatedAt),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update recording: %w", err)
	}
	return nil
}

// ListRecordings returns recordings filtered by status set (or all when no
// status is provided), ordered by start time.
func (s *Store) ListRecordings(ctx context.Context, statuses ...Status) ([]*Recording, error) {
	baseQuery := `SELECT ` + recordingColumns + ` FROM recordings`
	orderClause := ` ORDER BY start_time`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = string(status)
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	var recs []*Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// DueScheduled returns scheduled recordings whose start time has passed,
// ordered by start time.
func (s *Store) DueScheduled(ctx context.Context, now time.Time) ([]*Recording, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordingColumns+` FROM recordings WHERE status = ? AND start_time <= ? ORDER BY start_time`,
		string(StatusScheduled),
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("query due recordings: %w", err)
	}
	defer rows.Close()

	var recs []*Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// ActiveAt returns non-terminal recordings whose window contains now.
func (s *Store) ActiveAt(ctx context.Context, now time.Time) ([]*Recording, error) {
	ts := formatTime(now)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordingColumns+` FROM recordings
         WHERE start_time <= ? AND end_time > ? AND status IN (?, ?)
         ORDER BY start_time`,
		ts, ts, string(StatusScheduled), string(StatusRecording),
	)
	if err != nil {
		return nil, fmt.Errorf("query active recordings: %w", err)
	}
	defer rows.Close()

	var recs []*Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// AbandonedBefore returns recordings still marked as recording whose window
// already closed, typically because the daemon was down when they ended.
func (s *Store) AbandonedBefore(ctx context.Context, now time.Time) ([]*Recording, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordingColumns+` FROM recordings WHERE status = ? AND end_time <= ? ORDER BY end_time`,
		string(StatusRecording),
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("query abandoned recordings: %w", err)
	}
	defer rows.Close()

	var recs []*Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// BeginRecording transitions a recording into the recording state. The
// guarded update keeps terminal states terminal and prevents a recording
// from firing twice.
func (s *Store) BeginRecording(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE recordings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(StatusRecording),
		formatTime(time.Now()),
		id,
		string(StatusScheduled),
	)
	if err != nil {
		return false, fmt.Errorf("begin recording: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// FinishRecording transitions a recording from recording to a terminal
// status, persisting the final artifact. Returns false when the recording is
// not currently in the recording state.
func (s *Store) FinishRecording(ctx context.Context, id int64, status Status, finalFile string, fileSize int64) (bool, error) {
	if !status.IsTerminal() {
		return false, fmt.Errorf("status %q is not terminal", status)
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE recordings SET status = ?, final_file = ?, file_size = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		string(status),
		nullableString(finalFile),
		fileSize,
		formatTime(time.Now()),
		id,
		string(StatusRecording),
	)
	if err != nil {
		return false, fmt.Errorf("finish recording: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteScheduled removes a recording that has not started yet. Returns
// false when the recording does not exist or already left the scheduled
// state.
func (s *Store) DeleteScheduled(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM recordings WHERE id = ? AND status = ?`,
		id,
		string(StatusScheduled),
	)
	if err != nil {
		return false, fmt.Errorf("delete scheduled recording: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// NextScheduledForRule returns the pending instance generated from a rule,
// if one exists.
func (s *Store) NextScheduledForRule(ctx context.Context, ruleID int64) (*Recording, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+recordingColumns+` FROM recordings
         WHERE rule_id = ? AND status = ? ORDER BY start_time LIMIT 1`,
		ruleID,
		string(StatusScheduled),
	)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next scheduled for rule: %w", err)
	}
	return rec, nil
}

func scanRecording(scanner interface{ Scan(dest ...any) error }) (*Recording, error) {
	var (
		id          int64
		ruleID      sql.NullInt64
		stationID   int64
		name        string
		startRaw    string
		endRaw      string
		statusStr   string
		interrupted int
		finalFile   sql.NullString
		fileSize    int64
		format      string
		bitrate     int
		podcastID   sql.NullInt64
		extraLocal  int
		remote      int
		keepCount   int
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&id, &ruleID, &stationID, &name, &startRaw, &endRaw, &statusStr, &interrupted,
		&finalFile, &fileSize, &format, &bitrate, &podcastID,
		&extraLocal, &remote, &keepCount, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}
	rec := &Recording{
		ID:          id,
		RuleID:      nullInt64Ptr(ruleID),
		StationID:   stationID,
		Name:        name,
		Status:      Status(statusStr),
		Interrupted: interrupted != 0,
		FinalFile:   finalFile.String,
		FileSize:    fileSize,
		Format:      format,
		Bitrate:     bitrate,
		PodcastID:   nullInt64Ptr(podcastID),
		ExtraLocal:  extraLocal != 0,
		Remote:      remote != 0,
		KeepCount:   keepCount,
	}
	if start, err := parseTimeString(startRaw); err == nil {
		rec.Start = start
	}
	if end, err := parseTimeString(endRaw); err == nil {
		rec.End = end
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		rec.UpdatedAt = updated
	}
	return rec, nil
}
