package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SetStorageStatus upserts the delivery outcome for one destination of a
// recording. Each destination is tracked independently.
func (s *Store) SetStorageStatus(ctx context.Context, status *StorageStatus) error {
	if status == nil {
		return fmt.Errorf("storage status is nil")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO storage_status (recording_id, destination, state, location, detail, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(recording_id, destination) DO UPDATE SET
             state = excluded.state,
             location = excluded.location,
             detail = excluded.detail,
             updated_at = excluded.updated_at`,
		status.RecordingID,
		string(status.Destination),
		string(status.State),
		nullableString(status.Location),
		nullableString(status.Detail),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("set storage status: %w", err)
	}
	return nil
}

// StorageStatuses returns all destination outcomes for a recording.
func (s *Store) StorageStatuses(ctx context.Context, recordingID int64) ([]*StorageStatus, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT recording_id, destination, state, location, detail, updated_at
         FROM storage_status WHERE recording_id = ? ORDER BY destination`,
		recordingID,
	)
	if err != nil {
		return nil, fmt.Errorf("query storage statuses: %w", err)
	}
	defer rows.Close()

	var statuses []*StorageStatus
	for rows.Next() {
		status, err := scanStorageStatus(rows)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, rows.Err()
}

func scanStorageStatus(scanner interface{ Scan(dest ...any) error }) (*StorageStatus, error) {
	var (
		status     StorageStatus
		destRaw    string
		stateRaw   string
		location   sql.NullString
		detail     sql.NullString
		updatedRaw string
	)
	if err := scanner.Scan(&status.RecordingID, &destRaw, &stateRaw, &location, &detail, &updatedRaw); err != nil {
		return nil, err
	}
	status.Destination = Destination(destRaw)
	status.State = StorageState(stateRaw)
	status.Location = location.String
	status.Detail = detail.String
	if updated, err := parseTimeString(updatedRaw); err == nil {
		status.UpdatedAt = updated
	}
	return &status, nil
}
