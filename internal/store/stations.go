package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const stationColumns = "id, name, stream_url, format, bitrate, valid, created_at, updated_at"

// CreateStation inserts a new station awaiting validation.
func (s *Store) CreateStation(ctx context.Context, name, streamURL string) (*Station, error) {
	if name == "" || streamURL == "" {
		return nil, errors.New("station name and stream URL are required")
	}
	now := formatTime(time.Now())
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO stations (name, stream_url, valid, created_at, updated_at) VALUES (?, ?, 0, ?, ?)`,
		name, streamURL, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert station: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.StationByID(ctx, id)
}

// StationByID fetches a station by identifier.
func (s *Store) StationByID(ctx context.Context, id int64) (*Station, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+stationColumns+` FROM stations WHERE id = ?`, id)
	station, err := scanStation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get station: %w", err)
	}
	return station, nil
}

// ListStations returns all stations ordered by name.
func (s *Store) ListStations(ctx context.Context) ([]*Station, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+stationColumns+` FROM stations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	defer rows.Close()

	var stations []*Station
	for rows.Next() {
		station, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		stations = append(stations, station)
	}
	return stations, rows.Err()
}

// SetStationValidation records the probed stream format for a station.
func (s *Store) SetStationValidation(ctx context.Context, id int64, format string, bitrate int, valid bool) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE stations SET format = ?, bitrate = ?, valid = ?, updated_at = ? WHERE id = ?`,
		nullableString(format), bitrate, boolToInt(valid), formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update station validation: %w", err)
	}
	return nil
}

func scanStation(scanner interface{ Scan(dest ...any) error }) (*Station, error) {
	var (
		id         int64
		name       string
		streamURL  string
		format     sql.NullString
		bitrate    sql.NullInt64
		valid      int
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&id, &name, &streamURL, &format, &bitrate, &valid, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	station := &Station{
		ID:        id,
		Name:      name,
		StreamURL: streamURL,
		Format:    format.String,
		Bitrate:   int(bitrate.Int64),
		Valid:     valid != 0,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		station.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		station.UpdatedAt = updated
	}
	return station, nil
}
