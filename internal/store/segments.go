package store

import (
	"context"
	"errors"
	"fmt"
)

const segmentColumns = "id, recording_id, seq, path, size, started_at, ended_at"

// AddSegment records a finished capture attempt's artifact.
func (s *Store) AddSegment(ctx context.Context, seg *Segment) (*Segment, error) {
	if seg == nil {
		return nil, errors.New("segment is nil")
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO segments (recording_id, seq, path, size, started_at, ended_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		seg.RecordingID,
		seg.Seq,
		seg.Path,
		seg.Size,
		formatTime(seg.StartedAt),
		formatTime(seg.EndedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert segment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	stored := *seg
	stored.ID = id
	return &stored, nil
}

// SegmentsForRecording returns a recording's segments in capture order.
func (s *Store) SegmentsForRecording(ctx context.Context, recordingID int64) ([]*Segment, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE recording_id = ? ORDER BY seq`,
		recordingID,
	)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var segments []*Segment
	for rows.Next() {
		var (
			seg        Segment
			startedRaw string
			endedRaw   string
		)
		if err := rows.Scan(&seg.ID, &seg.RecordingID, &seg.Seq, &seg.Path, &seg.Size, &startedRaw, &endedRaw); err != nil {
			return nil, err
		}
		if started, err := parseTimeString(startedRaw); err == nil {
			seg.StartedAt = started
		}
		if ended, err := parseTimeString(endedRaw); err == nil {
			seg.EndedAt = ended
		}
		segments = append(segments, &seg)
	}
	return segments, rows.Err()
}

// NextSegmentSeq returns the sequence number the next capture attempt
// should use.
func (s *Store) NextSegmentSeq(ctx context.Context, recordingID int64) (int, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM segments WHERE recording_id = ?`,
		recordingID,
	)
	var max int
	if err := row.Scan(&max); err != nil {
		return 0, fmt.Errorf("next segment seq: %w", err)
	}
	return max + 1, nil
}
