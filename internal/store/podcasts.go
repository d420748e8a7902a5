package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const podcastColumns = "id, uuid, title, description, author, language, created_at"

// CreatePodcast registers a new feed recordings can publish into.
func (s *Store) CreatePodcast(ctx context.Context, podcast *Podcast) (*Podcast, error) {
	if podcast == nil {
		return nil, errors.New("podcast is nil")
	}
	if podcast.UUID == "" {
		podcast.UUID = uuid.NewString()
	}
	if podcast.Language == "" {
		podcast.Language = "en-GB"
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO podcasts (uuid, title, description, author, language, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		podcast.UUID,
		podcast.Title,
		nullableString(podcast.Description),
		nullableString(podcast.Author),
		podcast.Language,
		formatTime(time.Now()),
	)
	if err != nil {
		return nil, fmt.Errorf("insert podcast: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.PodcastByID(ctx, id)
}

// PodcastByID fetches a podcast by identifier.
func (s *Store) PodcastByID(ctx context.Context, id int64) (*Podcast, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+podcastColumns+` FROM podcasts WHERE id = ?`, id)
	podcast, err := scanPodcast(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get podcast: %w", err)
	}
	return podcast, nil
}

// ListPodcasts returns all podcasts ordered by title.
func (s *Store) ListPodcasts(ctx context.Context) ([]*Podcast, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+podcastColumns+` FROM podcasts ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("list podcasts: %w", err)
	}
	defer rows.Close()

	var podcasts []*Podcast
	for rows.Next() {
		podcast, err := scanPodcast(rows)
		if err != nil {
			return nil, err
		}
		podcasts = append(podcasts, podcast)
	}
	return podcasts, rows.Err()
}

// CreateEpisode publishes a recording into a podcast. A recording can back
// at most one episode.
func (s *Store) CreateEpisode(ctx context.Context, episode *Episode) (*Episode, error) {
	if episode == nil {
		return nil, errors.New("episode is nil")
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO podcast_episodes (podcast_id, recording_id, title, description, pub_date)
         VALUES (?, ?, ?, ?, ?)`,
		episode.PodcastID,
		episode.RecordingID,
		episode.Title,
		nullableString(episode.Description),
		formatTime(episode.PubDate),
	)
	if err != nil {
		return nil, fmt.Errorf("insert episode: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	stored := *episode
	stored.ID = id
	return &stored, nil
}

// EpisodeByRecording returns the episode backed by a recording, if any.
func (s *Store) EpisodeByRecording(ctx context.Context, recordingID int64) (*Episode, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, podcast_id, recording_id, title, description, pub_date
         FROM podcast_episodes WHERE recording_id = ?`,
		recordingID,
	)
	var (
		episode     Episode
		description sql.NullString
		pubRaw      string
	)
	err := row.Scan(&episode.ID, &episode.PodcastID, &episode.RecordingID, &episode.Title, &description, &pubRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	episode.Description = description.String
	if pub, err := parseTimeString(pubRaw); err == nil {
		episode.PubDate = pub
	}
	return &episode, nil
}

func scanPodcast(scanner interface{ Scan(dest ...any) error }) (*Podcast, error) {
	var (
		podcast     Podcast
		description sql.NullString
		author      sql.NullString
		language    sql.NullString
		createdRaw  string
	)
	if err := scanner.Scan(&podcast.ID, &podcast.UUID, &podcast.Title, &description, &author, &language, &createdRaw); err != nil {
		return nil, err
	}
	podcast.Description = description.String
	podcast.Author = author.String
	podcast.Language = language.String
	if created, err := parseTimeString(createdRaw); err == nil {
		podcast.CreatedAt = created
	}
	return &podcast, nil
}
