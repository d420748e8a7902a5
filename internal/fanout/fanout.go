// Package fanout moves a finished recording into the flat recordings
// directory and copies it out to the optional extra destinations. Each
// destination is attempted exactly once; one destination's failure never
// stops the others.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"aircheck/internal/events"
	"aircheck/internal/logging"
	"aircheck/internal/store"
)

// Uploader pushes a local file to the remote share.
type Uploader interface {
	Upload(ctx context.Context, localPath, remoteDir, fileName string) (string, error)
}

// Service fans finished recordings out to their storage destinations.
type Service struct {
	store     *store.Store
	uploader  Uploader
	publisher events.Publisher
	logger    *slog.Logger

	recordingsDir string
	extraLocalDir string
}

// Options configures the service.
type Options struct {
	Store         *store.Store
	Uploader      Uploader
	Publisher     events.Publisher
	Logger        *slog.Logger
	RecordingsDir string
	ExtraLocalDir string
}

// NewService constructs the fan-out service.
func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("store required")
	}
	if opts.RecordingsDir == "" {
		return nil, errors.New("recordings directory required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		store:         opts.Store,
		uploader:      opts.Uploader,
		publisher:     publisher,
		logger:        logging.WithComponent(logger, "fanout"),
		recordingsDir: opts.RecordingsDir,
		extraLocalDir: opts.ExtraLocalDir,
	}, nil
}

// Outcome reports the result of one delivery run.
type Outcome struct {
	FlatPath           string
	FailedDestinations []string
}

// Deliver places the merged file into the flat directory, then runs the
// extra-local copy and the remote upload concurrently. The flat move is
// mandatory; when it fails, no further destination is attempted.
func (s *Service) Deliver(ctx context.Context, rec *store.Recording, mergedPath string) (*Outcome, error) {
	if rec == nil {
		return nil, errors.New("recording required")
	}
	fileName := FlatFileName(rec.Name, rec.Start, rec.Format)
	flatPath := filepath.Join(s.recordingsDir, fileName)

	if err := moveFile(mergedPath, flatPath); err != nil {
		s.setStatus(ctx, rec.ID, store.DestinationFlat, store.StorageFailed, "", err.Error())
		s.publishStorage(ctx, events.FileStoreFailed, rec, store.DestinationFlat, "", err.Error())
		return nil, fmt.Errorf("move to recordings directory: %w", err)
	}
	s.setStatus(ctx, rec.ID, store.DestinationFlat, store.StorageSuccess, flatPath, "")
	s.publishStorage(ctx, events.FileStored, rec, store.DestinationFlat, flatPath, "")
	s.applyRetention(ctx, rec)

	outcome := &Outcome{FlatPath: flatPath}

	group, groupCtx := errgroup.WithContext(context.WithoutCancel(ctx))
	var extraLocalErr, remoteErr error

	if rec.ExtraLocal {
		group.Go(func() error {
			extraLocalErr = s.deliverExtraLocal(groupCtx, rec, flatPath)
			return nil
		})
	}
	if rec.Remote {
		group.Go(func() error {
			remoteErr = s.deliverRemote(groupCtx, rec, flatPath, fileName)
			return nil
		})
	}
	_ = group.Wait()

	if extraLocalErr != nil {
		outcome.FailedDestinations = append(outcome.FailedDestinations, string(store.DestinationExtraLocal))
	}
	if remoteErr != nil {
		outcome.FailedDestinations = append(outcome.FailedDestinations, string(store.DestinationRemote))
	}
	return outcome, nil
}

// PersistFinalLocation records the recording's post-delivery file
// location.
func (s *Service) PersistFinalLocation(ctx context.Context, rec *store.Recording) error {
	return s.store.UpdateRecording(ctx, rec)
}

func (s *Service) deliverExtraLocal(ctx context.Context, rec *store.Recording, flatPath string) error {
	if s.extraLocalDir == "" {
		err := errors.New("extra local directory not configured")
		s.setStatus(ctx, rec.ID, store.DestinationExtraLocal, store.StorageFailed, "", err.Error())
		s.publishStorage(ctx, events.FileStoreFailed, rec, store.DestinationExtraLocal, "", err.Error())
		return err
	}
	target := HierarchicalPath(s.extraLocalDir, rec.Name, rec.Start, rec.Format)
	if err := copyFile(flatPath, target); err != nil {
		s.logger.WarnContext(ctx, "extra local copy failed",
			logging.Int64(logging.FieldRecordingID, rec.ID),
			logging.Error(err))
		s.setStatus(ctx, rec.ID, store.DestinationExtraLocal, store.StorageFailed, "", err.Error())
		s.publishStorage(ctx, events.FileStoreFailed, rec, store.DestinationExtraLocal, "", err.Error())
		return err
	}
	s.setStatus(ctx, rec.ID, store.DestinationExtraLocal, store.StorageSuccess, target, "")
	s.publishStorage(ctx, events.FileStored, rec, store.DestinationExtraLocal, target, "")
	return nil
}

func (s *Service) deliverRemote(ctx context.Context, rec *store.Recording, flatPath, fileName string) error {
	if s.uploader == nil {
		err := errors.New("remote storage not configured")
		s.setStatus(ctx, rec.ID, store.DestinationRemote, store.StorageFailed, "", err.Error())
		s.publishStorage(ctx, events.FileStoreFailed, rec, store.DestinationRemote, "", err.Error())
		return err
	}
	location, err := s.uploader.Upload(ctx, flatPath, HierarchicalDir(rec.Name, rec.Start), fileName)
	if err != nil {
		s.logger.WarnContext(ctx, "remote upload failed",
			logging.Int64(logging.FieldRecordingID, rec.ID),
			logging.Error(err))
		s.setStatus(ctx, rec.ID, store.DestinationRemote, store.StorageFailed, "", err.Error())
		s.publishStorage(ctx, events.FileStoreFailed, rec, store.DestinationRemote, "", err.Error())
		return err
	}
	s.setStatus(ctx, rec.ID, store.DestinationRemote, store.StorageSuccess, location, "")
	s.publishStorage(ctx, events.FileStored, rec, store.DestinationRemote, location, "")
	return nil
}

func (s *Service) setStatus(ctx context.Context, recordingID int64, destination store.Destination, state store.StorageState, location, detail string) {
	err := s.store.SetStorageStatus(ctx, &store.StorageStatus{
		RecordingID: recordingID,
		Destination: destination,
		State:       state,
		Location:    location,
		Detail:      detail,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "persist storage status failed",
			logging.Int64(logging.FieldRecordingID, recordingID),
			logging.String("destination", string(destination)),
			logging.Error(err))
	}
}

func (s *Service) publishStorage(ctx context.Context, event events.Type, rec *store.Recording, destination store.Destination, location, detail string) {
	s.publisher.Publish(ctx, event, events.Payload{
		RecordingID: rec.ID,
		StationID:   rec.StationID,
		Name:        rec.Name,
		Destination: string(destination),
		Location:    location,
		Detail:      detail,
		OccurredAt:  time.Now().UTC(),
	})
}

func moveFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	// Cross-device move falls back to copy and remove.
	if err := copyFile(src, dest); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()
	out, err := os.CreateTemp(filepath.Dir(dest), ".aircheck-copy-*")
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	tmpName := out.Name()
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmpName)
		return fmt.Errorf("copy file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("flush destination: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("finalize destination: %w", err)
	}
	return nil
}
