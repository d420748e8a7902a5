// Package daemon assembles the recording services and enforces
// single-instance execution.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"aircheck/internal/capture"
	"aircheck/internal/config"
	"aircheck/internal/dispatch"
	"aircheck/internal/events"
	"aircheck/internal/fanout"
	"aircheck/internal/logging"
	"aircheck/internal/notify"
	"aircheck/internal/podcast"
	"aircheck/internal/remote"
	"aircheck/internal/scheduler"
	"aircheck/internal/store"
	"aircheck/internal/supervisor"
)

// Daemon owns the scheduler loop and the services behind it.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	sched    *scheduler.Scheduler
	notifier notify.Service
	logPath  string

	lockPath string
	pidPath  string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	done    sync.WaitGroup
}

// Status reports daemon runtime information.
type Status struct {
	Running      bool
	DatabasePath string
	LockFilePath string
	LogFilePath  string
}

// New wires the full service graph from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("configuration required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("prepare directories: %w", err)
	}

	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	ffmpeg, err := capture.New(cfg.FFmpegBinary())
	if err != nil {
		st.Close()
		return nil, err
	}

	var uploader fanout.Uploader
	if strings.TrimSpace(cfg.Remote.URL) != "" {
		client, err := remote.New(remote.Config{
			URL:      cfg.Remote.URL,
			Username: cfg.Remote.Username,
			Password: cfg.Remote.Password,
			BaseDir:  cfg.Remote.BaseDir,
			Timeout:  time.Duration(cfg.Remote.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("configure remote storage: %w", err)
		}
		uploader = client
	}

	publisher := events.NewLogPublisher(logger)
	notifier := notify.NewService(cfg)

	fan, err := fanout.NewService(fanout.Options{
		Store:         st,
		Uploader:      uploader,
		Publisher:     publisher,
		Logger:        logger,
		RecordingsDir: cfg.Paths.RecordingsDir,
		ExtraLocalDir: cfg.Paths.ExtraLocalDir,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	sup, err := supervisor.New(supervisor.Options{
		Store:      st,
		Recorder:   ffmpeg,
		Publisher:  publisher,
		Notifier:   notifier,
		Logger:     logger,
		StagingDir: cfg.Paths.StagingDir,
		Backoff:    time.Duration(cfg.Capture.RetryBackoffSeconds) * time.Second,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	dispatcher, err := dispatch.New(dispatch.Options{
		Supervisor: sup,
		Fanout:     fan,
		Notifier:   notifier,
		Podcasts:   podcast.NewService(st, logger),
		Logger:     logger,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	sched, err := scheduler.New(scheduler.Options{
		Store:          st,
		Runner:         dispatcher,
		Logger:         logger,
		Tick:           time.Duration(cfg.Scheduler.TickSeconds) * time.Second,
		DefaultFormat:  cfg.Capture.DefaultFormat,
		DefaultBitrate: cfg.Capture.DefaultBitrate,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "aircheckd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		store:    st,
		sched:    sched,
		notifier: notifier,
		logPath:  filepath.Join(cfg.Paths.LogDir, "aircheck.log"),
		lockPath: lockPath,
		pidPath:  filepath.Join(cfg.Paths.LogDir, "aircheckd.pid"),
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, recovers persisted state and launches
// the scheduler loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another aircheck daemon instance is already running")
	}

	if err := writePIDFile(d.pidPath); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("write pid file: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.sched.RecoverOnStartup(runCtx); err != nil {
		cancel()
		_ = os.Remove(d.pidPath)
		_ = d.lock.Unlock()
		return fmt.Errorf("startup recovery: %w", err)
	}
	d.cancel = cancel

	d.done.Add(1)
	go func() {
		defer d.done.Done()
		if err := d.sched.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("scheduler loop exited", logging.Error(err))
		}
	}()

	d.running.Store(true)
	d.logger.Info("aircheck daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts the scheduler, waits for in-flight recordings to settle and
// releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.done.Wait()
	d.sched.Wait()
	if err := os.Remove(d.pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		d.logger.Warn("failed to remove pid file", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("aircheck daemon stopped")
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// Close stops the daemon and releases its resources.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Scheduler exposes the scheduling surface for command handlers.
func (d *Daemon) Scheduler() *scheduler.Scheduler {
	return d.sched
}

// Store exposes the persistence layer for command handlers.
func (d *Daemon) Store() *store.Store {
	return d.store
}

// TestNotification sends a test push using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.PushoverToken) == "" {
		return false, "pushover credentials not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the daemon log file location.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status reports the current runtime state.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		LogFilePath:  d.logPath,
	}
}
