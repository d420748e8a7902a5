// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"aircheck/internal/config"
	"aircheck/internal/store"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per
// test and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.RecordingsDir = filepath.Join(base, "recordings")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithExtraLocalDir enables the extra local destination on the test
// config.
func WithExtraLocalDir(path string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.ExtraLocalDir = path
	}
}

// WithRemote points the test config at a WebDAV endpoint.
func WithRemote(url, username, password string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Remote.URL = url
		cfg.Remote.Username = username
		cfg.Remote.Password = password
	}
}

// MustOpenStore opens a store backed by a per-test database file.
func MustOpenStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "aircheck.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
