package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"aircheck/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	if d.Status().Running {
		t.Fatal("daemon must not report running before Start")
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !d.Status().Running {
		t.Fatal("daemon should report running")
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("second Start must fail")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("daemon must not report running after Stop")
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { first.Close() })
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New second daemon: %v", err)
	}
	t.Cleanup(func() { second.Close() })
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second daemon must not acquire the lock")
	}
}

func TestDaemonWiresOptionalDestinations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t,
		testsupport.WithExtraLocalDir(filepath.Join(t.TempDir(), "archive")),
		testsupport.WithRemote(server.URL, "aircheck", "secret"),
	)
	d, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New with destinations: %v", err)
	}
	d.Close()
}

func TestDaemonRejectsBadRemoteURL(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRemote("not-a-url", "u", "p"))
	if _, err := New(cfg, nil); err == nil {
		t.Fatal("expected configuration error for invalid remote URL")
	}
}

func TestTestNotificationWithoutCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	sent, detail, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if sent {
		t.Fatal("notification must not send without credentials")
	}
	if detail == "" {
		t.Fatal("expected explanatory detail")
	}
}
