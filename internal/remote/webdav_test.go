package remote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type recordedRequest struct {
	method string
	path   string
	body   string
}

func newTestServer(t *testing.T, mkcolStatus int) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, recordedRequest{method: r.Method, path: r.URL.Path, body: string(body)})
		switch r.Method {
		case "MKCOL":
			w.WriteHeader(mkcolStatus)
		case http.MethodPut:
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := New(Config{
		URL:      serverURL,
		Username: "alice",
		Password: "secret",
		BaseDir:  "/Recordings",
		Timeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "final.mp3")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestUploadCreatesCollectionChain(t *testing.T) {
	server, requests := newTestServer(t, http.StatusCreated)
	client := newTestClient(t, server.URL)

	location, err := client.Upload(context.Background(), writeTempFile(t, "audio"), "morning-show/2026/September", "morning-show260901-Tue.mp3")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	wantPaths := []string{
		"/Recordings",
		"/Recordings/morning-show",
		"/Recordings/morning-show/2026",
		"/Recordings/morning-show/2026/September",
		"/Recordings/morning-show/2026/September/morning-show260901-Tue.mp3",
	}
	if len(*requests) != len(wantPaths) {
		t.Fatalf("expected %d requests, got %d", len(wantPaths), len(*requests))
	}
	for i, want := range wantPaths {
		got := (*requests)[i]
		if got.path != want {
			t.Fatalf("request %d path = %s, want %s", i, got.path, want)
		}
		if i < len(wantPaths)-1 && got.method != "MKCOL" {
			t.Fatalf("request %d method = %s, want MKCOL", i, got.method)
		}
	}
	last := (*requests)[len(*requests)-1]
	if last.method != http.MethodPut || last.body != "audio" {
		t.Fatalf("unexpected final request: %+v", last)
	}
	if location == "" {
		t.Fatal("expected remote location")
	}
}

func TestUploadToleratesExistingCollections(t *testing.T) {
	server, _ := newTestServer(t, http.StatusMethodNotAllowed)
	client := newTestClient(t, server.URL)

	if _, err := client.Upload(context.Background(), writeTempFile(t, "audio"), "show", "file.mp3"); err != nil {
		t.Fatalf("Upload with existing collections: %v", err)
	}
}

func TestUploadSurfacesServerErrors(t *testing.T) {
	server, _ := newTestServer(t, http.StatusInternalServerError)
	client := newTestClient(t, server.URL)

	if _, err := client.Upload(context.Background(), writeTempFile(t, "audio"), "show", "file.mp3"); err == nil {
		t.Fatal("expected mkcol failure to surface")
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{URL: "", Username: "a", Password: "b"}); err == nil {
		t.Fatal("expected error for missing url")
	}
	if _, err := New(Config{URL: "https://dav.example", Username: "a"}); err == nil {
		t.Fatal("expected error for missing password")
	}
	if _, err := New(Config{URL: "not-a-url", Username: "a", Password: "b"}); err == nil {
		t.Fatal("expected error for relative url")
	}
}
