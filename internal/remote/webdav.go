// Package remote uploads finished recordings to a WebDAV share.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"
)

// Client talks to a WebDAV endpoint using basic auth.
type Client struct {
	baseURL  string
	username string
	password string
	baseDir  string
	http     *http.Client
}

// Config carries the connection parameters.
type Config struct {
	URL      string
	Username string
	Password string
	BaseDir  string
	Timeout  time.Duration
}

// New validates the configuration and constructs a client.
func New(cfg Config) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if trimmed == "" {
		return nil, errors.New("webdav url required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || !parsed.IsAbs() {
		return nil, fmt.Errorf("webdav url %q is not absolute", cfg.URL)
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("webdav credentials required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	baseDir := strings.Trim(cfg.BaseDir, "/")
	return &Client{
		baseURL:  trimmed,
		username: cfg.Username,
		password: cfg.Password,
		baseDir:  baseDir,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

// Upload stores the local file at remoteDir/fileName under the base
// directory, creating each intermediate collection first.
func (c *Client) Upload(ctx context.Context, localPath, remoteDir, fileName string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open upload source: %w", err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("stat upload source: %w", err)
	}

	dir := path.Join(c.baseDir, strings.Trim(remoteDir, "/"))
	if err := c.ensureCollections(ctx, dir); err != nil {
		return "", err
	}

	target := c.resourceURL(path.Join(dir, fileName))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, file)
	if err != nil {
		return "", fmt.Errorf("build put request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("put %s: %w", fileName, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("put %s: unexpected status %d", fileName, resp.StatusCode)
	}
	return target, nil
}

// ensureCollections issues MKCOL for every path element in turn. A 405
// means the collection already exists and is not an error.
func (c *Client) ensureCollections(ctx context.Context, dir string) error {
	if dir == "" {
		return nil
	}
	var current string
	for _, part := range strings.Split(dir, "/") {
		if part == "" {
			continue
		}
		current = path.Join(current, part)
		req, err := http.NewRequestWithContext(ctx, "MKCOL", c.resourceURL(current), nil)
		if err != nil {
			return fmt.Errorf("build mkcol request: %w", err)
		}
		req.SetBasicAuth(c.username, c.password)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("mkcol %s: %w", current, err)
		}
		resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusCreated, http.StatusMethodNotAllowed:
			// Created now, or already present.
		default:
			return fmt.Errorf("mkcol %s: unexpected status %d", current, resp.StatusCode)
		}
	}
	return nil
}

func (c *Client) resourceURL(resource string) string {
	parts := strings.Split(resource, "/")
	escaped := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		escaped = append(escaped, url.PathEscape(part))
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}
