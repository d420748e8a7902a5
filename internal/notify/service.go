// Package notify pushes recording outcomes to the operator's phone.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"aircheck/internal/config"
)

const (
	userAgent       = "Aircheck/0.1.0"
	defaultEndpoint = "https://api.pushover.net/1/messages.json"
)

// Summary describes a finished recording for notification purposes.
type Summary struct {
	RecordingID        int64
	Name               string
	Status             string
	Duration           time.Duration
	FileSize           int64
	Link               string
	FailedDestinations []string
	Detail             string
}

// Service defines the notification surface exposed to the daemon.
type Service interface {
	NotifyRecordingStarted(ctx context.Context, name string) error
	NotifyRecordingFinished(ctx context.Context, summary Summary) error
	NotifyStorageFailure(ctx context.Context, name, destination, detail string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a Pushover-backed service when credentials are
// configured, otherwise a noop implementation.
func NewService(cfg *config.Config) Service {
	token := strings.TrimSpace(cfg.Notifications.PushoverToken)
	user := strings.TrimSpace(cfg.Notifications.PushoverUser)
	if token == "" || user == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &pushoverService{
		endpoint: defaultEndpoint,
		token:    token,
		user:     user,
		webBase:  strings.TrimRight(strings.TrimSpace(cfg.Notifications.WebBaseURL), "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	priority string
	link     string
}

type pushoverService struct {
	endpoint string
	token    string
	user     string
	webBase  string
	client   *http.Client
}

func (p *pushoverService) NotifyRecordingStarted(ctx context.Context, name string) error {
	return p.send(ctx, payload{
		title:   "Aircheck - Recording Started",
		message: fmt.Sprintf("Started recording: %s", strings.TrimSpace(name)),
	})
}

func (p *pushoverService) NotifyRecordingFinished(ctx context.Context, summary Summary) error {
	name := strings.TrimSpace(summary.Name)
	duration := summary.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var data payload
	switch summary.Status {
	case "complete":
		data.title = "Aircheck - Recording Complete"
		data.message = fmt.Sprintf("%s finished: %s, %s", name, duration, humanize.Bytes(uint64(summary.FileSize)))
	case "partial":
		data.title = "Aircheck - Recording Partial"
		data.message = fmt.Sprintf("%s finished with gaps: %s captured, %s", name, duration, humanize.Bytes(uint64(summary.FileSize)))
	default:
		data.title = "Aircheck - Recording Failed"
		data.message = fmt.Sprintf("%s produced no usable audio", name)
		if detail := strings.TrimSpace(summary.Detail); detail != "" {
			data.message += ": " + detail
		}
		data.priority = "1"
	}
	if len(summary.FailedDestinations) > 0 {
		data.message += fmt.Sprintf("\nStorage failed: %s", strings.Join(summary.FailedDestinations, ", "))
		data.priority = "1"
	}
	data.link = summary.Link
	if data.link == "" && p.webBase != "" && summary.RecordingID > 0 {
		data.link = fmt.Sprintf("%s/recordings/%d", p.webBase, summary.RecordingID)
	}
	return p.send(ctx, data)
}

func (p *pushoverService) NotifyStorageFailure(ctx context.Context, name, destination, detail string) error {
	message := fmt.Sprintf("Could not store %s to %s", strings.TrimSpace(name), destination)
	if detail = strings.TrimSpace(detail); detail != "" {
		message += ": " + detail
	}
	return p.send(ctx, payload{
		title:    "Aircheck - Storage Failed",
		message:  message,
		priority: "1",
	})
}

func (p *pushoverService) TestNotification(ctx context.Context) error {
	return p.send(ctx, payload{
		title:   "Aircheck - Test",
		message: "Notification system test",
	})
}

func (p *pushoverService) send(ctx context.Context, data payload) error {
	if p == nil || p.client == nil {
		return nil
	}
	form := url.Values{}
	form.Set("token", p.token)
	form.Set("user", p.user)
	form.Set("title", data.title)
	form.Set("message", data.message)
	if data.priority != "" {
		form.Set("priority", data.priority)
	}
	if data.link != "" {
		form.Set("url", data.link)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build pushover request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send pushover notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("pushover returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRecordingStarted(context.Context, string) error       { return nil }
func (noopService) NotifyRecordingFinished(context.Context, Summary) error     { return nil }
func (noopService) NotifyStorageFailure(context.Context, string, string, string) error {
	return nil
}
func (noopService) TestNotification(context.Context) error { return nil }
