package config

import (
	"fmt"
	"net/url"
	"strings"
)

func (c *Config) normalize() error {
	for _, field := range []*string{
		&c.Paths.RecordingsDir,
		&c.Paths.StagingDir,
		&c.Paths.ExtraLocalDir,
		&c.Paths.LogDir,
	} {
		if strings.TrimSpace(*field) == "" {
			*field = ""
			continue
		}
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.Capture.DefaultFormat = strings.ToLower(strings.TrimSpace(c.Capture.DefaultFormat))
	c.Remote.URL = strings.TrimRight(strings.TrimSpace(c.Remote.URL), "/")
	c.Remote.BaseDir = "/" + strings.Trim(strings.TrimSpace(c.Remote.BaseDir), "/")
	c.Notifications.WebBaseURL = strings.TrimRight(strings.TrimSpace(c.Notifications.WebBaseURL), "/")
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Paths.RecordingsDir == "" {
		return fmt.Errorf("paths.recordings_dir is required")
	}
	if c.Paths.StagingDir == "" {
		return fmt.Errorf("paths.staging_dir is required")
	}
	if c.Paths.LogDir == "" {
		return fmt.Errorf("paths.log_dir is required")
	}
	if c.Capture.RetryBackoffSeconds <= 0 {
		return fmt.Errorf("capture.retry_backoff_seconds must be positive")
	}
	if c.Capture.DefaultBitrate < 0 {
		return fmt.Errorf("capture.default_bitrate must not be negative")
	}
	if c.Scheduler.TickSeconds <= 0 {
		return fmt.Errorf("scheduler.tick_seconds must be positive")
	}
	if c.Remote.URL != "" {
		parsed, err := url.Parse(c.Remote.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("remote.url must be an absolute URL")
		}
		if c.Remote.Username == "" || c.Remote.Password == "" {
			return fmt.Errorf("remote.username and remote.password are required when remote.url is set")
		}
	}
	if (c.Notifications.PushoverToken == "") != (c.Notifications.PushoverUser == "") {
		return fmt.Errorf("notifications.pushover_token and notifications.pushover_user must be set together")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json")
	}
	return nil
}
