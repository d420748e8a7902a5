// Package capture drives ffmpeg to pull audio off a live stream and to
// stitch the resulting segments back together.
package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// Job describes one continuous capture attempt.
type Job struct {
	StreamURL  string
	OutputPath string
	// Format is the output container/codec family (mp3, aac).
	Format string
	// Bitrate in kbit/s, used only when re-encoding.
	Bitrate int
	// StreamCopy passes the source audio through unchanged. Set when the
	// source codec already matches the requested format.
	StreamCopy bool
	// StopAt bounds the attempt; ffmpeg receives the remaining window as
	// its -t argument.
	StopAt time.Time
}

// Result reports a finished capture attempt.
type Result struct {
	Path      string
	Size      int64
	StartedAt time.Time
	EndedAt   time.Time
}

// encoders maps requested output formats to their ffmpeg encoder names.
var encoders = map[string]string{
	"mp3": "libmp3lame",
	"aac": "aac",
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps ffmpeg invocations.
type Client struct {
	binary string
	exec   Executor
}

// New constructs an ffmpeg client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	client := &Client{binary: binary, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Capture runs one ffmpeg attempt against the stream. It returns the
// produced file, even if ffmpeg exited early: a truncated segment is
// still usable audio.
func (c *Client) Capture(ctx context.Context, job Job) (*Result, error) {
	if job.StreamURL == "" {
		return nil, errors.New("stream url required")
	}
	if job.OutputPath == "" {
		return nil, errors.New("output path required")
	}
	if err := os.MkdirAll(filepath.Dir(job.OutputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create segment directory: %w", err)
	}

	started := time.Now().UTC()
	remaining := time.Until(job.StopAt)
	if remaining <= 0 {
		return nil, errors.New("capture window already closed")
	}

	args := captureArgs(job, remaining)
	runErr := c.exec.Run(ctx, c.binary, args, nil)
	ended := time.Now().UTC()

	info, statErr := os.Stat(job.OutputPath)
	if statErr != nil || info.Size() == 0 {
		if runErr != nil {
			return nil, fmt.Errorf("ffmpeg capture: %w", runErr)
		}
		return nil, errors.New("ffmpeg produced no output")
	}

	result := &Result{
		Path:      job.OutputPath,
		Size:      info.Size(),
		StartedAt: started,
		EndedAt:   ended,
	}
	if runErr != nil {
		return result, fmt.Errorf("ffmpeg capture: %w", runErr)
	}
	return result, nil
}

func captureArgs(job Job, remaining time.Duration) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", job.StreamURL,
		"-vn",
	}
	if job.StreamCopy {
		args = append(args, "-c:a", "copy")
	} else {
		encoder, ok := encoders[strings.ToLower(job.Format)]
		if !ok {
			encoder = encoders["mp3"]
		}
		args = append(args, "-c:a", encoder)
		if job.Bitrate > 0 {
			args = append(args, "-b:a", strconv.Itoa(job.Bitrate)+"k")
		}
	}
	secs := int(remaining.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	args = append(args, "-t", strconv.Itoa(secs), job.OutputPath)
	return args
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if onOutput != nil {
				onOutput(scanner.Text())
			}
		}
	}
	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
