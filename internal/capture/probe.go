package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StreamInfo summarises what ffprobe saw on a live stream.
type StreamInfo struct {
	Codec   string
	Bitrate int
}

// Prober validates that a stream URL serves decodable audio.
type Prober struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// ProberOption configures the prober.
type ProberOption func(*Prober)

// WithProberExecutor injects a custom executor (primarily for tests).
func WithProberExecutor(exec Executor) ProberOption {
	return func(p *Prober) {
		if exec != nil {
			p.exec = exec
		}
	}
}

// NewProber constructs an ffprobe wrapper.
func NewProber(binary string, timeout time.Duration, opts ...ProberOption) (*Prober, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffprobe binary required")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	prober := &Prober{binary: binary, timeout: timeout, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(prober)
	}
	return prober, nil
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		BitRate   string `json:"bit_rate"`
	} `json:"streams"`
	Format struct {
		BitRate string `json:"bit_rate"`
	} `json:"format"`
}

// Probe inspects the stream and returns its audio codec and bitrate.
func (p *Prober) Probe(ctx context.Context, streamURL string) (*StreamInfo, error) {
	if streamURL == "" {
		return nil, errors.New("stream url required")
	}
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		streamURL,
	}
	var output strings.Builder
	if err := p.exec.Run(probeCtx, p.binary, args, func(line string) {
		output.WriteString(line)
		output.WriteString("\n")
	}); err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}

	var parsed probeOutput
	if err := json.Unmarshal([]byte(output.String()), &parsed); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	for _, stream := range parsed.Streams {
		if stream.CodecType != "audio" {
			continue
		}
		info := &StreamInfo{Codec: normalizeCodec(stream.CodecName)}
		if rate := parseBitrate(stream.BitRate); rate > 0 {
			info.Bitrate = rate
		} else {
			info.Bitrate = parseBitrate(parsed.Format.BitRate)
		}
		return info, nil
	}
	return nil, errors.New("stream carries no audio")
}

func normalizeCodec(codec string) string {
	switch strings.ToLower(codec) {
	case "mp3", "mp3float":
		return "mp3"
	case "aac", "aac_latm":
		return "aac"
	default:
		return strings.ToLower(codec)
	}
}

func parseBitrate(raw string) int {
	bits, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || bits <= 0 {
		return 0
	}
	return bits / 1000
}
