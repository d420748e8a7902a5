package capture

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fakeExecutor struct {
	calls  [][]string
	output []string
	err    error
	onRun  func(args []string)
}

func (f *fakeExecutor) Run(_ context.Context, _ string, args []string, onOutput func(string)) error {
	f.calls = append(f.calls, args)
	if f.onRun != nil {
		f.onRun(args)
	}
	if onOutput != nil {
		for _, line := range f.output {
			onOutput(line)
		}
	}
	return f.err
}

func TestCaptureArgsStreamCopy(t *testing.T) {
	args := captureArgs(Job{
		StreamURL:  "http://stream.example/live.mp3",
		OutputPath: "/tmp/out.mp3",
		Format:     "mp3",
		StreamCopy: true,
	}, 90*time.Second)

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-c:a copy") {
		t.Fatalf("expected stream copy args, got %s", joined)
	}
	if strings.Contains(joined, "-b:a") {
		t.Fatalf("stream copy must not set bitrate: %s", joined)
	}
	if !strings.Contains(joined, "-t 90") {
		t.Fatalf("expected -t 90, got %s", joined)
	}
}

func TestCaptureArgsReencode(t *testing.T) {
	args := captureArgs(Job{
		StreamURL:  "http://stream.example/live.aac",
		OutputPath: "/tmp/out.mp3",
		Format:     "mp3",
		Bitrate:    128,
	}, time.Minute)

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-c:a libmp3lame") {
		t.Fatalf("expected libmp3lame encoder, got %s", joined)
	}
	if !strings.Contains(joined, "-b:a 128k") {
		t.Fatalf("expected bitrate arg, got %s", joined)
	}
}

func TestCaptureReturnsFileEvenOnEarlyExit(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "segment-1.mp3")
	exec := &fakeExecutor{
		err: context.DeadlineExceeded,
		onRun: func([]string) {
			os.WriteFile(out, []byte("audio-bytes"), 0o644)
		},
	}
	client, err := New("ffmpeg", WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := client.Capture(context.Background(), Job{
		StreamURL:  "http://stream.example/live.mp3",
		OutputPath: out,
		Format:     "mp3",
		StopAt:     time.Now().Add(time.Minute),
	})
	if err == nil {
		t.Fatal("expected capture error to surface")
	}
	if result == nil {
		t.Fatal("expected partial result despite error")
	}
	if result.Size == 0 {
		t.Fatal("expected non-empty segment size")
	}
}

func TestCaptureRejectsClosedWindow(t *testing.T) {
	client, err := New("ffmpeg", WithExecutor(&fakeExecutor{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.Capture(context.Background(), Job{
		StreamURL:  "http://stream.example/live.mp3",
		OutputPath: filepath.Join(t.TempDir(), "out.mp3"),
		StopAt:     time.Now().Add(-time.Minute),
	})
	if err == nil {
		t.Fatal("expected error for closed capture window")
	}
}

func TestMergeSingleSegmentRenames(t *testing.T) {
	dir := t.TempDir()
	segment := filepath.Join(dir, "segment-1.mp3")
	if err := os.WriteFile(segment, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write segment: %v", err)
	}
	out := filepath.Join(dir, "final.mp3")

	exec := &fakeExecutor{}
	client, err := New("ffmpeg", WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := client.Merge(context.Background(), []string{segment}, out); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(exec.calls) != 0 {
		t.Fatal("single segment merge must not invoke ffmpeg")
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("merged file missing: %v", err)
	}
	if _, err := os.Stat(segment); !os.IsNotExist(err) {
		t.Fatal("segment should be moved away")
	}
}

func TestMergeMultipleSegmentsUsesConcat(t *testing.T) {
	dir := t.TempDir()
	var segments []string
	for i := 1; i <= 2; i++ {
		path := filepath.Join(dir, "segment-"+string(rune('0'+i))+".mp3")
		if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
			t.Fatalf("write segment: %v", err)
		}
		segments = append(segments, path)
	}
	out := filepath.Join(dir, "final.mp3")

	exec := &fakeExecutor{
		onRun: func(args []string) {
			os.WriteFile(out, []byte("merged"), 0o644)
		},
	}
	client, err := New("ffmpeg", WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := client.Merge(context.Background(), segments, out); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(exec.calls) != 1 {
		t.Fatalf("expected one ffmpeg call, got %d", len(exec.calls))
	}
	joined := strings.Join(exec.calls[0], " ")
	if !strings.Contains(joined, "-f concat") || !strings.Contains(joined, "-c copy") {
		t.Fatalf("unexpected concat args: %s", joined)
	}
	if _, err := os.Stat(out + ".concat"); !os.IsNotExist(err) {
		t.Fatal("concat list should be cleaned up")
	}
}

func TestProbeParsesAudioStream(t *testing.T) {
	exec := &fakeExecutor{
		output: []string{`{"streams":[{"codec_type":"audio","codec_name":"mp3","bit_rate":"128000"}],"format":{"bit_rate":"128000"}}`},
	}
	prober, err := NewProber("ffprobe", time.Second, WithProberExecutor(exec))
	if err != nil {
		t.Fatalf("NewProber: %v", err)
	}

	info, err := prober.Probe(context.Background(), "http://stream.example/live.mp3")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.Codec != "mp3" || info.Bitrate != 128 {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestProbeRejectsVideoOnlyStream(t *testing.T) {
	exec := &fakeExecutor{
		output: []string{`{"streams":[{"codec_type":"video","codec_name":"h264"}]}`},
	}
	prober, err := NewProber("ffprobe", time.Second, WithProberExecutor(exec))
	if err != nil {
		t.Fatalf("NewProber: %v", err)
	}
	if _, err := prober.Probe(context.Background(), "http://stream.example/tv"); err == nil {
		t.Fatal("expected error for stream without audio")
	}
}
