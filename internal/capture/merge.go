package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Merge concatenates segment files into a single output using the concat
// demuxer with stream copy. Single-segment merges avoid ffmpeg entirely
// and rename the segment into place.
func (c *Client) Merge(ctx context.Context, segmentPaths []string, outputPath string) error {
	if len(segmentPaths) == 0 {
		return errors.New("no segments to merge")
	}
	if outputPath == "" {
		return errors.New("output path required")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	if len(segmentPaths) == 1 {
		if err := os.Rename(segmentPaths[0], outputPath); err != nil {
			return copyFile(segmentPaths[0], outputPath)
		}
		return nil
	}

	listPath := outputPath + ".concat"
	var list strings.Builder
	for _, path := range segmentPaths {
		fmt.Fprintf(&list, "file '%s'\n", strings.ReplaceAll(path, "'", `'\''`))
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	defer os.Remove(listPath)

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outputPath,
	}
	if err := c.exec.Run(ctx, c.binary, args, nil); err != nil {
		return fmt.Errorf("ffmpeg concat: %w", err)
	}
	if info, err := os.Stat(outputPath); err != nil || info.Size() == 0 {
		return errors.New("concat produced no output")
	}
	return nil
}

func copyFile(src, dest string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read segment: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("write merged file: %w", err)
	}
	return os.Remove(src)
}
