package thumbnails

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// CreatePosterFrame extracts the first video frame as the big thumbnail.
func (e *Engine) CreatePosterFrame(ctx context.Context, inputPath, hash string) (string, error) {
	outPath := e.Path(DirBig, hash, ".webp")
	if e.Exists(DirBig, hash, ".webp") {
		return outPath, nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("create thumbnail dir: %w", err)
	}

	args := []string{
		"-i", inputPath,
		"-ss", "00:00:00.000",
		"-vframes", "1",
		outPath,
	}
	if err := e.runFFmpeg(ctx, args); err != nil {
		return "", err
	}
	return outPath, nil
}

// CreateClip renders a muted preview clip of at most five seconds, scaled
// to the given height.
func (e *Engine) CreateClip(ctx context.Context, inputPath, hash string, outputHeight int) (string, error) {
	outPath := e.Path(DirSquare, hash, ".mp4")
	if e.Exists(DirSquare, hash, ".mp4") {
		return outPath, nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("create thumbnail dir: %w", err)
	}

	args := []string{
		"-i", inputPath,
		"-to", "00:00:05",
		"-vcodec", "libx264",
		"-crf", "20",
		"-an",
		"-filter:v", "scale=-2:" + strconv.Itoa(outputHeight),
		outPath,
	}
	if err := e.runFFmpeg(ctx, args); err != nil {
		return "", err
	}
	return outPath, nil
}

// VideoLength probes the duration of a video in seconds.
func (e *Engine) VideoLength(ctx context.Context, inputPath string) (float64, error) {
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", inputPath, err)
	}
	length, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: unparseable duration %q", inputPath, out)
	}
	return length, nil
}

func (e *Engine) runFFmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", append([]string{"-y", "-loglevel", "error"}, args...)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg %s: %w: %s", strings.Join(args, " "), err, output)
	}
	return nil
}
