package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"os/exec"

	"gallery-thumbs/internal/logging"
)

// ffmpegAvailable reports whether ffmpeg is on the PATH.
func ffmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// videoFrame extracts a frame one second into the video, falling back to
// the first frame for clips shorter than that.
func videoFrame(ctx context.Context, path string) (image.Image, error) {
	img, err := ffmpegFrame(ctx, path, "-ss", "00:00:01")
	if err == nil {
		return img, nil
	}
	logging.Debug("FFmpeg seek failed for %s: %v, retrying with first frame", path, err)
	return ffmpegFrame(ctx, path)
}

func ffmpegFrame(ctx context.Context, path string, seek ...string) (image.Image, error) {
	args := append([]string{"-hide_banner", "-loglevel", "error"}, seek...)
	args = append(args,
		"-i", path,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", path)
	}

	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}
	return img, nil
}
