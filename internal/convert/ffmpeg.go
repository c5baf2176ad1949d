package convert

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Transcoder converts an audio file on disk into the target container.
type Transcoder interface {
	Transcode(ctx context.Context, srcPath, dstPath string) error
}

// DurationProber extracts the duration of a media file in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// FFmpegTranscoder shells out to ffmpeg for the authoritative conversion
// to AAC audio in an MP4 container.
type FFmpegTranscoder struct {
	Binary  string
	Codec   string
	Bitrate string
}

// Transcode runs ffmpeg -y -i src -c:a <codec> -b:a <bitrate> dst.
func (t *FFmpegTranscoder) Transcode(ctx context.Context, srcPath, dstPath string) error {
	args := []string{
		"-y",
		"-i", srcPath,
		"-c:a", t.Codec,
		"-b:a", t.Bitrate,
		dstPath,
	}

	cmd := exec.CommandContext(ctx, t.Binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg transcode failed: %w (stderr: %s)",
			err, strings.TrimSpace(stderr.String()))
	}

	return nil
}

// FFprobeProber shells out to ffprobe to read container duration.
type FFprobeProber struct {
	Binary string
}

// Duration runs ffprobe and parses the format duration in seconds.
func (p *FFprobeProber) Duration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, p.Binary, args...)

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe duration %q: %w", output, err)
	}

	return duration, nil
}
