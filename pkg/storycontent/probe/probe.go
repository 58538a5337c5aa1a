// Package probe extracts derived metadata from media binaries: audio
// duration via ffprobe, representative still frames via ffmpeg, and image
// dimensions via the registered image decoders.
package probe

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	// Registered for image.DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Config options for the ffmpeg-based prober
type Config struct {
	FFmpegPath  string // Path to the ffmpeg binary (default: "ffmpeg")
	FFprobePath string // Path to the ffprobe binary (default: "ffprobe")
	TempDir     string // Scratch directory for probe inputs (default: os.TempDir())
}

// FFmpegProber implements storycontent.Prober by shelling out to ffmpeg and
// ffprobe. Sources are spooled to a temp file first; both tools want a
// seekable input.
type FFmpegProber struct {
	ffmpeg  string
	ffprobe string
	tempDir string
}

// New creates a new ffmpeg-based prober
func New(config Config) *FFmpegProber {
	if config.FFmpegPath == "" {
		config.FFmpegPath = "ffmpeg"
	}
	if config.FFprobePath == "" {
		config.FFprobePath = "ffprobe"
	}
	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}
	return &FFmpegProber{
		ffmpeg:  config.FFmpegPath,
		ffprobe: config.FFprobePath,
		tempDir: config.TempDir,
	}
}

// ProbeDuration returns the playable duration of an audio source in seconds
func (p *FFmpegProber) ProbeDuration(ctx context.Context, src io.Reader) (float64, error) {
	path, cleanup, err := p.spool(src)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	out, err := exec.CommandContext(ctx, p.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return duration, nil
}

// ExtractFrame returns the first video frame encoded as JPEG
func (p *FFmpegProber) ExtractFrame(ctx context.Context, src io.Reader) ([]byte, error) {
	path, cleanup, err := p.spool(src)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	framePath := path + ".jpg"
	defer os.Remove(framePath)

	cmd := exec.CommandContext(ctx, p.ffmpeg,
		"-i", path,
		"-frames:v", "1",
		"-q:v", "2",
		"-y", framePath,
	)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg frame extraction failed: %w", err)
	}

	frame, err := os.ReadFile(framePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read extracted frame: %w", err)
	}
	return frame, nil
}

// InspectImage returns the pixel dimensions of an image source
func (p *FFmpegProber) InspectImage(ctx context.Context, src io.Reader) (int, int, error) {
	config, _, err := image.DecodeConfig(src)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image config: %w", err)
	}
	return config.Width, config.Height, nil
}

// spool writes the source to a temp file and returns its path with a cleanup
// function.
func (p *FFmpegProber) spool(src io.Reader) (string, func(), error) {
	file, err := os.CreateTemp(p.tempDir, "probe-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create probe temp file: %w", err)
	}
	path := file.Name()
	cleanup := func() { os.Remove(path) }

	if _, err := io.Copy(file, src); err != nil {
		file.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to spool probe input: %w", err)
	}
	if err := file.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to close probe temp file: %w", err)
	}
	return path, cleanup, nil
}

// DecodeImageBytes is a convenience wrapper for inspecting an in-memory image.
func DecodeImageBytes(data []byte) (int, int, error) {
	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return config.Width, config.Height, nil
}
