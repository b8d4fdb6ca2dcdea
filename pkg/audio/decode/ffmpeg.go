// ABOUTME: ffmpeg-backed decoder for video and other containers
// ABOUTME: Extracts a mono s16le stream from any input ffmpeg understands
package decode

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mindscribe/mindscribe-go/pkg/audio"
)

// DefaultFFmpegRate is the rate ffmpeg decodes to before the pipeline's own
// resampler takes over, matching a typical browser audio context
const DefaultFFmpegRate = 48000

// FFmpeg runs an external ffmpeg binary to extract audio
type FFmpeg struct {
	// Path is the ffmpeg binary, looked up in PATH when bare
	Path string

	// SampleRate is the rate requested from ffmpeg
	SampleRate int
}

// NewFFmpeg returns the default ffmpeg configuration
func NewFFmpeg() *FFmpeg {
	return &FFmpeg{Path: "ffmpeg", SampleRate: DefaultFFmpegRate}
}

// Available reports whether the ffmpeg binary can be found
func (f *FFmpeg) Available() bool {
	_, err := exec.LookPath(f.Path)
	return err == nil
}

// Args returns the ffmpeg command line used to decode input
func (f *FFmpeg) Args(input string) []string {
	return []string{
		"-loglevel", "error",
		"-nostdin",
		"-i", input,
		"-vn",
		"-f", "s16le",
		"-ac", "1",
		"-ar", strconv.Itoa(f.SampleRate),
		"-",
	}
}

// DecodeFile extracts the first audio track of input as mono 16-bit PCM
func (f *FFmpeg) DecodeFile(ctx context.Context, input string) (audio.Buffer, error) {
	if f.SampleRate <= 0 {
		return audio.Buffer{}, invalid("ffmpeg sample rate %d", f.SampleRate)
	}
	bin, err := exec.LookPath(f.Path)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("ffmpeg not found in PATH: %w (install with: brew install ffmpeg)", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, f.Args(input)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return audio.Buffer{}, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		return audio.Buffer{}, invalid("ffmpeg: %v: %s", err, msg)
	}

	return PCM(stdout.Bytes(), 16, 1, f.SampleRate)
}
