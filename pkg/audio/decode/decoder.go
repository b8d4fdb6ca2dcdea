// ABOUTME: Decoder interface and file dispatch
// ABOUTME: Picks a decoder by file extension and falls back to ffmpeg for video
package decode

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mindscribe/mindscribe-go/pkg/audio"
)

// Decoder turns an encoded stream into one channel of samples at the
// stream's native rate
type Decoder interface {
	Decode(r io.Reader) (audio.Buffer, error)
}

// DecoderFunc adapts a function to the Decoder interface
type DecoderFunc func(r io.Reader) (audio.Buffer, error)

// Decode calls f(r)
func (f DecoderFunc) Decode(r io.Reader) (audio.Buffer, error) {
	return f(r)
}

// ForExtension returns the native decoder for a file extension such as
// ".wav". Unknown extensions report false.
func ForExtension(ext string) (Decoder, bool) {
	switch strings.ToLower(ext) {
	case ".wav", ".wave":
		return DecoderFunc(WAV), true
	case ".mp3":
		return DecoderFunc(MP3), true
	case ".flac":
		return DecoderFunc(FLAC), true
	default:
		return nil, false
	}
}

// File decodes an audio or video file. Audio formats with a native decoder
// are read directly; everything else goes through ffmpeg.
func File(ctx context.Context, path string) (audio.Buffer, error) {
	return FileWith(ctx, path, NewFFmpeg())
}

// FileWith is File with an explicit ffmpeg configuration
func FileWith(ctx context.Context, path string, ff *FFmpeg) (audio.Buffer, error) {
	if _, err := os.Stat(path); err != nil {
		return audio.Buffer{}, fmt.Errorf("media file: %w", err)
	}

	dec, ok := ForExtension(filepath.Ext(path))
	if !ok {
		return ff.DecodeFile(ctx, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("failed to open media file: %w", err)
	}
	defer f.Close()

	buf, err := dec.Decode(f)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return buf, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", audio.ErrInvalidAudioInput, fmt.Sprintf(format, args...))
}
