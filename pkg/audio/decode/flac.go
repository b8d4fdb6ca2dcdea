// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes FLAC frames with mewkiz/flac and keeps the first channel
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/mindscribe/mindscribe-go/pkg/audio"
)

// FLAC decodes a whole FLAC stream, keeping the first channel and scaling
// samples of any bit depth into [-1, 1).
func FLAC(r io.Reader) (audio.Buffer, error) {
	stream, err := flac.New(r)
	if err != nil {
		return audio.Buffer{}, invalid("failed to decode flac: %v", err)
	}
	defer stream.Close()

	info := stream.Info
	if info.BitsPerSample == 0 || info.BitsPerSample > 32 {
		return audio.Buffer{}, invalid("flac bit depth %d", info.BitsPerSample)
	}
	scale := float32(int64(1) << (info.BitsPerSample - 1))

	samples := make([]float32, 0, info.NSamples)
	for {
		frame, err := stream.ParseNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return audio.Buffer{}, fmt.Errorf("flac frame: %w", err)
		}
		if len(frame.Subframes) == 0 {
			continue
		}
		for _, s := range frame.Subframes[0].Samples {
			samples = append(samples, float32(s)/scale)
		}
	}

	if len(samples) == 0 {
		return audio.Buffer{}, invalid("flac has no audio frames")
	}
	return audio.Buffer{Samples: samples, SampleRate: int(info.SampleRate)}, nil
}
