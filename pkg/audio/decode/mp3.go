// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MP3 with go-mp3 and keeps the left channel
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
	"github.com/mindscribe/mindscribe-go/pkg/audio"
)

// MP3 decodes a whole MP3 stream. go-mp3 always yields 16-bit stereo, so the
// left channel is kept.
func MP3(r io.Reader) (audio.Buffer, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return audio.Buffer{}, invalid("failed to decode mp3: %v", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("mp3 decode error: %w", err)
	}

	// 2 channels * 2 bytes
	numFrames := len(pcm) / 4
	if numFrames == 0 {
		return audio.Buffer{}, invalid("mp3 has no audio frames")
	}

	samples := make([]float32, numFrames)
	for i := 0; i < numFrames; i++ {
		samples[i] = audio.Int16ToFloat(int16(binary.LittleEndian.Uint16(pcm[i*4:])))
	}

	return audio.Buffer{Samples: samples, SampleRate: decoder.SampleRate()}, nil
}
