// ABOUTME: PCM audio decoder
// ABOUTME: Decodes interleaved 16-bit and 24-bit PCM to a mono float buffer
package decode

import (
	"encoding/binary"

	"github.com/mindscribe/mindscribe-go/pkg/audio"
)

// PCM decodes interleaved little-endian PCM, keeping the first channel.
// A trailing partial frame is dropped.
func PCM(data []byte, bitDepth, channels, sampleRate int) (audio.Buffer, error) {
	if bitDepth != 16 && bitDepth != 24 {
		return audio.Buffer{}, invalid("unsupported bit depth: %d (supported: 16, 24)", bitDepth)
	}
	if channels <= 0 {
		return audio.Buffer{}, invalid("channel count %d", channels)
	}
	if sampleRate <= 0 {
		return audio.Buffer{}, invalid("sample rate %d", sampleRate)
	}

	bytesPerSample := bitDepth / 8
	frameSize := bytesPerSample * channels
	numFrames := len(data) / frameSize
	if numFrames == 0 {
		return audio.Buffer{}, invalid("no PCM frames")
	}

	samples := make([]float32, numFrames)
	for i := 0; i < numFrames; i++ {
		off := i * frameSize
		if bitDepth == 24 {
			b := [3]byte{data[off], data[off+1], data[off+2]}
			samples[i] = audio.Int24ToFloat(audio.SampleFrom24Bit(b))
		} else {
			samples[i] = audio.Int16ToFloat(int16(binary.LittleEndian.Uint16(data[off:])))
		}
	}

	return audio.Buffer{Samples: samples, SampleRate: sampleRate}, nil
}
