// ABOUTME: Nearest-neighbor resampler for mono float32 buffers
// ABOUTME: Converts decoded audio to the fixed transcription sample rate
package resample

import (
	"fmt"

	"github.com/mindscribe/mindscribe-go/pkg/audio"
)

// Resample converts buf to audio.TargetRate
func Resample(buf audio.Buffer) (audio.Buffer, error) {
	return To(buf, audio.TargetRate)
}

// To converts buf to outputRate by nearest-neighbor selection.
// Output sample i is source sample floor(i / ratio) where
// ratio = outputRate / buf.SampleRate. No anti-aliasing filter is applied.
func To(buf audio.Buffer, outputRate int) (audio.Buffer, error) {
	if err := buf.Validate(); err != nil {
		return audio.Buffer{}, err
	}
	if outputRate <= 0 {
		return audio.Buffer{}, fmt.Errorf("%w: output rate %d", audio.ErrInvalidAudioInput, outputRate)
	}

	if buf.SampleRate == outputRate {
		out := make([]float32, len(buf.Samples))
		copy(out, buf.Samples)
		return audio.Buffer{Samples: out, SampleRate: outputRate}, nil
	}

	n := OutputLength(len(buf.Samples), buf.SampleRate, outputRate)
	out := make([]float32, n)

	// floor(i / (to/from)) == floor(i*from/to), kept in integers so the
	// index never rounds past the last input sample
	from, to := int64(buf.SampleRate), int64(outputRate)
	for i := range out {
		out[i] = buf.Samples[int64(i)*from/to]
	}

	return audio.Buffer{Samples: out, SampleRate: outputRate}, nil
}

// OutputLength returns floor(inputLength * outputRate / inputRate)
func OutputLength(inputLength, inputRate, outputRate int) int {
	if inputRate <= 0 || inputLength <= 0 {
		return 0
	}
	return int(int64(inputLength) * int64(outputRate) / int64(inputRate))
}
