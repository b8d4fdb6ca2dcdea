// ABOUTME: Audio type definitions
// ABOUTME: Defines the mono float32 buffer and the fixed transcription rate
package audio

import (
	"errors"
	"fmt"
	"time"
)

const (
	// TargetRate is the sample rate every transcription buffer is converted to
	TargetRate = 16000

	// ChunkSeconds is the duration of one recognition chunk
	ChunkSeconds = 30

	// ChunkSamples is the maximum number of samples in one chunk
	ChunkSamples = ChunkSeconds * TargetRate

	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// ErrInvalidAudioInput reports an empty buffer or a non-positive sample rate
var ErrInvalidAudioInput = errors.New("invalid audio input")

// Buffer is a single channel of float32 samples tagged with its sample rate.
// Buffers are treated as immutable once produced.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// Validate checks that the buffer can be resampled or transcribed
func (b Buffer) Validate() error {
	if b.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidAudioInput, b.SampleRate)
	}
	if len(b.Samples) == 0 {
		return fmt.Errorf("%w: empty buffer", ErrInvalidAudioInput)
	}
	return nil
}

// Duration returns the playback length of the buffer
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// Slice returns samples [start, end) as a buffer at the same rate
func (b Buffer) Slice(start, end int) Buffer {
	return Buffer{Samples: b.Samples[start:end], SampleRate: b.SampleRate}
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	return int32(sample) << 8
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

// Int16ToFloat scales a 16-bit sample into [-1, 1)
func Int16ToFloat(sample int16) float32 {
	return float32(sample) / 32768.0
}

// Int24ToFloat scales a sample in 24-bit range into [-1, 1)
func Int24ToFloat(sample int32) float32 {
	return float32(sample) / 8388608.0
}

// FloatToInt16 converts a float sample to 16-bit, clipping out-of-range values
func FloatToInt16(sample float32) int16 {
	if sample >= 1 {
		return 32767
	}
	if sample <= -1 {
		return -32768
	}
	return int16(sample * 32767)
}
