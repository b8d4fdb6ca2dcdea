// ABOUTME: PCM payload encoder
// ABOUTME: Encodes float32 samples as little-endian IEEE 754 bytes
package encode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// PCMEncoder writes raw float32 samples
type PCMEncoder struct{}

// NewPCM creates a float32 PCM encoder
func NewPCM() *PCMEncoder {
	return &PCMEncoder{}
}

// Encode converts samples to 4 bytes each, little-endian
func (e *PCMEncoder) Encode(samples []float32) ([]byte, error) {
	output := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(output[i*4:], math.Float32bits(s))
	}
	return output, nil
}

// Codec returns "pcm"
func (e *PCMEncoder) Codec() string { return CodecPCM }

// Close releases resources
func (e *PCMEncoder) Close() error {
	return nil
}

// DecodePCM is the inverse of PCMEncoder.Encode
func DecodePCM(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("pcm payload length %d is not a multiple of 4", len(data))
	}
	samples := make([]float32, len(data)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return samples, nil
}
