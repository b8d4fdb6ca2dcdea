// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for chunk payload encoders
package encode

import (
	"fmt"
	"strings"
)

// Codec names accepted by New
const (
	CodecPCM  = "pcm"
	CodecOpus = "opus"
)

// Encoder encodes one chunk of mono float32 samples for transport
type Encoder interface {
	// Encode converts samples to a payload
	Encode(samples []float32) ([]byte, error)

	// Codec returns the codec name sent alongside the payload
	Codec() string

	// Close releases encoder resources
	Close() error
}

// New returns the encoder for a codec name at the given sample rate
func New(codec string, sampleRate int) (Encoder, error) {
	switch strings.ToLower(codec) {
	case "", CodecPCM:
		return NewPCM(), nil
	case CodecOpus:
		return NewOpus(sampleRate)
	default:
		return nil, fmt.Errorf("unsupported codec: %s (supported: pcm, opus)", codec)
	}
}
