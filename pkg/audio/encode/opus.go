// ABOUTME: Opus payload encoder
// ABOUTME: Encodes mono float32 chunks to length-prefixed 20ms Opus packets
package encode

import (
	"encoding/binary"
	"fmt"

	"gopkg.in/hraban/opus.v2"
)

// maxOpusPacket is the largest packet libopus will produce
const maxOpusPacket = 4000

// OpusEncoder encodes mono speech with Opus
type OpusEncoder struct {
	encoder    *opus.Encoder
	sampleRate int
	frameSize  int
}

// NewOpus creates a mono VoIP Opus encoder. Opus accepts 8, 12, 16, 24 and
// 48 kHz input.
func NewOpus(sampleRate int) (*OpusEncoder, error) {
	encoder, err := opus.NewEncoder(sampleRate, 1, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	return &OpusEncoder{
		encoder:    encoder,
		sampleRate: sampleRate,
		frameSize:  sampleRate / 50, // 20ms frame
	}, nil
}

// FrameSize returns the samples per Opus frame
func (e *OpusEncoder) FrameSize() int { return e.frameSize }

// Encode splits samples into 20ms frames, zero-padding the last one, and
// writes each packet as a 2-byte little-endian length followed by the packet.
func (e *OpusEncoder) Encode(samples []float32) ([]byte, error) {
	out := make([]byte, 0, len(samples)/4)
	frame := make([]float32, e.frameSize)
	packet := make([]byte, maxOpusPacket)

	for start := 0; start < len(samples); start += e.frameSize {
		end := start + e.frameSize
		if end > len(samples) {
			end = len(samples)
		}
		n := copy(frame, samples[start:end])
		clear(frame[n:])

		size, err := e.encoder.EncodeFloat32(frame, packet)
		if err != nil {
			return nil, fmt.Errorf("opus encode error: %w", err)
		}
		out = binary.LittleEndian.AppendUint16(out, uint16(size))
		out = append(out, packet[:size]...)
	}

	return out, nil
}

// Codec returns "opus"
func (e *OpusEncoder) Codec() string { return CodecOpus }

// Close releases resources
func (e *OpusEncoder) Close() error {
	return nil
}

// SplitPackets reverses the length-prefixed framing written by Encode
func SplitPackets(data []byte) ([][]byte, error) {
	var packets [][]byte
	for len(data) > 0 {
		if len(data) < 2 {
			return nil, fmt.Errorf("truncated opus packet header")
		}
		size := int(binary.LittleEndian.Uint16(data))
		data = data[2:]
		if size > len(data) {
			return nil, fmt.Errorf("opus packet of %d bytes exceeds payload", size)
		}
		packets = append(packets, data[:size])
		data = data[size:]
	}
	return packets, nil
}

// DecodeOpus decodes a payload produced by Encode back to float32 samples
func DecodeOpus(data []byte, sampleRate int) ([]float32, error) {
	packets, err := SplitPackets(data)
	if err != nil {
		return nil, err
	}

	decoder, err := opus.NewDecoder(sampleRate, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	frame := make([]float32, sampleRate/50)
	var out []float32
	for _, p := range packets {
		n, err := decoder.DecodeFloat32(p, frame)
		if err != nil {
			return nil, fmt.Errorf("opus decode error: %w", err)
		}
		out = append(out, frame[:n]...)
	}
	return out, nil
}
