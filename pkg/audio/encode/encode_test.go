// ABOUTME: Tests for chunk payload encoders
// ABOUTME: Covers float PCM layout, Opus framing and the WAV header
package encode

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/mindscribe/mindscribe-go/pkg/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		codec   string
		want    string
		wantErr bool
	}{
		{"", CodecPCM, false},
		{"pcm", CodecPCM, false},
		{"OPUS", CodecOpus, false},
		{"flac", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.codec, func(t *testing.T) {
			enc, err := New(tt.codec, audio.TargetRate)
			if tt.wantErr {
				assert.ErrorContains(t, err, "unsupported codec")
				return
			}
			require.NoError(t, err)
			defer enc.Close()
			assert.Equal(t, tt.want, enc.Codec())
		})
	}
}

func TestPCMEncoder(t *testing.T) {
	samples := []float32{0, 0.5, -1, 0.123}

	data, err := NewPCM().Encode(samples)
	require.NoError(t, err)
	require.Len(t, data, 16)
	assert.Equal(t, math.Float32bits(0.5), binary.LittleEndian.Uint32(data[4:]))

	decoded, err := DecodePCM(data)
	require.NoError(t, err)
	assert.Equal(t, samples, decoded)

	_, err = DecodePCM([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestOpusFrameSize(t *testing.T) {
	enc, err := NewOpus(audio.TargetRate)
	require.NoError(t, err)
	assert.Equal(t, 320, enc.FrameSize())
	assert.Equal(t, CodecOpus, enc.Codec())
}

func TestOpusInvalidRate(t *testing.T) {
	_, err := NewOpus(44100)
	assert.ErrorContains(t, err, "failed to create opus encoder")
}

func TestOpusEncodePadsLastFrame(t *testing.T) {
	enc, err := NewOpus(audio.TargetRate)
	require.NoError(t, err)

	// 2.5 frames of a 440 Hz tone
	samples := make([]float32, 800)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/audio.TargetRate))
	}

	data, err := enc.Encode(samples)
	require.NoError(t, err)

	packets, err := SplitPackets(data)
	require.NoError(t, err)
	require.Len(t, packets, 3)
	for _, p := range packets {
		assert.NotEmpty(t, p)
		assert.LessOrEqual(t, len(p), maxOpusPacket)
	}

	decoded, err := DecodeOpus(data, audio.TargetRate)
	require.NoError(t, err)
	assert.Len(t, decoded, 3*320)
}

func TestOpusEncodeEmpty(t *testing.T) {
	enc, err := NewOpus(audio.TargetRate)
	require.NoError(t, err)

	data, err := enc.Encode(nil)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestSplitPacketsTruncated(t *testing.T) {
	_, err := SplitPackets([]byte{5})
	assert.ErrorContains(t, err, "truncated")

	_, err = SplitPackets([]byte{5, 0, 1, 2})
	assert.ErrorContains(t, err, "exceeds payload")

	packets, err := SplitPackets([]byte{1, 0, 9, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{9}, {}}, packets)
}

func TestWAV(t *testing.T) {
	buf := audio.Buffer{Samples: []float32{0, 0.5, -1, 2}, SampleRate: 16000}

	data, err := WAV(buf)
	require.NoError(t, err)
	require.Len(t, data, 44+8)

	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, uint32(36+8), binary.LittleEndian.Uint32(data[4:]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, "fmt ", string(data[12:16]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[20:]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[22:]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(data[24:]))
	assert.Equal(t, uint32(32000), binary.LittleEndian.Uint32(data[28:]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(data[34:]))
	assert.Equal(t, "data", string(data[36:40]))
	assert.Equal(t, uint32(8), binary.LittleEndian.Uint32(data[40:]))

	pcm := data[44:]
	assert.Equal(t, int16(0), int16(binary.LittleEndian.Uint16(pcm[0:])))
	assert.Equal(t, int16(16383), int16(binary.LittleEndian.Uint16(pcm[2:])))
	assert.Equal(t, int16(-32768), int16(binary.LittleEndian.Uint16(pcm[4:])))
	assert.Equal(t, int16(32767), int16(binary.LittleEndian.Uint16(pcm[6:])), "clipped")

	assert.True(t, bytes.HasPrefix(data, []byte("RIFF")))
}

func TestWAVInvalidRate(t *testing.T) {
	_, err := WAV(audio.Buffer{Samples: []float32{0}})
	assert.ErrorIs(t, err, audio.ErrInvalidAudioInput)
}
