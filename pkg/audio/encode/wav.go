// ABOUTME: WAV file writer
// ABOUTME: Renders a mono buffer as a 16-bit PCM RIFF/WAVE file
package encode

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/mindscribe/mindscribe-go/pkg/audio"
)

// WAV renders buf as a mono 16-bit PCM WAV file
func WAV(buf audio.Buffer) ([]byte, error) {
	if buf.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", audio.ErrInvalidAudioInput, buf.SampleRate)
	}

	const (
		channels = 1
		bits     = 16
	)
	dataSize := len(buf.Samples) * channels * bits / 8

	var out bytes.Buffer
	out.Grow(44 + dataSize)

	out.WriteString("RIFF")
	write(&out, uint32(36+dataSize))
	out.WriteString("WAVE")

	out.WriteString("fmt ")
	write(&out, uint32(16))
	write(&out, uint16(1)) // PCM
	write(&out, uint16(channels))
	write(&out, uint32(buf.SampleRate))
	write(&out, uint32(buf.SampleRate*channels*bits/8))
	write(&out, uint16(channels*bits/8))
	write(&out, uint16(bits))

	out.WriteString("data")
	write(&out, uint32(dataSize))
	pcm := make([]byte, dataSize)
	for i, s := range buf.Samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(audio.FloatToInt16(s)))
	}
	out.Write(pcm)

	return out.Bytes(), nil
}

// bytes.Buffer writes never fail
func write(out *bytes.Buffer, v any) {
	_ = binary.Write(out, binary.LittleEndian, v)
}
