// ABOUTME: WAV container decoder
// ABOUTME: Walks RIFF chunks and hands the data chunk to the PCM decoder
package decode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mindscribe/mindscribe-go/pkg/audio"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

type wavFormat struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// WAV decodes a RIFF/WAVE stream holding 16-bit or 24-bit integer PCM
func WAV(r io.Reader) (audio.Buffer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("failed to read wav: %w", err)
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return audio.Buffer{}, invalid("not a RIFF/WAVE stream")
	}

	var format *wavFormat
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := data[pos+8:]
		if size > len(body) {
			size = len(body)
		}
		body = body[:size]

		switch id {
		case "fmt ":
			if size < 16 {
				return audio.Buffer{}, invalid("fmt chunk too short")
			}
			format = &wavFormat{}
			if err := binary.Read(bytes.NewReader(body[:16]), binary.LittleEndian, format); err != nil {
				return audio.Buffer{}, invalid("fmt chunk: %v", err)
			}
		case "data":
			if format == nil {
				return audio.Buffer{}, invalid("data chunk before fmt chunk")
			}
			if format.AudioFormat != wavFormatPCM && format.AudioFormat != wavFormatExtensible {
				return audio.Buffer{}, invalid("unsupported wav format tag %d", format.AudioFormat)
			}
			return PCM(body, int(format.BitsPerSample), int(format.Channels), int(format.SampleRate))
		}

		// Chunks are word aligned
		pos += 8 + size + size%2
	}

	return audio.Buffer{}, invalid("wav has no data chunk")
}
