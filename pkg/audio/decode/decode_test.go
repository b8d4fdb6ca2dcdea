// ABOUTME: Tests for media decoders
// ABOUTME: Covers PCM channel selection, WAV parsing and ffmpeg-generated fixtures
package decode

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/mindscribe/mindscribe-go/pkg/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wavBytes(t *testing.T, rate, channels, bits int, pcm []byte, extra ...[]byte) []byte {
	t.Helper()

	var body bytes.Buffer
	body.WriteString("WAVE")
	for _, chunk := range extra {
		body.Write(chunk)
	}

	blockAlign := channels * bits / 8
	body.WriteString("fmt ")
	require.NoError(t, binary.Write(&body, binary.LittleEndian, uint32(16)))
	require.NoError(t, binary.Write(&body, binary.LittleEndian, wavFormat{
		AudioFormat:   wavFormatPCM,
		Channels:      uint16(channels),
		SampleRate:    uint32(rate),
		ByteRate:      uint32(rate * blockAlign),
		BlockAlign:    uint16(blockAlign),
		BitsPerSample: uint16(bits),
	}))

	body.WriteString("data")
	require.NoError(t, binary.Write(&body, binary.LittleEndian, uint32(len(pcm))))
	body.Write(pcm)

	var out bytes.Buffer
	out.WriteString("RIFF")
	require.NoError(t, binary.Write(&out, binary.LittleEndian, uint32(body.Len())))
	out.Write(body.Bytes())
	return out.Bytes()
}

func int16Bytes(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestPCM16KeepsFirstChannel(t *testing.T) {
	// Interleaved L/R frames
	data := int16Bytes(16384, -1, -16384, -1, 0, -1)

	buf, err := PCM(data, 16, 2, 44100)
	require.NoError(t, err)

	assert.Equal(t, 44100, buf.SampleRate)
	assert.Equal(t, []float32{0.5, -0.5, 0}, buf.Samples)
}

func TestPCM24(t *testing.T) {
	data := []byte{
		0x00, 0x00, 0x40, // 0x400000 = 0.5
		0x00, 0x00, 0x80, // -0x800000 = -1
	}

	buf, err := PCM(data, 24, 1, 48000)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -1}, buf.Samples)
}

func TestPCMDropsPartialFrame(t *testing.T) {
	buf, err := PCM([]byte{0x00, 0x40, 0x00, 0x40, 0xFF}, 16, 2, 8000)
	require.NoError(t, err)
	assert.Len(t, buf.Samples, 1)
}

func TestPCMInvalid(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		bits     int
		channels int
		rate     int
	}{
		{"bit depth", []byte{0, 0, 0, 0}, 32, 1, 16000},
		{"channels", []byte{0, 0}, 16, 0, 16000},
		{"rate", []byte{0, 0}, 16, 1, 0},
		{"empty", nil, 16, 1, 16000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PCM(tt.data, tt.bits, tt.channels, tt.rate)
			assert.ErrorIs(t, err, audio.ErrInvalidAudioInput)
		})
	}
}

func TestWAV(t *testing.T) {
	pcm := int16Bytes(8192, 0, -8192, 0)
	data := wavBytes(t, 22050, 2, 16, pcm)

	buf, err := WAV(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 22050, buf.SampleRate)
	assert.Equal(t, []float32{0.25, -0.25}, buf.Samples)
}

func TestWAVSkipsUnknownChunks(t *testing.T) {
	// Odd-sized LIST chunk exercises word alignment padding
	list := append([]byte("LIST"), 3, 0, 0, 0, 'a', 'b', 'c', 0)
	data := wavBytes(t, 16000, 1, 16, int16Bytes(16384), list)

	buf, err := WAV(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5}, buf.Samples)
}

func TestWAVInvalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not riff", []byte("RIFX\x00\x00\x00\x00WAVE")},
		{"no data chunk", []byte("RIFF\x04\x00\x00\x00WAVE")},
		{"data before fmt", append([]byte("RIFF\x0e\x00\x00\x00WAVEdata\x02\x00\x00\x00"), 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := WAV(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, audio.ErrInvalidAudioInput)
		})
	}
}

func TestForExtension(t *testing.T) {
	for _, ext := range []string{".wav", ".WAV", ".mp3", ".flac"} {
		_, ok := ForExtension(ext)
		assert.True(t, ok, ext)
	}
	for _, ext := range []string{".mp4", ".mkv", ".webm", ""} {
		_, ok := ForExtension(ext)
		assert.False(t, ok, ext)
	}
}

func TestFileWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	require.NoError(t, os.WriteFile(path, wavBytes(t, 8000, 1, 16, int16Bytes(0, 16384)), 0o644))

	buf, err := File(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 8000, buf.SampleRate)
	assert.Equal(t, []float32{0, 0.5}, buf.Samples)
}

func TestFileMissing(t *testing.T) {
	_, err := File(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMP3Invalid(t *testing.T) {
	_, err := MP3(strings.NewReader("definitely not an mp3"))
	assert.ErrorIs(t, err, audio.ErrInvalidAudioInput)
}

func TestFLACInvalid(t *testing.T) {
	_, err := FLAC(strings.NewReader("fLaX"))
	assert.ErrorIs(t, err, audio.ErrInvalidAudioInput)
}

func TestFFmpegArgs(t *testing.T) {
	ff := &FFmpeg{Path: "ffmpeg", SampleRate: 22050}
	args := ff.Args("in.mp4")

	assert.Equal(t, []string{
		"-loglevel", "error", "-nostdin",
		"-i", "in.mp4", "-vn",
		"-f", "s16le", "-ac", "1", "-ar", "22050", "-",
	}, args)
}

func TestFFmpegMissingBinary(t *testing.T) {
	ff := &FFmpeg{Path: "definitely-not-ffmpeg-binary", SampleRate: 16000}
	assert.False(t, ff.Available())

	_, err := ff.DecodeFile(context.Background(), "in.mp4")
	assert.Error(t, err)
}

// generate writes a one-second 440 Hz tone using ffmpeg
func generate(t *testing.T, name string, rate int) string {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}

	path := filepath.Join(t.TempDir(), name)
	cmd := exec.Command("ffmpeg", "-loglevel", "error", "-y",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=1:sample_rate="+strconv.Itoa(rate),
		path)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("ffmpeg cannot encode %s: %v: %s", name, err, out)
	}
	return path
}

func TestFileFixtures(t *testing.T) {
	tests := []struct {
		name string
		rate int
	}{
		{"tone.mp3", 44100},
		{"tone.flac", 48000},
		{"tone.wav", 22050},
		{"tone.mka", 32000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := generate(t, tt.name, tt.rate)

			buf, err := File(context.Background(), path)
			require.NoError(t, err)
			require.NoError(t, buf.Validate())

			// ffmpeg-decoded containers come back at the requested rate
			if filepath.Ext(tt.name) == ".mka" {
				assert.Equal(t, DefaultFFmpegRate, buf.SampleRate)
			} else {
				assert.Equal(t, tt.rate, buf.SampleRate)
			}

			seconds := float64(len(buf.Samples)) / float64(buf.SampleRate)
			assert.InDelta(t, 1.0, seconds, 0.1)
		})
	}
}
