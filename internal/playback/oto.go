// ABOUTME: Oto-based audio output
// ABOUTME: Streams mono float samples as 16-bit PCM through a pipe-fed player
package playback

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ebitengine/oto/v3"
	"github.com/mindscribe/mindscribe-go/pkg/audio"
	"github.com/rs/zerolog"
)

// Output plays mono float32 samples
type Output interface {
	// Open prepares the device for sampleRate mono audio
	Open(sampleRate int) error

	// Write blocks until samples are queued for playback
	Write(samples []float32) error

	// Close releases the device
	Close() error
}

// Oto output implementation using the oto library. Oto allows one context
// per process, so reopening at a different rate keeps the first format.
type Oto struct {
	otoCtx     *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	sampleRate int
	volume     int
	logger     zerolog.Logger
}

// NewOto creates an Oto output at full volume
func NewOto(logger zerolog.Logger) *Oto {
	return &Oto{volume: 100, logger: logger}
}

// Open initializes the output device
func (o *Oto) Open(sampleRate int) error {
	if o.otoCtx != nil {
		if o.sampleRate != sampleRate {
			o.logger.Warn().
				Int("from", o.sampleRate).
				Int("to", sampleRate).
				Msg("oto cannot change sample rate, keeping existing context")
		}
		return o.startPlayer()
	}

	ctx, readyChan, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	o.otoCtx = ctx
	o.sampleRate = sampleRate
	o.logger.Info().Int("sample_rate", sampleRate).Msg("audio output initialized")
	return o.startPlayer()
}

func (o *Oto) startPlayer() error {
	if o.player != nil {
		return nil
	}
	if err := o.otoCtx.Resume(); err != nil {
		return fmt.Errorf("failed to resume oto context: %w", err)
	}

	o.pipeReader, o.pipeWriter = io.Pipe()
	o.player = o.otoCtx.NewPlayer(o.pipeReader)
	o.player.Play()
	return nil
}

// Write outputs samples (blocks until written)
func (o *Oto) Write(samples []float32) error {
	if o.player == nil {
		return fmt.Errorf("output not initialized")
	}
	if _, err := o.pipeWriter.Write(PCM16(samples, o.volume)); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}
	return nil
}

// Close releases output resources
func (o *Oto) Close() error {
	if o.pipeWriter != nil {
		o.pipeWriter.Close()
		o.pipeWriter = nil
	}
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	if o.pipeReader != nil {
		o.pipeReader.Close()
		o.pipeReader = nil
	}
	if o.otoCtx != nil {
		return o.otoCtx.Suspend()
	}
	return nil
}

// SetVolume sets the volume (0-100)
func (o *Oto) SetVolume(volume int) {
	o.volume = min(max(volume, 0), 100)
}

// Volume returns current volume
func (o *Oto) Volume() int {
	return o.volume
}

// PCM16 scales samples by volume percent and encodes them as little-endian
// signed 16-bit PCM
func PCM16(samples []float32, volume int) []byte {
	gain := float32(min(max(volume, 0), 100)) / 100
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(audio.FloatToInt16(s*gain)))
	}
	return out
}
