// ABOUTME: Sequential chunked transcription over an exclusive engine lease
// ABOUTME: Stitches timestamped lines and reports progress per chunk
package transcribe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mindscribe/mindscribe-go/pkg/audio"
)

// ProgressFunc receives the number of finished chunks and the total
type ProgressFunc func(done, total int)

// PartialFunc receives the full transcript after each finished chunk
type PartialFunc func(transcript string)

// Observer is notified after every engine invocation
type Observer interface {
	ChunkCompleted(index int, elapsed time.Duration, err error)
}

// Orchestrator runs the chunk loop
type Orchestrator struct {
	// Options are sent with every chunk. Zero value means DefaultOptions().
	Options Options

	// ChunkTimeout bounds a single engine invocation when positive.
	// Disabled by default: a hung engine blocks the whole run.
	ChunkTimeout time.Duration

	Logger   zerolog.Logger
	Observer Observer
}

// NewOrchestrator creates an orchestrator with default options
func NewOrchestrator(logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		Options: DefaultOptions(),
		Logger:  logger,
	}
}

// Transcribe checks the engine out of handle and feeds it buf chunk by chunk.
// Chunk i+1 is never dispatched before chunk i has returned. The first failing
// chunk aborts the run with a *TranscriptionError; the transcript produced so
// far is returned alongside the error.
func (o *Orchestrator) Transcribe(ctx context.Context, buf audio.Buffer, handle *Handle, onProgress ProgressFunc, onPartial PartialFunc) (string, error) {
	lease, err := handle.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer lease.Release()

	if buf.SampleRate != audio.TargetRate {
		return "", fmt.Errorf("%w: expected %d Hz buffer, got %d Hz", audio.ErrInvalidAudioInput, audio.TargetRate, buf.SampleRate)
	}

	opts := o.Options
	if opts == (Options{}) {
		opts = DefaultOptions()
	}

	chunks := Partition(len(buf.Samples))
	total := len(chunks)
	engine := lease.Engine()

	o.Logger.Info().
		Int("chunks", total).
		Dur("duration", buf.Duration()).
		Msg("Starting transcription")

	var transcript strings.Builder
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return transcript.String(), &TranscriptionError{Chunk: chunk.Index, Total: total, Cause: err}
		}

		text, err := o.invoke(ctx, engine, chunk.Index, buf.Samples[chunk.Start:chunk.End], opts)
		if err != nil {
			o.Logger.Error().Err(err).Int("chunk", chunk.Index).Msg("Chunk failed, aborting transcription")
			return transcript.String(), &TranscriptionError{Chunk: chunk.Index, Total: total, Cause: err}
		}

		transcript.WriteString(FormatTimestamp(chunk.StartSeconds()))
		transcript.WriteString(" ")
		transcript.WriteString(strings.TrimSpace(text))
		transcript.WriteString("\n")

		o.Logger.Debug().Int("chunk", chunk.Index+1).Int("total", total).Msg("Chunk transcribed")

		if onPartial != nil {
			onPartial(transcript.String())
		}
		if onProgress != nil {
			onProgress(chunk.Index+1, total)
		}
	}

	return transcript.String(), nil
}

func (o *Orchestrator) invoke(ctx context.Context, engine Engine, index int, samples []float32, opts Options) (string, error) {
	if o.ChunkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.ChunkTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := engine.Invoke(ctx, samples, opts)
	if o.Observer != nil {
		o.Observer.ChunkCompleted(index, time.Since(start), err)
	}
	return res.Text, err
}
