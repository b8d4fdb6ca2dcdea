// ABOUTME: Speech recognition engine capability definitions
// ABOUTME: Engine, Loader and the fixed per-chunk recognition options
package transcribe

import (
	"context"

	"github.com/mindscribe/mindscribe-go/pkg/audio"
)

// Options are passed unchanged to the engine with every chunk
type Options struct {
	ChunkLengthSeconds  int    `json:"chunk_length_s"`
	StrideLengthSeconds int    `json:"stride_length_s"`
	Language            string `json:"language"`
	Task                string `json:"task"`
	ReturnTimestamps    bool   `json:"return_timestamps"`
}

// DefaultOptions returns the options used for every chunk: 30s windows with
// a 5s stride hint, English transcription, no word timestamps.
func DefaultOptions() Options {
	return Options{
		ChunkLengthSeconds:  audio.ChunkSeconds,
		StrideLengthSeconds: 5,
		Language:            "english",
		Task:                "transcribe",
		ReturnTimestamps:    false,
	}
}

// Result is the engine output for one chunk
type Result struct {
	Text string `json:"text"`
}

// Engine recognizes speech in one chunk of 16 kHz mono samples.
// Implementations may hold exclusive state and are never called concurrently.
type Engine interface {
	Invoke(ctx context.Context, samples []float32, opts Options) (Result, error)
}

// Loader acquires an engine for a model, reporting fractional progress in [0, 1]
type Loader interface {
	Load(ctx context.Context, modelID string, onProgress func(float64)) (Engine, error)
}

// LoaderFunc adapts a function to the Loader interface
type LoaderFunc func(ctx context.Context, modelID string, onProgress func(float64)) (Engine, error)

// Load calls f
func (f LoaderFunc) Load(ctx context.Context, modelID string, onProgress func(float64)) (Engine, error) {
	return f(ctx, modelID, onProgress)
}

// EngineFunc adapts a function to the Engine interface
type EngineFunc func(ctx context.Context, samples []float32, opts Options) (Result, error)

// Invoke calls f
func (f EngineFunc) Invoke(ctx context.Context, samples []float32, opts Options) (Result, error) {
	return f(ctx, samples, opts)
}
