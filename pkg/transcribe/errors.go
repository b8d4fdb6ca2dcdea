// ABOUTME: Error kinds surfaced by the transcription pipeline
// ABOUTME: Sentinels for errors.Is plus the per-chunk failure type
package transcribe

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineNotReady is returned when no model is loaded
	ErrEngineNotReady = errors.New("speech engine not ready")

	// ErrTranscriptionFailed is matched by every chunk failure
	ErrTranscriptionFailed = errors.New("transcription failed")

	// ErrLoadSuperseded is returned by a model load replaced by a newer one
	ErrLoadSuperseded = errors.New("model load superseded")

	// ErrNoEngine is returned by Load when a loader succeeds without an engine
	ErrNoEngine = errors.New("loader returned no engine")
)

// TranscriptionError records which chunk aborted a run
type TranscriptionError struct {
	Chunk int
	Total int
	Cause error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed at chunk %d/%d: %v", e.Chunk+1, e.Total, e.Cause)
}

// Unwrap exposes both the sentinel and the engine cause
func (e *TranscriptionError) Unwrap() []error {
	return []error{ErrTranscriptionFailed, e.Cause}
}
