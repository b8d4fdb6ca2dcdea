// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines the mono Buffer type, transcription constants and sample conversions
// Package audio provides the fundamental audio types shared by the
// transcription pipeline.
//
// This package defines:
//   - Buffer: one channel of float32 samples tagged with a sample rate
//   - TargetRate, ChunkSeconds, ChunkSamples: the fixed recognition format
//   - ErrInvalidAudioInput: returned for empty buffers or bad sample rates
//
// It also provides sample conversions used by the decoders:
//   - 16-bit and 24-bit integer samples to float32
//   - float32 back to 16-bit for playback and WAV output
//
// Example:
//
//	buf := audio.Buffer{Samples: samples, SampleRate: 44100}
//	if err := buf.Validate(); err != nil {
//	    return err
//	}
package audio
