// ABOUTME: Audio resampling package using nearest-neighbor selection
// ABOUTME: Converts mono buffers to the 16 kHz transcription rate
// Package resample provides audio sample rate conversion.
//
// Uses nearest-neighbor decimation/interpolation without an anti-aliasing
// filter. The output length is floor(n * outputRate / inputRate).
//
// Example:
//
//	out, err := resample.Resample(audio.Buffer{Samples: s, SampleRate: 44100})
//	// out.SampleRate == audio.TargetRate
package resample
