// ABOUTME: Chunk payload encoding package
// ABOUTME: Provides Encoder interface and implementations for PCM, Opus and WAV
// Package encode turns recognition chunks into bytes for remote ASR
// engines.
//
// Supports: raw float32 PCM, Opus (20ms VoIP frames with a 2-byte length
// prefix per packet), and mono 16-bit WAV files for HTTP upload.
//
// Example:
//
//	encoder, err := encode.New("opus", audio.TargetRate)
//	payload, err := encoder.Encode(chunk)
package encode
