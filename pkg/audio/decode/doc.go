// ABOUTME: Media decoding package
// ABOUTME: Turns WAV, MP3, FLAC and ffmpeg-readable video into mono float buffers
// Package decode reads media files into a single-channel audio.Buffer at the
// media's native sample rate.
//
// Supports: WAV (16-bit and 24-bit PCM), MP3, FLAC, and anything ffmpeg can
// read (mp4, mkv, webm, mov, ...). Multi-channel input keeps only the first
// channel.
//
// Undecodable or empty media returns an error wrapping
// audio.ErrInvalidAudioInput.
//
// Example:
//
//	buf, err := decode.File(ctx, "talk.mp4")
//	buf16k, err := resample.Resample(buf)
package decode
