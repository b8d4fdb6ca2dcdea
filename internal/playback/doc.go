// ABOUTME: Audio playback package
// ABOUTME: Lets users hear the 16 kHz audio the engine receives
// Package playback plays back the resampled buffer handed to the speech
// engine. Nearest-neighbor conversion can alias audibly, and listening to
// the first few seconds is the quickest way to check it.
package playback
