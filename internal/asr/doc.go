// ABOUTME: Speech recognition engine adapters
// ABOUTME: WebSocket worker client and server plus an OpenAI-compatible HTTP engine
// Package asr connects the transcription orchestrator to real recognizers.
//
// WSLoader talks to a mindscribe ASR worker: it dials the worker, asks it to
// load a model (relaying fractional progress), and returns an engine that
// sends each chunk as one binary frame. Server is the other end of that
// protocol and can expose any transcribe.Loader, including HTTPLoader, to
// the local network.
//
// HTTPLoader targets any endpoint implementing the OpenAI audio
// transcription API and uploads each chunk as a mono 16 kHz WAV file.
//
// Example:
//
//	loader := &asr.WSLoader{Addr: "studio.local:8931", Codec: "opus", Logger: log}
//	err := handle.Load(ctx, "whisper-tiny.en", loader, onProgress)
package asr
