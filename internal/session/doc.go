// ABOUTME: Pipeline session package
// ABOUTME: Owns the state shared by transcription, analysis and rendering
// Package session holds everything one run of the pipeline needs: the engine
// handle, the latest transcript, the current topic tree and the viewport of
// the diagram. Operations take the session explicitly instead of reaching
// for package-level state.
//
// Typical flow:
//
//	s, _ := session.New(session.Config{Loader: loader, Analyzer: client})
//	s.AddRenderer(hub)
//	s.LoadModel(ctx, "whisper-tiny.en", nil)
//	s.Transcribe(ctx, buf, nil, nil)
//	s.Analyze(ctx)
package session
