// ABOUTME: Chunked transcription package
// ABOUTME: Partitions 16 kHz audio and drives a speech engine one chunk at a time
// Package transcribe turns a 16 kHz mono buffer into a timestamped transcript.
//
// The buffer is split into 30 second chunks which are sent to an Engine
// strictly in order. Each result becomes one "[HH:MM:SS] text" line stamped
// with the chunk's start offset. The first failing chunk aborts the run.
//
// Engines are held by a Handle, which gates every run on a loaded model and
// hands the engine to one caller at a time:
//
//	h := transcribe.NewHandle()
//	if err := h.Load(ctx, "whisper-small", loader, nil); err != nil {
//	    return err
//	}
//	text, err := transcribe.NewOrchestrator(logger).Transcribe(ctx, buf, h, nil, nil)
package transcribe
