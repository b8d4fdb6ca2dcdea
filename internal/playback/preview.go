// ABOUTME: Audio preview of the resampled transcription input
// ABOUTME: Plays the first seconds of a buffer in short blocks so it can be cancelled
package playback

import (
	"context"
	"fmt"
	"time"

	"github.com/mindscribe/mindscribe-go/pkg/audio"
)

// BlockDuration is the audio written per Output.Write call
const BlockDuration = 100 * time.Millisecond

// Preview plays up to seconds of buf through out, then closes it. A
// non-positive seconds plays the whole buffer. Cancelling ctx stops playback
// at the next block boundary.
func Preview(ctx context.Context, out Output, buf audio.Buffer, seconds float64) error {
	if err := buf.Validate(); err != nil {
		return err
	}

	n := len(buf.Samples)
	if seconds > 0 {
		n = min(n, int(seconds*float64(buf.SampleRate)))
	}

	if err := out.Open(buf.SampleRate); err != nil {
		return fmt.Errorf("open audio output: %w", err)
	}
	defer out.Close()

	block := max(int(BlockDuration.Seconds()*float64(buf.SampleRate)), 1)
	for start := 0; start < n; start += block {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+block, n)
		if err := out.Write(buf.Samples[start:end]); err != nil {
			return err
		}
	}
	return nil
}
