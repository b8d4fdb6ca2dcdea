// ABOUTME: Chunk partitioning and transcript timestamp formatting
// ABOUTME: Splits a 16 kHz buffer into gap-free 30 second windows
package transcribe

import (
	"fmt"

	"github.com/mindscribe/mindscribe-go/pkg/audio"
)

// Chunk is the half-open sample range [Start, End) of a resampled buffer
type Chunk struct {
	Index int
	Start int
	End   int
}

// Len returns the number of samples in the chunk
func (c Chunk) Len() int {
	return c.End - c.Start
}

// StartSeconds returns the chunk offset truncated to whole seconds
func (c Chunk) StartSeconds() int {
	return c.Start / audio.TargetRate
}

// TotalChunks returns ceil(length / audio.ChunkSamples)
func TotalChunks(length int) int {
	if length <= 0 {
		return 0
	}
	return (length + audio.ChunkSamples - 1) / audio.ChunkSamples
}

// Partition splits length samples into consecutive chunks of at most
// audio.ChunkSamples. Only the final chunk may be shorter.
func Partition(length int) []Chunk {
	chunks := make([]Chunk, 0, TotalChunks(length))
	for start := 0; start < length; start += audio.ChunkSamples {
		end := start + audio.ChunkSamples
		if end > length {
			end = length
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Start: start, End: end})
	}
	return chunks
}

// FormatTimestamp renders whole seconds as [HH:MM:SS]. Hours do not roll over.
func FormatTimestamp(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("[%02d:%02d:%02d]", seconds/3600, seconds%3600/60, seconds%60)
}
