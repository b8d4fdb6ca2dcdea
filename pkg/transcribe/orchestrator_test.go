// ABOUTME: Tests for the chunked transcription loop
// ABOUTME: Uses a recording fake engine to verify ordering, progress and abort
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindscribe/mindscribe-go/pkg/audio"
)

// fakeEngine records every invocation and answers with "chunk N"
type fakeEngine struct {
	mu       sync.Mutex
	calls    []int // sample count per call
	opts     []Options
	failAt   int // 1-based call number that fails, 0 = never
	inFlight int32
	overlap  bool
	delay    time.Duration
}

func (f *fakeEngine) Invoke(ctx context.Context, samples []float32, opts Options) (Result, error) {
	if atomic.AddInt32(&f.inFlight, 1) > 1 {
		f.overlap = true
	}
	defer atomic.AddInt32(&f.inFlight, -1)

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, len(samples))
	f.opts = append(f.opts, opts)
	n := len(f.calls)
	if f.failAt == n {
		return Result{}, errors.New("engine exploded")
	}
	return Result{Text: fmt.Sprintf("  chunk %d \n", n)}, nil
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func readyHandle(t *testing.T, e Engine) *Handle {
	t.Helper()
	h := NewHandle()
	loader := LoaderFunc(func(ctx context.Context, modelID string, onProgress func(float64)) (Engine, error) {
		return e, nil
	})
	require.NoError(t, h.Load(context.Background(), "test-model", loader, nil))
	return h
}

func silence(seconds int) audio.Buffer {
	return audio.Buffer{Samples: make([]float32, seconds*audio.TargetRate), SampleRate: audio.TargetRate}
}

func TestTranscribeOrderedLines(t *testing.T) {
	engine := &fakeEngine{}
	h := readyHandle(t, engine)
	o := NewOrchestrator(zerolog.Nop())

	var progress [][2]int
	var partials []string

	text, err := o.Transcribe(context.Background(), silence(95), h,
		func(done, total int) { progress = append(progress, [2]int{done, total}) },
		func(s string) { partials = append(partials, s) },
	)
	require.NoError(t, err)

	expected := "[00:00:00] chunk 1\n" +
		"[00:00:30] chunk 2\n" +
		"[00:01:00] chunk 3\n" +
		"[00:01:30] chunk 4\n"
	assert.Equal(t, expected, text)

	assert.Equal(t, [][2]int{{1, 4}, {2, 4}, {3, 4}, {4, 4}}, progress)
	require.Len(t, partials, 4)
	assert.Equal(t, "[00:00:00] chunk 1\n", partials[0])
	assert.Equal(t, text, partials[3])

	assert.Equal(t, []int{audio.ChunkSamples, audio.ChunkSamples, audio.ChunkSamples, 5 * audio.TargetRate}, engine.calls)
	for _, opts := range engine.opts {
		assert.Equal(t, DefaultOptions(), opts)
	}
}

func TestTranscribeDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 30, opts.ChunkLengthSeconds)
	assert.Equal(t, 5, opts.StrideLengthSeconds)
	assert.Equal(t, "english", opts.Language)
	assert.Equal(t, "transcribe", opts.Task)
	assert.False(t, opts.ReturnTimestamps)
}

func TestTranscribeAbortsOnChunkFailure(t *testing.T) {
	engine := &fakeEngine{failAt: 2}
	h := readyHandle(t, engine)
	o := NewOrchestrator(zerolog.Nop())

	var progress []int
	text, err := o.Transcribe(context.Background(), silence(5*audio.ChunkSeconds), h,
		func(done, total int) { progress = append(progress, done) }, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTranscriptionFailed)

	var terr *TranscriptionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 1, terr.Chunk)
	assert.Equal(t, 5, terr.Total)
	assert.EqualError(t, terr.Cause, "engine exploded")

	// Chunks 3-5 are never dispatched
	assert.Equal(t, 2, engine.callCount())
	assert.Equal(t, []int{1}, progress)
	assert.Equal(t, "[00:00:00] chunk 1\n", text)

	// The lease is returned even on failure
	lease, err := h.Acquire(context.Background())
	require.NoError(t, err)
	lease.Release()
}

func TestTranscribeEngineNotReady(t *testing.T) {
	o := NewOrchestrator(zerolog.Nop())

	_, err := o.Transcribe(context.Background(), silence(1), NewHandle(), nil, nil)
	assert.ErrorIs(t, err, ErrEngineNotReady)
}

func TestTranscribeRejectsWrongRate(t *testing.T) {
	engine := &fakeEngine{}
	h := readyHandle(t, engine)
	o := NewOrchestrator(zerolog.Nop())

	_, err := o.Transcribe(context.Background(), audio.Buffer{Samples: make([]float32, 100), SampleRate: 44100}, h, nil, nil)
	assert.ErrorIs(t, err, audio.ErrInvalidAudioInput)
	assert.Zero(t, engine.callCount())
}

func TestTranscribeEmptyBuffer(t *testing.T) {
	engine := &fakeEngine{}
	h := readyHandle(t, engine)
	o := NewOrchestrator(zerolog.Nop())

	text, err := o.Transcribe(context.Background(), audio.Buffer{SampleRate: audio.TargetRate}, h, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Zero(t, engine.callCount())
}

func TestTranscribeNeverOverlapsChunks(t *testing.T) {
	engine := &fakeEngine{delay: 2 * time.Millisecond}
	h := readyHandle(t, engine)
	o := NewOrchestrator(zerolog.Nop())

	// Two concurrent runs share the handle; the lease serialises them
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Transcribe(context.Background(), silence(3*audio.ChunkSeconds), h, nil, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, engine.overlap, "engine was invoked concurrently")
	assert.Equal(t, 6, engine.callCount())
}

func TestTranscribeChunkTimeout(t *testing.T) {
	blocking := EngineFunc(func(ctx context.Context, samples []float32, opts Options) (Result, error) {
		<-ctx.Done()
		return Result{}, ctx.Err()
	})
	h := readyHandle(t, blocking)
	o := NewOrchestrator(zerolog.Nop())
	o.ChunkTimeout = 10 * time.Millisecond

	_, err := o.Transcribe(context.Background(), silence(1), h, nil, nil)
	assert.ErrorIs(t, err, ErrTranscriptionFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type recordingObserver struct {
	indexes []int
	errs    int
}

func (r *recordingObserver) ChunkCompleted(index int, elapsed time.Duration, err error) {
	r.indexes = append(r.indexes, index)
	if err != nil {
		r.errs++
	}
}

func TestTranscribeNotifiesObserver(t *testing.T) {
	engine := &fakeEngine{failAt: 3}
	h := readyHandle(t, engine)
	obs := &recordingObserver{}
	o := NewOrchestrator(zerolog.Nop())
	o.Observer = obs

	_, err := o.Transcribe(context.Background(), silence(4*audio.ChunkSeconds), h, nil, nil)
	require.Error(t, err)
	assert.Equal(t, []int{0, 1, 2}, obs.indexes)
	assert.Equal(t, 1, obs.errs)
}
