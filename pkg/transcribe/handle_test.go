// ABOUTME: Tests for the exclusive engine handle
// ABOUTME: Covers load gating, replacement of in-flight loads and lease exclusivity
package transcribe

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mindscribe/mindscribe-go/pkg/audio"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closingEngine struct {
	name   string
	closed atomic.Bool
}

func (c *closingEngine) Invoke(ctx context.Context, samples []float32, opts Options) (Result, error) {
	return Result{Text: c.name}, nil
}

func (c *closingEngine) Close() error {
	c.closed.Store(true)
	return nil
}

// gatedLoader blocks until release is closed or the load is cancelled
type gatedLoader struct {
	engine  Engine
	release chan struct{}
	started chan struct{}
}

func newGatedLoader(e Engine) *gatedLoader {
	return &gatedLoader{engine: e, release: make(chan struct{}), started: make(chan struct{}, 1)}
}

func (g *gatedLoader) Load(ctx context.Context, modelID string, onProgress func(float64)) (Engine, error) {
	g.started <- struct{}{}
	onProgress(0.5)
	select {
	case <-g.release:
		onProgress(1)
		return g.engine, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestHandleInitialState(t *testing.T) {
	h := NewHandle()
	state, model := h.State()
	assert.Equal(t, StateEmpty, state)
	assert.Empty(t, model)
	assert.False(t, h.Ready())

	_, err := h.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrEngineNotReady)
}

func TestHandleLoadReportsProgress(t *testing.T) {
	h := NewHandle()
	loader := newGatedLoader(&closingEngine{name: "a"})
	close(loader.release)

	var seen []float64
	require.NoError(t, h.Load(context.Background(), "model-a", loader, func(p float64) { seen = append(seen, p) }))

	assert.Equal(t, []float64{0.5, 1}, seen)
	state, model := h.State()
	assert.Equal(t, StateReady, state)
	assert.Equal(t, "model-a", model)
}

func TestHandleLoadFailure(t *testing.T) {
	h := NewHandle()
	loader := LoaderFunc(func(ctx context.Context, modelID string, onProgress func(float64)) (Engine, error) {
		return nil, errors.New("weights missing")
	})

	err := h.Load(context.Background(), "broken", loader, nil)
	require.Error(t, err)

	state, _ := h.State()
	assert.Equal(t, StateFailed, state)

	_, err = h.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrEngineNotReady)
	assert.Contains(t, err.Error(), "weights missing")
}

func TestHandleLoadWithoutEngine(t *testing.T) {
	h := NewHandle()
	loader := LoaderFunc(func(ctx context.Context, modelID string, onProgress func(float64)) (Engine, error) {
		return nil, nil
	})

	err := h.Load(context.Background(), "empty", loader, nil)
	assert.ErrorIs(t, err, ErrNoEngine)

	state, _ := h.State()
	assert.Equal(t, StateFailed, state)
	assert.False(t, h.Ready())

	_, err = h.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrEngineNotReady)
	assert.ErrorIs(t, h.WaitLoaded(context.Background()), ErrEngineNotReady)

	_, err = NewOrchestrator(zerolog.Nop()).Transcribe(context.Background(), audio.Buffer{Samples: make([]float32, 16), SampleRate: audio.TargetRate}, h, nil, nil)
	assert.ErrorIs(t, err, ErrEngineNotReady)
}

func TestHandleWaitLoadedIgnoresLease(t *testing.T) {
	h := NewHandle()
	assert.ErrorIs(t, h.WaitLoaded(context.Background()), ErrEngineNotReady)

	first := newGatedLoader(&closingEngine{name: "a"})
	close(first.release)
	require.NoError(t, h.Load(context.Background(), "a", first, nil))

	lease, err := h.Acquire(context.Background())
	require.NoError(t, err)
	defer lease.Release()

	second := newGatedLoader(&closingEngine{name: "b"})
	loaded := make(chan error, 1)
	go func() { loaded <- h.Load(context.Background(), "b", second, nil) }()
	<-second.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.WaitLoaded(ctx), context.DeadlineExceeded, "waits while loading")

	close(second.release)
	require.NoError(t, <-loaded)

	// The first lease is still held
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	assert.NoError(t, h.WaitLoaded(ctx2))
}

func TestHandleAcquireWaitsForLoad(t *testing.T) {
	h := NewHandle()
	engine := &closingEngine{name: "a"}
	loader := newGatedLoader(engine)

	loadErr := make(chan error, 1)
	go func() { loadErr <- h.Load(context.Background(), "model-a", loader, nil) }()
	<-loader.started

	acquired := make(chan *Lease, 1)
	go func() {
		lease, err := h.Acquire(context.Background())
		assert.NoError(t, err)
		acquired <- lease
	}()

	select {
	case <-acquired:
		t.Fatal("acquire returned while the model was still loading")
	case <-time.After(20 * time.Millisecond):
	}

	close(loader.release)
	require.NoError(t, <-loadErr)

	lease := <-acquired
	require.NotNil(t, lease)
	assert.Same(t, engine, lease.Engine())
	lease.Release()
}

func TestHandleReplacementCancelsOlderLoad(t *testing.T) {
	h := NewHandle()
	first := newGatedLoader(&closingEngine{name: "first"})
	second := newGatedLoader(&closingEngine{name: "second"})

	var firstProgress atomic.Int32
	firstErr := make(chan error, 1)
	go func() {
		firstErr <- h.Load(context.Background(), "first", first, func(float64) { firstProgress.Add(1) })
	}()
	<-first.started

	secondErr := make(chan error, 1)
	go func() { secondErr <- h.Load(context.Background(), "second", second, nil) }()
	<-second.started

	err := <-firstErr
	assert.ErrorIs(t, err, ErrLoadSuperseded)

	close(second.release)
	require.NoError(t, <-secondErr)

	_, model := h.State()
	assert.Equal(t, "second", model)

	lease, err := h.Acquire(context.Background())
	require.NoError(t, err)
	res, _ := lease.Engine().Invoke(context.Background(), nil, DefaultOptions())
	assert.Equal(t, "second", res.Text)
	lease.Release()

	// Only the 0.5 report from before replacement may have been delivered
	assert.LessOrEqual(t, firstProgress.Load(), int32(1))
}

func TestHandleSupersededLoadIsDiscarded(t *testing.T) {
	h := NewHandle()
	first := newGatedLoader(&closingEngine{name: "stale"})

	firstErr := make(chan error, 1)
	go func() { firstErr <- h.Load(context.Background(), "first", first, nil) }()
	<-first.started

	// The second load bumps the generation and cancels the first
	fresh := &closingEngine{name: "fresh"}
	secondDone := make(chan error, 1)
	go func() {
		secondDone <- h.Load(context.Background(), "second", LoaderFunc(func(ctx context.Context, id string, p func(float64)) (Engine, error) {
			return fresh, nil
		}), nil)
	}()
	require.NoError(t, <-secondDone)
	assert.ErrorIs(t, <-firstErr, ErrLoadSuperseded)

	lease, err := h.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, fresh, lease.Engine())
	lease.Release()
}

func TestHandleRetiresReplacedEngine(t *testing.T) {
	h := NewHandle()
	old := &closingEngine{name: "old"}
	require.NoError(t, h.Load(context.Background(), "old", LoaderFunc(func(ctx context.Context, id string, p func(float64)) (Engine, error) {
		return old, nil
	}), nil))

	require.NoError(t, h.Load(context.Background(), "new", LoaderFunc(func(ctx context.Context, id string, p func(float64)) (Engine, error) {
		return &closingEngine{name: "new"}, nil
	}), nil))

	assert.Eventually(t, old.closed.Load, time.Second, 5*time.Millisecond)
}

func TestHandleLeaseIsExclusive(t *testing.T) {
	h := NewHandle()
	require.NoError(t, h.Load(context.Background(), "m", LoaderFunc(func(ctx context.Context, id string, p func(float64)) (Engine, error) {
		return &closingEngine{}, nil
	}), nil))

	lease, err := h.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = h.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	lease.Release()
	lease.Release() // idempotent

	second, err := h.Acquire(context.Background())
	require.NoError(t, err)
	second.Release()
}

func TestHandleClose(t *testing.T) {
	h := NewHandle()
	engine := &closingEngine{}
	require.NoError(t, h.Load(context.Background(), "m", LoaderFunc(func(ctx context.Context, id string, p func(float64)) (Engine, error) {
		return engine, nil
	}), nil))

	require.NoError(t, h.Close())
	assert.True(t, engine.closed.Load())
	assert.False(t, h.Ready())

	_, err := h.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrEngineNotReady)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "empty", StateEmpty.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "state(9)", State(9).String())
}
