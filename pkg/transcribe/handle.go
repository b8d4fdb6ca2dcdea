// ABOUTME: Exclusive engine handle with replaceable asynchronous loading
// ABOUTME: Gates transcription on a loaded model and allows one lease at a time
package transcribe

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// State describes the model held by a Handle
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Handle owns the current engine. Loads are cancellable by replacement and
// the engine can only be checked out by one caller at a time.
type Handle struct {
	mu      sync.Mutex
	state   State
	engine  Engine
	modelID string
	loadErr error
	gen     uint64
	cancel  context.CancelFunc
	done    chan struct{} // closed when the load for gen finishes

	sem chan struct{}
}

// NewHandle creates an empty handle
func NewHandle() *Handle {
	return &Handle{
		sem: make(chan struct{}, 1),
	}
}

// State returns the current state and model id
func (h *Handle) State() (State, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state, h.modelID
}

// Ready reports whether a model is loaded
func (h *Handle) Ready() bool {
	s, _ := h.State()
	return s == StateReady
}

// Load acquires a model through loader and blocks until it is ready.
// Starting another Load cancels this one, which then returns ErrLoadSuperseded
// and never touches the handle. Progress from a superseded load is dropped.
func (h *Handle) Load(ctx context.Context, modelID string, loader Loader, onProgress func(float64)) error {
	h.mu.Lock()
	if h.cancel != nil {
		h.cancel()
	}
	h.gen++
	gen := h.gen
	loadCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	h.cancel = cancel
	h.done = done
	h.state = StateLoading
	h.modelID = modelID
	h.loadErr = nil
	h.mu.Unlock()

	defer close(done)
	defer cancel()

	progress := func(p float64) {
		if onProgress != nil && h.current(gen) {
			onProgress(p)
		}
	}

	engine, err := loader.Load(loadCtx, modelID, progress)

	h.mu.Lock()
	if gen != h.gen {
		h.mu.Unlock()
		closeEngine(engine)
		return fmt.Errorf("%w: %s", ErrLoadSuperseded, modelID)
	}
	h.cancel = nil
	if err == nil && engine == nil {
		err = ErrNoEngine
	}
	if err != nil {
		h.state = StateFailed
		h.loadErr = err
		h.mu.Unlock()
		return fmt.Errorf("failed to load model %s: %w", modelID, err)
	}
	previous := h.engine
	h.engine = engine
	h.state = StateReady
	h.mu.Unlock()

	if previous != nil {
		go h.retire(previous)
	}
	return nil
}

// WaitLoaded blocks while a load is in flight. It never takes the lease, so
// a transcription holding the engine does not delay it. The result is nil
// when a model is ready and ErrEngineNotReady otherwise.
func (h *Handle) WaitLoaded(ctx context.Context) error {
	for {
		h.mu.Lock()
		state, done, loadErr := h.state, h.done, h.loadErr
		h.mu.Unlock()

		switch state {
		case StateReady:
			return nil
		case StateFailed:
			return fmt.Errorf("%w: %v", ErrEngineNotReady, loadErr)
		case StateEmpty:
			return ErrEngineNotReady
		}

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// retire closes a replaced engine once any lease on it is returned
func (h *Handle) retire(e Engine) {
	h.sem <- struct{}{}
	closeEngine(e)
	<-h.sem
}

func (h *Handle) current(gen uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.gen == gen
}

// Acquire checks the engine out exclusively. It waits while a load is in
// flight and for any other lease to be released. Without a loaded model it
// returns ErrEngineNotReady.
func (h *Handle) Acquire(ctx context.Context) (*Lease, error) {
	for {
		h.mu.Lock()
		state, done, loadErr := h.state, h.done, h.loadErr
		h.mu.Unlock()

		switch state {
		case StateLoading:
			select {
			case <-done:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		case StateFailed:
			return nil, fmt.Errorf("%w: %v", ErrEngineNotReady, loadErr)
		case StateEmpty:
			return nil, ErrEngineNotReady
		}

		select {
		case h.sem <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		// A load may have started while waiting for the lease
		h.mu.Lock()
		if h.state != StateReady {
			h.mu.Unlock()
			<-h.sem
			continue
		}
		lease := &Lease{handle: h, engine: h.engine}
		h.mu.Unlock()
		return lease, nil
	}
}

// Close cancels any load in flight and closes the loaded engine
func (h *Handle) Close() error {
	h.mu.Lock()
	if h.cancel != nil {
		h.cancel()
	}
	h.gen++
	engine := h.engine
	h.engine = nil
	h.state = StateEmpty
	h.mu.Unlock()

	if engine != nil {
		h.sem <- struct{}{}
		defer func() { <-h.sem }()
		if c, ok := engine.(io.Closer); ok {
			return c.Close()
		}
	}
	return nil
}

// Lease is an exclusive checkout of the engine
type Lease struct {
	handle *Handle
	engine Engine
	once   sync.Once
}

// Engine returns the leased engine
func (l *Lease) Engine() Engine {
	return l.engine
}

// Release returns the engine to the handle. Safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(func() {
		<-l.handle.sem
	})
}

func closeEngine(e Engine) {
	if c, ok := e.(io.Closer); ok {
		c.Close()
	}
}
