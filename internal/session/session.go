// ABOUTME: Pipeline session tying model, transcript, tree and viewport together
// ABOUTME: Replaces global pipeline state with an object owned by the caller
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mindscribe/mindscribe-go/internal/metrics"
	"github.com/mindscribe/mindscribe-go/pkg/audio"
	"github.com/mindscribe/mindscribe-go/pkg/audio/resample"
	"github.com/mindscribe/mindscribe-go/pkg/mindtree"
	"github.com/mindscribe/mindscribe-go/pkg/transcribe"
	"github.com/mindscribe/mindscribe-go/pkg/viewport"
	"github.com/rs/zerolog"
)

var (
	// ErrBusy is returned when a transcription is already running
	ErrBusy = errors.New("session busy")

	// ErrNoTranscript is returned by Analyze before anything was transcribed
	ErrNoTranscript = errors.New("no transcript to analyze")

	// ErrNoAnalyzer is returned by Analyze when no topic service is configured
	ErrNoAnalyzer = errors.New("no topic analyzer configured")
)

// Analyzer turns a transcript into topic segments
type Analyzer interface {
	Analyze(ctx context.Context, transcript string) ([]mindtree.Segment, error)
}

// Renderer displays node-tree documents
type Renderer interface {
	// Show replaces the displayed diagram
	Show(doc mindtree.Document) error

	// Resize re-fits the current diagram to its surface
	Resize()
}

// Config holds the collaborators of a Session
type Config struct {
	// Loader acquires the speech engine (required)
	Loader transcribe.Loader

	// Analyzer calls the topic service; Analyze fails without one
	Analyzer Analyzer

	// Orchestrator defaults to transcribe.NewOrchestrator
	Orchestrator *transcribe.Orchestrator

	// Metrics is optional
	Metrics *metrics.Metrics

	Logger zerolog.Logger
}

// Session is one user's pipeline: a model handle, the latest transcript and
// tree, and the viewport of the rendered diagram.
type Session struct {
	id       uuid.UUID
	handle   *transcribe.Handle
	loader   transcribe.Loader
	analyzer Analyzer
	orch     *transcribe.Orchestrator
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	viewport *viewport.Controller

	busy atomic.Bool

	mu         sync.RWMutex
	transcript string
	tree       mindtree.Tree
	renderers  []Renderer
}

// New creates a session with an empty handle and an empty tree
func New(cfg Config) (*Session, error) {
	if cfg.Loader == nil {
		return nil, fmt.Errorf("loader is required")
	}

	id := uuid.New()
	logger := cfg.Logger.With().Str("session", id.String()).Logger()

	orch := cfg.Orchestrator
	if orch == nil {
		orch = transcribe.NewOrchestrator(logger)
	}
	if cfg.Metrics != nil && orch.Observer == nil {
		orch.Observer = cfg.Metrics
	}

	return &Session{
		id:       id,
		handle:   transcribe.NewHandle(),
		loader:   cfg.Loader,
		analyzer: cfg.Analyzer,
		orch:     orch,
		metrics:  cfg.Metrics,
		logger:   logger,
		viewport: viewport.NewController(),
		tree:     mindtree.EmptyTree(),
	}, nil
}

// ID returns the session id
func (s *Session) ID() uuid.UUID { return s.id }

// Handle returns the engine handle
func (s *Session) Handle() *transcribe.Handle { return s.handle }

// Viewport returns the controller of the rendered diagram
func (s *Session) Viewport() *viewport.Controller { return s.viewport }

// AddRenderer registers r and shows it the current tree
func (s *Session) AddRenderer(r Renderer) error {
	s.mu.Lock()
	s.renderers = append(s.renderers, r)
	doc := mindtree.NewDocument(s.tree)
	s.mu.Unlock()

	return r.Show(doc)
}

// LoadModel loads modelID into the handle. A newer call supersedes an older
// one still in flight.
func (s *Session) LoadModel(ctx context.Context, modelID string, onProgress func(float64)) error {
	s.logger.Info().Str("model", modelID).Msg("loading model")

	start := time.Now()
	err := s.handle.Load(ctx, modelID, s.loader, onProgress)
	if errors.Is(err, transcribe.ErrLoadSuperseded) {
		s.logger.Info().Str("model", modelID).Msg("model load superseded")
		return err
	}
	if s.metrics != nil {
		s.metrics.ModelLoaded(time.Since(start), err)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("model", modelID).Msg("model load failed")
		return err
	}

	s.logger.Info().Str("model", modelID).Dur("elapsed", time.Since(start)).Msg("model ready")
	return nil
}

// Transcribe resamples buf to 16 kHz and runs it through the engine. Only
// one transcription runs per session; a second call returns ErrBusy. The
// transcript is stored only when every chunk succeeds.
func (s *Session) Transcribe(ctx context.Context, buf audio.Buffer, onProgress transcribe.ProgressFunc, onPartial transcribe.PartialFunc) (string, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return "", ErrBusy
	}
	defer s.busy.Store(false)

	// Fail fast without a model rather than resampling a whole file first
	if err := s.handle.WaitLoaded(ctx); err != nil {
		return "", err
	}

	resampled, err := resample.Resample(buf)
	if err != nil {
		return "", err
	}
	s.logger.Info().
		Int("input_rate", buf.SampleRate).
		Int("samples", len(resampled.Samples)).
		Dur("duration", resampled.Duration()).
		Msg("audio resampled")

	text, err := s.orch.Transcribe(ctx, resampled, s.handle, onProgress, onPartial)
	if s.metrics != nil {
		s.metrics.TranscriptionFinished(err)
	}
	if err != nil {
		return text, err
	}

	s.SetTranscript(text)
	return text, nil
}

// Busy reports whether a transcription is running
func (s *Session) Busy() bool { return s.busy.Load() }

// SetTranscript replaces the stored transcript
func (s *Session) SetTranscript(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = text
}

// Transcript returns the stored transcript
func (s *Session) Transcript() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transcript
}

// Tree returns the current tree
func (s *Session) Tree() mindtree.Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree
}

// Analyze sends the transcript to the topic service and shows the resulting
// tree. Like Transcribe it waits for a model load in flight.
func (s *Session) Analyze(ctx context.Context) (mindtree.Tree, error) {
	if s.analyzer == nil {
		return mindtree.Tree{}, ErrNoAnalyzer
	}
	if err := s.waitForLoad(ctx); err != nil {
		return mindtree.Tree{}, err
	}

	transcript := s.Transcript()
	if transcript == "" {
		return mindtree.Tree{}, ErrNoTranscript
	}

	segments, err := s.analyzer.Analyze(ctx, transcript)
	if err != nil {
		s.logger.Error().Err(err).Msg("topic analysis failed")
		return mindtree.Tree{}, err
	}

	tree, err := mindtree.Build(segments)
	if err != nil {
		return mindtree.Tree{}, err
	}
	if err := s.ShowTree(tree); err != nil {
		s.logger.Warn().Err(err).Msg("renderer failed")
	}
	return tree, nil
}

// waitForLoad lets a model load in flight settle. Analysis does not need the
// engine, so a missing or failed model is not an error here.
func (s *Session) waitForLoad(ctx context.Context) error {
	if err := s.handle.WaitLoaded(ctx); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// ShowTree stores tree, resets the viewport and pushes the document to every
// renderer. Renderer errors are joined; all renderers are tried.
func (s *Session) ShowTree(tree mindtree.Tree) error {
	s.mu.Lock()
	s.tree = tree
	renderers := append([]Renderer(nil), s.renderers...)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.TreeBuilt(tree.TopicCount())
	}
	s.logger.Info().Int("topics", tree.TopicCount()).Msg("tree built")

	s.viewport.Reset()

	doc := mindtree.NewDocument(tree)
	var errs []error
	for _, r := range renderers {
		if err := r.Show(doc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Resize asks every renderer to re-fit the current diagram
func (s *Session) Resize() {
	s.mu.RLock()
	renderers := append([]Renderer(nil), s.renderers...)
	s.mu.RUnlock()

	for _, r := range renderers {
		r.Resize()
	}
}

// Close cancels any load and releases the engine
func (s *Session) Close() error {
	return s.handle.Close()
}
