// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and feeds it pipeline updates
package ui

import (
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mindscribe/mindscribe-go/pkg/mindtree"
	"github.com/mindscribe/mindscribe-go/pkg/transcribe"
	"github.com/mindscribe/mindscribe-go/pkg/viewport"
)

// TUI manages the terminal program. It is safe to send updates before
// Start; they are delivered once the program runs.
type TUI struct {
	program  *tea.Program
	updates  chan tea.Msg
	quitChan chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// Option configures the underlying program
type Option func(*[]tea.ProgramOption)

// WithIO replaces the terminal, for tests and headless runs
func WithIO(in io.Reader, out io.Writer) Option {
	return func(opts *[]tea.ProgramOption) {
		*opts = append(*opts, tea.WithInput(in), tea.WithOutput(out))
	}
}

// NewTUI creates a TUI driving vp
func NewTUI(vp *viewport.Controller, options ...Option) *TUI {
	t := &TUI{
		updates:  make(chan tea.Msg, 64),
		quitChan: make(chan struct{}, 1),
		stopped:  make(chan struct{}),
	}

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithMouseCellMotion()}
	for _, o := range options {
		o(&opts)
	}
	t.program = tea.NewProgram(NewModel(vp, t.quitChan), opts...)
	return t
}

// Start runs the TUI until the user quits or Stop is called
func (t *TUI) Start() error {
	go func() {
		for {
			select {
			case msg := <-t.updates:
				t.program.Send(msg)
			case <-t.stopped:
				return
			}
		}
	}()

	_, err := t.program.Run()
	return err
}

func (t *TUI) send(msg tea.Msg) {
	select {
	case t.updates <- msg:
	case <-t.stopped:
	}
}

// Status sends a progress update
func (t *TUI) Status(msg StatusMsg) {
	t.send(msg)
}

// LoadProgress adapts model loading progress for transcribe.Handle.Load
func (t *TUI) LoadProgress(modelID string) func(float64) {
	return func(p float64) {
		t.Status(StatusMsg{Phase: PhaseLoading, Model: modelID, LoadProgress: p})
	}
}

// ChunkProgress adapts orchestrator progress
func (t *TUI) ChunkProgress() transcribe.ProgressFunc {
	return func(done, total int) {
		t.Status(StatusMsg{Phase: PhaseTranscribing, ChunksDone: done, ChunksTotal: total})
	}
}

// Partial adapts the streaming transcript callback
func (t *TUI) Partial() transcribe.PartialFunc {
	return func(transcript string) {
		t.Status(StatusMsg{Transcript: transcript})
	}
}

// Show displays a new diagram
func (t *TUI) Show(doc mindtree.Document) error {
	t.send(TreeMsg{Doc: doc})
	return nil
}

// Resize re-centers the diagram
func (t *TUI) Resize() {
	t.send(ResizeMsg{})
}

// Stop quits the program and drops further updates
func (t *TUI) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopped)
		t.program.Quit()
	})
}

// QuitChan returns the channel that signals when user wants to quit
func (t *TUI) QuitChan() <-chan struct{} {
	return t.quitChan
}
