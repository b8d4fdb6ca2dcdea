// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, key and mouse routing, and diagram rendering
package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mindscribe/mindscribe-go/pkg/mindtree"
	"github.com/mindscribe/mindscribe-go/pkg/viewport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func treeDoc(t *testing.T) mindtree.Document {
	t.Helper()
	tree, err := mindtree.Build([]mindtree.Segment{
		mindtree.NewSegment("Intro: Hello", "welcome everyone"),
		mindtree.NewSegment("Outro", "goodbye"),
	})
	require.NoError(t, err)
	return mindtree.NewDocument(tree)
}

func TestNewModel(t *testing.T) {
	m := NewModel(nil, nil)
	require.NotNil(t, m.vp)
	assert.Equal(t, PhaseIdle, m.phase)
	assert.False(t, m.hasTree)
	assert.Equal(t, "Loading...", m.View())
}

func TestApplyStatus(t *testing.T) {
	m := NewModel(nil, nil)

	m.applyStatus(StatusMsg{Phase: PhaseLoading, Model: "tiny", LoadProgress: 0.5})
	assert.Equal(t, PhaseLoading, m.phase)
	assert.Equal(t, "tiny", m.modelID)
	assert.Equal(t, 0.5, m.loadProgress)

	m.applyStatus(StatusMsg{Phase: PhaseTranscribing, ChunksDone: 1, ChunksTotal: 4})
	m.applyStatus(StatusMsg{Transcript: "[00:00:00] hi\n"})
	assert.Equal(t, PhaseTranscribing, m.phase, "zero phase leaves the phase alone")
	assert.Equal(t, "tiny", m.modelID)
	assert.Equal(t, 1, m.chunksDone)
	assert.Equal(t, 4, m.chunksTotal)
	assert.Equal(t, "[00:00:00] hi\n", m.transcript)

	m.applyStatus(StatusMsg{Err: errors.New("engine crashed")})
	assert.Equal(t, PhaseFailed, m.phase)
	assert.EqualError(t, m.err, "engine crashed")
}

func TestViewShowsProgress(t *testing.T) {
	m := update(t, NewModel(nil, nil), tea.WindowSizeMsg{Width: 80, Height: 12})

	m = update(t, m, StatusMsg{Phase: PhaseTranscribing, Model: "tiny", ChunksDone: 2, ChunksTotal: 4, Transcript: "[00:00:00] first\n[00:00:30] second\n"})
	view := m.View()
	assert.Contains(t, view, "MindScribe")
	assert.Contains(t, view, "chunk 2/4")
	assert.Contains(t, view, "[00:00:30] second")

	m = update(t, m, StatusMsg{Err: errors.New("engine crashed")})
	assert.Contains(t, m.View(), "engine crashed")
}

func TestTreeMsgRendersDiagram(t *testing.T) {
	m := update(t, NewModel(nil, nil), tea.WindowSizeMsg{Width: 120, Height: 20})
	m = update(t, m, StatusMsg{Phase: PhaseReady})
	m = update(t, m, TreeMsg{Doc: treeDoc(t)})

	require.True(t, m.hasTree)
	view := m.View()
	assert.Contains(t, view, "Video Topics")
	assert.Contains(t, view, "Hello")
	assert.Contains(t, view, "2 topics")

	// The diagram is centered in the body
	st := m.vp.State()
	assert.Equal(t, 1.0, st.Scale)
	assert.InDelta(t, (120-m.layout.Width)/2, st.PanX, 1e-9)

	// t flips back to the transcript
	m = update(t, m, key("t"))
	assert.NotContains(t, m.View(), "Video Topics")
}

func TestKeysDriveViewport(t *testing.T) {
	vp := viewport.NewController()
	m := NewModel(vp, nil)

	m = update(t, m, key("+"))
	assert.InDelta(t, 1.1, vp.State().Scale, 1e-9)
	m = update(t, m, key("-"))
	m = update(t, m, key("-"))
	assert.InDelta(t, 0.9, vp.State().Scale, 1e-9)

	m = update(t, m, key("p"))
	assert.True(t, vp.PanMode())

	m = update(t, m, key("0"))
	assert.False(t, vp.PanMode())
	assert.Equal(t, viewport.Identity(), vp.State())
}

func TestMouseDrivesViewport(t *testing.T) {
	vp := viewport.NewController()
	m := NewModel(vp, nil)

	// Wheel zoom is anchored at the pointer, measured from the diagram origin
	m = update(t, m, tea.MouseMsg{X: 10, Y: headerRows + 5, Button: tea.MouseButtonWheelUp, Action: tea.MouseActionPress})
	st := vp.State()
	assert.InDelta(t, 1.1, st.Scale, 1e-9)
	assert.InDelta(t, -1, st.PanX, 1e-9)
	assert.InDelta(t, -0.5, st.PanY, 1e-9)

	m = update(t, m, tea.MouseMsg{X: 10, Y: headerRows + 5, Button: tea.MouseButtonWheelDown, Action: tea.MouseActionPress})
	assert.InDelta(t, 1.0, vp.State().Scale, 1e-9)

	// Dragging needs pan mode
	m = update(t, m, key("0"))
	m = update(t, m, tea.MouseMsg{X: 0, Y: headerRows, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	assert.Equal(t, viewport.Idle, vp.Mode())

	m = update(t, m, key("p"))
	m = update(t, m, tea.MouseMsg{X: 0, Y: headerRows, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	assert.Equal(t, viewport.Panning, vp.Mode())
	m = update(t, m, tea.MouseMsg{X: 7, Y: headerRows + 3, Button: tea.MouseButtonLeft, Action: tea.MouseActionMotion})
	assert.Equal(t, viewport.State{Scale: 1, PanX: 7, PanY: 3}, vp.State())

	m = update(t, m, tea.MouseMsg{X: 7, Y: headerRows + 3, Button: tea.MouseButtonLeft, Action: tea.MouseActionRelease})
	assert.Equal(t, viewport.Idle, vp.Mode())
	assert.Zero(t, vp.ActiveDrags())
}

func TestQuitSignals(t *testing.T) {
	quit := make(chan struct{}, 1)
	m := NewModel(nil, quit)

	next, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.True(t, next.(Model).quitting)
	assert.Equal(t, "Shutting down...\n", next.(Model).View())

	select {
	case <-quit:
	default:
		t.Fatal("quit channel not signalled")
	}
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "Transcribing", PhaseTranscribing.String())
	assert.Equal(t, "phase(42)", Phase(42).String())
}

func TestRenderBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░", renderBar(0.5, 10))
	assert.Equal(t, strings.Repeat("░", 4), renderBar(-1, 4))
	assert.Equal(t, strings.Repeat("█", 4), renderBar(2, 4))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "éé...", truncate("éééééééé", 5))
}
