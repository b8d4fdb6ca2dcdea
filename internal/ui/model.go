// ABOUTME: Bubbletea model for the mindscribe terminal UI
// ABOUTME: Pipeline progress view plus an interactive pan and zoom mind map
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mindscribe/mindscribe-go/internal/render"
	"github.com/mindscribe/mindscribe-go/pkg/mindtree"
	"github.com/mindscribe/mindscribe-go/pkg/viewport"
)

const (
	// headerRows is the number of lines above the diagram
	headerRows = 3

	// footerRows is the number of lines below the diagram
	footerRows = 1

	// WheelZoomDelta is the scale change of one mouse wheel notch
	WheelZoomDelta = 0.1
)

// Phase is the pipeline step shown in the header
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseTranscribing
	PhaseAnalyzing
	PhaseReady
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseLoading:
		return "Loading model"
	case PhaseTranscribing:
		return "Transcribing"
	case PhaseAnalyzing:
		return "Analyzing topics"
	case PhaseReady:
		return "Ready"
	case PhaseFailed:
		return "Failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// StatusMsg updates pipeline progress. Zero fields leave the model unchanged.
type StatusMsg struct {
	Phase        Phase
	Model        string
	LoadProgress float64
	ChunksDone   int
	ChunksTotal  int
	Transcript   string
	Err          error
}

// TreeMsg replaces the displayed diagram
type TreeMsg struct {
	Doc mindtree.Document
}

// ResizeMsg re-centers the current diagram
type ResizeMsg struct{}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	helpStyle    = lipgloss.NewStyle().Faint(true)
	rootStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	topicStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	contentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	edgeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Model represents the TUI state
type Model struct {
	// Pipeline
	phase        Phase
	modelID      string
	loadProgress float64
	chunksDone   int
	chunksTotal  int
	transcript   string
	err          error

	// Diagram
	vp      *viewport.Controller
	layout  render.Layout
	hasTree bool

	showTranscript bool
	quitting       bool
	quitChan       chan struct{}

	// Dimensions
	width  int
	height int
}

// NewModel creates a model driving vp. quitChan, when set, is signalled
// once the user quits.
func NewModel(vp *viewport.Controller, quitChan chan struct{}) Model {
	if vp == nil {
		vp = viewport.NewController()
	}
	return Model{
		vp:       vp,
		layout:   render.NewLayout(nil),
		quitChan: quitChan,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		m.handleMouse(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.fit()
	case StatusMsg:
		m.applyStatus(msg)
	case TreeMsg:
		m.layout = render.NewLayout(msg.Doc.Data)
		m.hasTree = true
		m.fit()
	case ResizeMsg:
		m.fit()
	}

	return m, nil
}

// fit records the surface sizes and re-centers the diagram
func (m *Model) fit() {
	w, h := m.canvasSize()
	m.vp.SetSurface(
		viewport.Size{Width: float64(w), Height: float64(h)},
		m.layout.Size(),
	)
	m.vp.Reset()
}

func (m Model) canvasSize() (int, int) {
	return max(m.width, 0), max(m.height-headerRows-footerRows, 0)
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		if m.quitChan != nil {
			select {
			case m.quitChan <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case "+", "=":
		m.vp.ZoomStep(viewport.ZoomIn)
	case "-", "_":
		m.vp.ZoomStep(viewport.ZoomOut)
	case "p":
		m.vp.SetPanMode(!m.vp.PanMode())
	case "0":
		m.vp.Reset()
	case "t":
		m.showTranscript = !m.showTranscript
	}

	return m, nil
}

// handleMouse maps wheel and drag events onto the viewport. Coordinates are
// relative to the top-left cell of the diagram.
func (m *Model) handleMouse(msg tea.MouseMsg) {
	x := float64(msg.X)
	y := float64(msg.Y - headerRows)

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.vp.ZoomAtPoint(x, y, WheelZoomDelta)
	case msg.Button == tea.MouseButtonWheelDown:
		m.vp.ZoomAtPoint(x, y, -WheelZoomDelta)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.vp.BeginPan(x, y)
	case msg.Action == tea.MouseActionMotion:
		m.vp.UpdatePan(x, y)
	case msg.Action == tea.MouseActionRelease:
		m.vp.EndPan()
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Phase != PhaseIdle {
		m.phase = msg.Phase
	}
	if msg.Model != "" {
		m.modelID = msg.Model
	}
	if msg.LoadProgress != 0 {
		m.loadProgress = msg.LoadProgress
	}
	if msg.ChunksTotal != 0 {
		m.chunksDone = msg.ChunksDone
		m.chunksTotal = msg.ChunksTotal
	}
	if msg.Transcript != "" {
		m.transcript = msg.Transcript
	}
	if msg.Err != nil {
		m.err = msg.Err
		m.phase = PhaseFailed
	}
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if m.hasTree && !m.showTranscript {
		b.WriteString(m.renderDiagram())
	} else {
		b.WriteString(m.renderTranscript())
	}
	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

// renderHeader renders the title and pipeline status in headerRows lines
func (m Model) renderHeader() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("MindScribe"))
	if m.modelID != "" {
		b.WriteString(valueStyle.Render("  model: " + m.modelID))
	}
	b.WriteString("\n")

	b.WriteString(headerStyle.Render(m.phase.String() + ": "))
	switch m.phase {
	case PhaseLoading:
		b.WriteString(valueStyle.Render(fmt.Sprintf("[%s] %3.0f%%", renderBar(m.loadProgress, 20), m.loadProgress*100)))
	case PhaseTranscribing:
		frac := 0.0
		if m.chunksTotal > 0 {
			frac = float64(m.chunksDone) / float64(m.chunksTotal)
		}
		b.WriteString(valueStyle.Render(fmt.Sprintf("[%s] chunk %d/%d", renderBar(frac, 20), m.chunksDone, m.chunksTotal)))
	case PhaseFailed:
		if m.err != nil {
			b.WriteString(errorStyle.Render(truncate(m.err.Error(), max(m.width-10, 10))))
		}
	case PhaseReady:
		st := m.vp.State()
		mode := "zoom"
		if m.vp.PanMode() {
			mode = "pan"
		}
		b.WriteString(valueStyle.Render(fmt.Sprintf("%d topics  scale %.1fx  %s", m.topicCount(), st.Scale, mode)))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) topicCount() int {
	n := 0
	for _, box := range m.layout.Boxes {
		if box.Kind == render.KindTopic {
			n++
		}
	}
	return n
}

// renderDiagram rasterizes the layout through the current viewport state
func (m Model) renderDiagram() string {
	w, h := m.canvasSize()
	grid := render.Rasterize(m.layout, m.vp.State(), w, h)

	var b strings.Builder
	for y, row := range grid.Cells {
		if y > 0 {
			b.WriteString("\n")
		}
		// Style runs of equal kind together
		start := 0
		for x := 1; x <= len(row); x++ {
			if x < len(row) && row[x].Kind == row[start].Kind {
				continue
			}
			b.WriteString(styleFor(row[start].Kind).Render(runesOf(row[start:x])))
			start = x
		}
	}
	return b.String()
}

// renderTranscript shows the tail of the transcript that fits the body
func (m Model) renderTranscript() string {
	_, h := m.canvasSize()
	if m.transcript == "" {
		return helpStyle.Render("No transcript yet") + strings.Repeat("\n", max(h-1, 0))
	}

	lines := strings.Split(strings.TrimRight(m.transcript, "\n"), "\n")
	if len(lines) > h {
		lines = lines[len(lines)-h:]
	}
	for i, l := range lines {
		lines[i] = valueStyle.Render(truncate(l, m.width))
	}
	for len(lines) < h {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return helpStyle.Render("wheel:zoom  +/-:step  p:pan mode  0:reset  t:transcript  q:quit")
}

func styleFor(kind render.CellKind) lipgloss.Style {
	switch kind {
	case render.CellRoot:
		return rootStyle
	case render.CellTopic:
		return topicStyle
	case render.CellContent:
		return contentStyle
	case render.CellEdge:
		return edgeStyle
	}
	return lipgloss.NewStyle()
}

func runesOf(cells []render.Cell) string {
	rs := make([]rune, len(cells))
	for i, c := range cells {
		rs[i] = c.Rune
	}
	return string(rs)
}

// Utility functions
func renderBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	filled = min(max(filled, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	if length <= 3 {
		return string(r[:max(length, 0)])
	}
	return string(r[:length-3]) + "..."
}
