// ABOUTME: Pan and zoom controller for the rendered mind map
// ABOUTME: Affine transform state plus an idle/panning drag state machine
package viewport

import (
	"fmt"
	"sync"
)

const (
	// MinPointerScale and MaxPointerScale bound pointer-anchored zoom
	MinPointerScale = 0.1
	MaxPointerScale = 3.0

	// MinStepScale and MaxStepScale bound discrete zoom steps
	MinStepScale = 0.5
	MaxStepScale = 2.0

	// ZoomStepSize is the scale change of one zoom button press
	ZoomStepSize = 0.1
)

// Mode is the drag state of the controller
type Mode int

const (
	Idle Mode = iota
	Panning
)

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Panning:
		return "panning"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ZoomDirection selects a discrete zoom step
type ZoomDirection int

const (
	ZoomOut ZoomDirection = -1
	ZoomIn  ZoomDirection = 1
)

// State is the affine transform: screen = diagram*Scale + Pan
type State struct {
	Scale float64
	PanX  float64
	PanY  float64
}

// Identity is the untransformed state
func Identity() State {
	return State{Scale: 1}
}

// Apply maps a diagram-space point to screen space
func (s State) Apply(x, y float64) (float64, float64) {
	return x*s.Scale + s.PanX, y*s.Scale + s.PanY
}

// Invert maps a screen-space point back to diagram space
func (s State) Invert(x, y float64) (float64, float64) {
	return (x - s.PanX) / s.Scale, (y - s.PanY) / s.Scale
}

// Size is a surface size in pixels or cells
type Size struct {
	Width  float64
	Height float64
}

// Known reports whether the size has been measured
func (s Size) Known() bool {
	return s.Width > 0 && s.Height > 0
}

// Controller owns the transform of one rendered surface. All operations are
// total: inputs are clamped, never rejected.
type Controller struct {
	mu          sync.Mutex
	state       State
	mode        Mode
	panMode     bool
	originX     float64
	originY     float64
	activeDrags int
	container   Size
	content     Size
	onChange    func(State)
}

// NewController returns a controller at the identity transform
func NewController() *Controller {
	return &Controller{state: Identity()}
}

// OnChange registers fn to be called with the new state after every
// transform mutation. fn runs without the controller lock held.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// State returns the current transform
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Mode returns the current drag state
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// PanMode reports whether pointer-down starts a pan
func (c *Controller) PanMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.panMode
}

// ActiveDrags returns the number of live drag subscriptions (0 or 1)
func (c *Controller) ActiveDrags() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeDrags
}

// SetPanMode toggles whether BeginPan starts a drag. A drag already in
// progress continues until EndPan.
func (c *Controller) SetPanMode(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.panMode = enabled
}

// SetSurface records the container and unscaled content sizes used to
// center the diagram on Reset.
func (c *Controller) SetSurface(container, content Size) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.container = container
	c.content = content
}

// ZoomAtPoint changes scale by delta, clamped to [0.1, 3], keeping the
// diagram point under the pointer fixed on screen.
func (c *Controller) ZoomAtPoint(x, y, delta float64) {
	c.mu.Lock()
	s := c.state.Scale
	next := clamp(s+delta, MinPointerScale, MaxPointerScale)
	ratio := next / s
	c.state.PanX = x - (x-c.state.PanX)*ratio
	c.state.PanY = y - (y-c.state.PanY)*ratio
	c.state.Scale = next
	c.mu.Unlock()

	c.notify()
}

// ZoomStep changes scale by one step, clamped to [0.5, 2]. Pan is left
// untouched.
func (c *Controller) ZoomStep(dir ZoomDirection) {
	step := ZoomStepSize
	if dir < 0 {
		step = -ZoomStepSize
	}

	c.mu.Lock()
	c.state.Scale = clamp(c.state.Scale+step, MinStepScale, MaxStepScale)
	c.mu.Unlock()

	c.notify()
}

// BeginPan enters the panning state when pan mode is on and no drag is in
// progress. It returns true when a drag was started; each true return must
// be matched by one EndPan.
func (c *Controller) BeginPan(x, y float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.panMode || c.mode != Idle {
		return false
	}
	c.mode = Panning
	c.activeDrags++
	c.originX = x - c.state.PanX*c.state.Scale
	c.originY = y - c.state.PanY*c.state.Scale
	return true
}

// UpdatePan moves the pan offset to follow the pointer. Outside a drag it
// does nothing.
func (c *Controller) UpdatePan(x, y float64) {
	c.mu.Lock()
	if c.mode != Panning {
		c.mu.Unlock()
		return
	}
	c.state.PanX = (x - c.originX) / c.state.Scale
	c.state.PanY = (y - c.originY) / c.state.Scale
	c.mu.Unlock()

	c.notify()
}

// EndPan leaves the panning state and releases the drag subscription
func (c *Controller) EndPan() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endDragLocked()
}

// Reset returns to scale 1, zero pan, pan mode off and idle, then centers
// the content in its container when both sizes are known.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.endDragLocked()
	c.panMode = false
	c.state = Identity()
	if c.container.Known() && c.content.Known() {
		c.state.PanX = (c.container.Width - c.content.Width) / 2
		c.state.PanY = (c.container.Height - c.content.Height) / 2
	}
	c.mu.Unlock()

	c.notify()
}

func (c *Controller) endDragLocked() {
	if c.mode != Panning {
		return
	}
	c.mode = Idle
	c.activeDrags--
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onChange
	st := c.state
	c.mu.Unlock()

	if fn != nil {
		fn(st)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
