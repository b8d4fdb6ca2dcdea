// ABOUTME: Viewport controller package
// ABOUTME: Pan and zoom state for an interactive diagram surface
// Package viewport tracks the affine transform applied to a rendered
// diagram.
//
// Two zoom entry points exist with different behavior: ZoomAtPoint keeps the
// point under the pointer fixed and clamps to [0.1, 3], while ZoomStep
// changes scale by 0.1 around the current pan and clamps to [0.5, 2].
//
// Dragging is a two-state machine (Idle, Panning). BeginPan only starts a
// drag when pan mode is enabled, and every started drag is released by
// exactly one EndPan or Reset.
//
// Example:
//
//	vp := viewport.NewController()
//	vp.OnChange(func(s viewport.State) { redraw(s) })
//	vp.ZoomAtPoint(mouseX, mouseY, 0.1)
package viewport
