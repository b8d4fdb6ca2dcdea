// ABOUTME: Terminal UI package
// ABOUTME: Progress display and mind-map viewer built on bubbletea
// Package ui is the interactive front end. While the pipeline runs it shows
// model loading and chunk progress with the streaming transcript; once a
// tree arrives it draws the mind map and routes mouse and key input to a
// viewport.Controller.
//
// Controls: the mouse wheel zooms around the pointer, left-drag pans while
// pan mode is on, + and - step the zoom, p toggles pan mode, 0 resets the
// view, t toggles the transcript and q quits.
package ui
