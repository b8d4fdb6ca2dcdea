// ABOUTME: Diagram renderer package
// ABOUTME: Websocket hub for external viewers and a terminal rasterizer
// Package render displays topic trees. Hub pushes node-tree documents to
// websocket clients; NewLayout and Rasterize draw the same tree as box art
// for the terminal UI, with every coordinate passed through a
// viewport.State.
package render
