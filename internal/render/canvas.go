// ABOUTME: Rasterizes a layout to a grid of terminal cells
// ABOUTME: Every box and edge is mapped through the viewport transform
package render

import (
	"math"
	"strings"

	"github.com/mindscribe/mindscribe-go/pkg/mindtree"
	"github.com/mindscribe/mindscribe-go/pkg/viewport"
)

// CellKind tells the UI how to style a cell
type CellKind int

const (
	CellEmpty CellKind = iota
	CellEdge
	CellRoot
	CellTopic
	CellContent
)

// Cell is one terminal character
type Cell struct {
	Rune rune
	Kind CellKind
}

// Grid is a rendered frame, indexed [row][column]
type Grid struct {
	Width  int
	Height int
	Cells  [][]Cell
}

// NewGrid returns a blank grid
func NewGrid(width, height int) Grid {
	width, height = max(width, 0), max(height, 0)
	cells := make([][]Cell, height)
	for y := range cells {
		row := make([]Cell, width)
		for x := range row {
			row[x] = Cell{Rune: ' '}
		}
		cells[y] = row
	}
	return Grid{Width: width, Height: height, Cells: cells}
}

func (g Grid) set(x, y int, r rune, kind CellKind) {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return
	}
	g.Cells[y][x] = Cell{Rune: r, Kind: kind}
}

// At returns the cell at column x, row y; out of range is empty
func (g Grid) At(x, y int) Cell {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return Cell{Rune: ' '}
	}
	return g.Cells[y][x]
}

// String renders the grid without styling
func (g Grid) String() string {
	var sb strings.Builder
	for y, row := range g.Cells {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for _, c := range row {
			sb.WriteRune(c.Rune)
		}
	}
	return sb.String()
}

// Rasterize draws layout into a width x height grid through state. Edges are
// drawn first so boxes cover their endpoints. Boxes that shrink below two
// cells collapse to a single marker.
func Rasterize(l Layout, state viewport.State, width, height int) Grid {
	g := NewGrid(width, height)
	if state.Scale <= 0 {
		return g
	}

	for _, e := range l.Edges {
		from, to := l.Boxes[e.From], l.Boxes[e.To]
		fx, fy := state.Apply(from.Anchor(e.Direction))
		tx, ty := state.Apply(to.Anchor(opposite(e.Direction)))
		drawElbow(g, cell(fx), cell(fy), cell(tx), cell(ty))
	}

	for _, b := range l.Boxes {
		drawBox(g, b, state)
	}
	return g
}

func drawElbow(g Grid, x0, y0, x1, y1 int) {
	mid := (x0 + x1) / 2
	hline(g, x0, mid, y0)
	vline(g, mid, y0, y1)
	hline(g, mid, x1, y1)
}

func hline(g Grid, x0, x1, y int) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	for x := x0; x <= x1; x++ {
		g.set(x, y, '─', CellEdge)
	}
}

func vline(g Grid, x, y0, y1 int) {
	if y0 == y1 {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		g.set(x, y, '│', CellEdge)
	}
}

func drawBox(g Grid, b Box, state viewport.State) {
	kind := CellContent
	switch b.Kind {
	case KindRoot:
		kind = CellRoot
	case KindTopic:
		kind = CellTopic
	}

	sx0, sy0 := state.Apply(b.X, b.Y)
	sx1, sy1 := state.Apply(b.X+b.W, b.Y+b.H)
	x0, y0 := cell(sx0), cell(sy0)
	x1, y1 := cell(sx1)-1, cell(sy1)-1

	if x1-x0 < 1 || y1-y0 < 1 {
		g.set(x0, y0, '■', kind)
		return
	}

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			var r rune
			switch {
			case y == y0 && x == x0:
				r = '┌'
			case y == y0 && x == x1:
				r = '┐'
			case y == y1 && x == x0:
				r = '└'
			case y == y1 && x == x1:
				r = '┘'
			case y == y0 || y == y1:
				r = '─'
			case x == x0 || x == x1:
				r = '│'
			default:
				r = ' '
			}
			g.set(x, y, r, kind)
		}
	}

	// Label on the middle row, clipped to the interior
	inner := x1 - x0 - 1
	if inner <= 0 || y1-y0 < 2 {
		return
	}
	label := []rune(b.Label)
	if len(label) > inner {
		if inner > 1 {
			label = append(label[:inner-1], '…')
		} else {
			label = label[:inner]
		}
	}
	row := y0 + (y1-y0)/2
	start := x0 + 1 + (inner-len(label))/2
	for i, r := range label {
		g.set(start+i, row, r, kind)
	}
}

func cell(v float64) int {
	return int(math.Floor(v))
}

func opposite(dir mindtree.Direction) mindtree.Direction {
	if dir == mindtree.Left {
		return mindtree.Right
	}
	return mindtree.Left
}
