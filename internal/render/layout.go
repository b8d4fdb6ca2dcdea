// ABOUTME: Two-sided mind-map layout in diagram space
// ABOUTME: Places the root in the middle and right/left branches beside it
package render

import (
	"unicode/utf8"

	"github.com/mindscribe/mindscribe-go/pkg/mindtree"
	"github.com/mindscribe/mindscribe-go/pkg/viewport"
)

// Layout spacing in terminal cells
const (
	BoxHeight   = 3
	BoxPadding  = 2
	MaxBoxWidth = 40
	RowGap      = 1
	ColumnGap   = 4
)

// Kind classifies a box by tree level
type Kind int

const (
	KindRoot Kind = iota
	KindTopic
	KindContent
)

// Box is one node placed in diagram space
type Box struct {
	ID        string
	Label     string
	Kind      Kind
	Direction mindtree.Direction
	X, Y      float64
	W, H      float64
}

// Anchor returns the edge attachment point facing dir
func (b Box) Anchor(dir mindtree.Direction) (float64, float64) {
	y := b.Y + b.H/2
	if dir == mindtree.Left {
		return b.X, y
	}
	return b.X + b.W, y
}

// Edge connects a parent box to a child box by index into Layout.Boxes
type Edge struct {
	From, To  int
	Direction mindtree.Direction
}

// Layout is a positioned tree
type Layout struct {
	Boxes  []Box
	Edges  []Edge
	Width  float64
	Height float64
}

// Size returns the unscaled content size for viewport centering
func (l Layout) Size() viewport.Size {
	return viewport.Size{Width: l.Width, Height: l.Height}
}

type branch struct {
	topic    *mindtree.Node
	children []*mindtree.Node
	height   float64
}

// NewLayout positions root and its two levels of descendants. Columns from
// left to right: left content, left topics, root, right topics, right
// content. Each topic is vertically centered on its content block.
func NewLayout(root *mindtree.Node) Layout {
	if root == nil {
		root = mindtree.EmptyTree().Root
	}

	var left, right []branch
	var leftTopicW, leftContentW, rightTopicW, rightContentW float64
	for _, topic := range root.Children {
		b := branch{topic: topic, children: topic.Children}
		rows := max(len(b.children), 1)
		b.height = float64(rows*(BoxHeight+RowGap) - RowGap)

		tw := boxWidth(topic.Topic)
		var cw float64
		for _, c := range topic.Children {
			cw = max(cw, boxWidth(c.Topic))
		}

		if topic.Direction == mindtree.Left {
			left = append(left, b)
			leftTopicW, leftContentW = max(leftTopicW, tw), max(leftContentW, cw)
		} else {
			right = append(right, b)
			rightTopicW, rightContentW = max(rightTopicW, tw), max(rightContentW, cw)
		}
	}

	// Column x positions
	x := 0.0
	leftContentX := x
	x = advance(x, leftContentW)
	leftTopicX := x
	x = advance(x, leftTopicW)
	rootX := x
	rootW := boxWidth(root.Topic)
	x = advance(x, rootW)
	rightTopicX := x
	x = advance(x, rightTopicW)
	rightContentX := x
	x = advance(x, rightContentW)

	height := max(sideHeight(left), sideHeight(right), BoxHeight)

	l := Layout{Width: x - ColumnGap, Height: height}
	l.Boxes = append(l.Boxes, Box{
		ID:    root.ID,
		Label: root.Topic,
		Kind:  KindRoot,
		X:     rootX,
		Y:     (height - BoxHeight) / 2,
		W:     rootW,
		H:     BoxHeight,
	})

	l.placeSide(right, mindtree.Right, height, rightTopicX, rightTopicW, rightContentX, rightContentW)
	l.placeSide(left, mindtree.Left, height, leftTopicX, leftTopicW, leftContentX, leftContentW)
	return l
}

func (l *Layout) placeSide(branches []branch, dir mindtree.Direction, height, topicX, topicW, contentX, contentW float64) {
	y := (height - sideHeight(branches)) / 2
	for _, b := range branches {
		topicIdx := len(l.Boxes)
		l.Boxes = append(l.Boxes, l.box(b.topic, KindTopic, dir, topicX, topicW, y+(b.height-BoxHeight)/2))
		l.Edges = append(l.Edges, Edge{From: 0, To: topicIdx, Direction: dir})

		for j, c := range b.children {
			idx := len(l.Boxes)
			l.Boxes = append(l.Boxes, l.box(c, KindContent, dir, contentX, contentW, y+float64(j*(BoxHeight+RowGap))))
			l.Edges = append(l.Edges, Edge{From: topicIdx, To: idx, Direction: dir})
		}
		y += b.height + RowGap
	}
}

// box sizes a node to its label; left-side boxes hug the root side of
// their column
func (l *Layout) box(n *mindtree.Node, kind Kind, dir mindtree.Direction, colX, colW, y float64) Box {
	w := boxWidth(n.Topic)
	x := colX
	if dir == mindtree.Left {
		x = colX + colW - w
	}
	return Box{ID: n.ID, Label: n.Topic, Kind: kind, Direction: dir, X: x, Y: y, W: w, H: BoxHeight}
}

func sideHeight(branches []branch) float64 {
	if len(branches) == 0 {
		return 0
	}
	h := float64(RowGap * (len(branches) - 1))
	for _, b := range branches {
		h += b.height
	}
	return h
}

func advance(x, width float64) float64 {
	if width == 0 {
		return x
	}
	return x + width + ColumnGap
}

func boxWidth(label string) float64 {
	return float64(min(utf8.RuneCountInString(label)+2*BoxPadding, MaxBoxWidth))
}
