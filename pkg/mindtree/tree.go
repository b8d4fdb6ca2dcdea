// ABOUTME: Topic tree builder for the mind-map diagram
// ABOUTME: Groups segments by canonical topic and assigns left/right layout
package mindtree

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// RootID is the id of the fixed root node
	RootID = "root"

	// RootTitle is the label of the fixed root node
	RootTitle = "Video Topics"

	// PreviewLength is the number of characters kept from a segment's content
	PreviewLength = 50

	// Ellipsis is appended to every content preview
	Ellipsis = "..."
)

// ErrInvalidSegment reports a malformed topic-analysis segment
var ErrInvalidSegment = errors.New("invalid topic segment")

// Direction places a branch on one side of the root
type Direction string

const (
	Left  Direction = "left"
	Right Direction = "right"
)

// Segment is one topic-analysis result. TopicName is a pointer so a missing
// field can be told apart from an empty one.
type Segment struct {
	TopicName *string  `json:"topic_name"`
	Content   []string `json:"content"`
}

// NewSegment builds a segment with a topic name
func NewSegment(topic string, content ...string) Segment {
	return Segment{TopicName: &topic, Content: content}
}

// Node is a diagram node. The root has no direction; topic and content
// nodes always do.
type Node struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Direction Direction `json:"direction,omitempty"`
	Children  []*Node   `json:"children,omitempty"`
}

// Tree is the root node plus its two levels of descendants
type Tree struct {
	Root *Node
}

// EmptyTree returns the tree shown before any analysis
func EmptyTree() Tree {
	return Tree{Root: &Node{ID: RootID, Topic: RootTitle}}
}

// TopicCount returns the number of topic nodes
func (t Tree) TopicCount() int {
	if t.Root == nil {
		return 0
	}
	return len(t.Root.Children)
}

// CanonicalName strips an optional "Category:" prefix from a topic name and
// trims the remainder. Names without a colon are returned untouched, so
// " Y " and "Y" stay distinct topics.
func CanonicalName(name string) string {
	if i := strings.Index(name, ":"); i >= 0 {
		return strings.TrimSpace(name[i+1:])
	}
	return name
}

// Preview returns the first PreviewLength characters of the first content
// item followed by an ellipsis, even when nothing was cut.
func Preview(content []string) string {
	if len(content) == 0 {
		return Ellipsis
	}
	runes := []rune(content[0])
	if len(runes) > PreviewLength {
		runes = runes[:PreviewLength]
	}
	return string(runes) + Ellipsis
}

// DirectionFor returns the side of the n-th (1-based) of total topic nodes.
// The first ceil(total/2) go right, the rest left.
func DirectionFor(n, total int) Direction {
	if n <= (total+1)/2 {
		return Right
	}
	return Left
}

type group struct {
	name     string
	segments []Segment
}

// Build groups segments by canonical topic name in first-seen order and
// produces the two-level tree. Empty input yields EmptyTree().
func Build(segments []Segment) (Tree, error) {
	tree := EmptyTree()
	if len(segments) == 0 {
		return tree, nil
	}

	var groups []*group
	index := make(map[string]*group)
	for i, seg := range segments {
		if seg.TopicName == nil {
			return Tree{}, fmt.Errorf("%w: segment %d has no topic_name", ErrInvalidSegment, i)
		}
		name := CanonicalName(*seg.TopicName)
		g, ok := index[name]
		if !ok {
			g = &group{name: name}
			index[name] = g
			groups = append(groups, g)
		}
		g.segments = append(g.segments, seg)
	}

	total := len(groups)
	for i, g := range groups {
		n := i + 1
		dir := DirectionFor(n, total)
		topic := &Node{
			ID:        fmt.Sprintf("topic_%d", n),
			Topic:     g.name,
			Direction: dir,
			Children:  make([]*Node, 0, len(g.segments)),
		}
		for j, seg := range g.segments {
			topic.Children = append(topic.Children, &Node{
				ID:        fmt.Sprintf("content_%d_%d", n, j),
				Topic:     Preview(seg.Content),
				Direction: dir,
			})
		}
		tree.Root.Children = append(tree.Root.Children, topic)
	}

	return tree, nil
}
