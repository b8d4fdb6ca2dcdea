// ABOUTME: Node-tree document exchanged with diagram renderers
// ABOUTME: Wraps a Tree with meta data and parses topic-analysis responses
package mindtree

import (
	"encoding/json"
	"fmt"
)

// FormatNodeTree identifies the document layout expected by renderers
const FormatNodeTree = "node_tree"

// Meta describes a rendered document
type Meta struct {
	Name    string `json:"name"`
	Author  string `json:"author"`
	Version string `json:"version"`
}

// Document is the renderer input: {meta, format: "node_tree", data: root}
type Document struct {
	Meta   Meta   `json:"meta"`
	Format string `json:"format"`
	Data   *Node  `json:"data"`
}

// NewDocument wraps a tree for rendering
func NewDocument(tree Tree) Document {
	root := tree.Root
	if root == nil {
		root = EmptyTree().Root
	}
	return Document{
		Meta:   Meta{Name: "mindscribe", Author: "mindscribe", Version: "1.0"},
		Format: FormatNodeTree,
		Data:   root,
	}
}

// AnalysisRequest is the body sent to the topic-analysis service
type AnalysisRequest struct {
	Transcript string `json:"transcript"`
}

// AnalysisResponse is the body returned by the topic-analysis service
type AnalysisResponse struct {
	Segments []Segment `json:"segments"`
}

// ParseSegments decodes a topic-analysis response body
func ParseSegments(data []byte) ([]Segment, error) {
	var resp AnalysisResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSegment, err)
	}
	for i, seg := range resp.Segments {
		if seg.TopicName == nil {
			return nil, fmt.Errorf("%w: segment %d has no topic_name", ErrInvalidSegment, i)
		}
	}
	return resp.Segments, nil
}
