// ABOUTME: Mind-map tree package
// ABOUTME: Builds the root/topic/content hierarchy from topic-analysis segments
// Package mindtree converts an ordered list of topic segments into the
// two-level tree rendered as a mind map.
//
// Segments are grouped by canonical topic name ("Category: Name" becomes
// "Name") in first-seen order. The first half of the topics (rounded up)
// branch to the right of the root, the rest to the left. Each segment in a
// group becomes a content node holding a 50 character preview.
//
// Example:
//
//	tree, err := mindtree.Build(segments)
//	doc := mindtree.NewDocument(tree)
package mindtree
