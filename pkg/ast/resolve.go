package ast

import (
	"strings"

	"github.com/joshuapare/fdtkit/pkg/types"
)

// Resolve finds the node at path in t. Segments match child names exactly
// and case-sensitively; "ethernet" does not match "ethernet@4033c000".
//
// A path is rooted: it starts with "/" or with "&label" to anchor at a
// labelled node. Relative paths and empty segments from doubled or trailing
// separators do not resolve. On failure the returned *types.Error names the
// first unmatched segment and its 0-based position.
func Resolve(t *Tree, path string) (*Node, error) {
	node := t.Root
	var rest string
	offset := 0
	switch {
	case strings.HasPrefix(path, LabelPrefix):
		label, tail, found := strings.Cut(path[len(LabelPrefix):], PathSeparator)
		node = t.NodeByLabel(label)
		if node == nil {
			return nil, types.NodeNotFound(path, LabelPrefix+label, 0)
		}
		if !found {
			return node, nil
		}
		rest = tail
		offset = 1
	case path == PathSeparator:
		return node, nil
	case strings.HasPrefix(path, PathSeparator):
		rest = path[len(PathSeparator):]
	default:
		seg, _, _ := strings.Cut(path, PathSeparator)
		return nil, types.NodeNotFound(path, seg, 0)
	}

	for i, seg := range strings.Split(rest, PathSeparator) {
		if seg == "" {
			return nil, types.NodeNotFound(path, seg, i+offset)
		}
		child := node.Child(seg)
		if child == nil {
			return nil, types.NodeNotFound(path, seg, i+offset)
		}
		node = child
	}
	return node, nil
}

// FindNode finds a node by path in the tree.
// Returns nil if not found.
func (t *Tree) FindNode(path string) *Node {
	n, err := Resolve(t, path)
	if err != nil {
		return nil
	}
	return n
}

// SplitPath splits a device tree path into segments. Empty segments from
// leading, trailing or doubled separators are dropped.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}

	segments := make([]string, 0)
	start := 0
	for i := range len(path) {
		if path[i] == PathSeparator[0] {
			if i > start {
				segments = append(segments, path[start:i])
			}
			start = i + 1
		}
	}
	if start < len(path) {
		segments = append(segments, path[start:])
	}

	return segments
}

// JoinPath joins a parent path and a child name.
func JoinPath(parent, name string) string {
	if parent == "" || parent == PathSeparator {
		return PathSeparator + name
	}
	return parent + PathSeparator + name
}

// BaseName returns the last segment of path ("" for the root).
func BaseName(path string) string {
	segs := SplitPath(path)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// EnsurePath returns the node at path, creating every missing segment.
func EnsurePath(t *Tree, path string) *Node {
	node := t.Root
	for _, seg := range SplitPath(path) {
		node = node.AddChild(seg)
	}
	return node
}
