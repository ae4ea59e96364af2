package domain

import "strings"

// pathSeparator joins segments in the string form of a HierarchyPath.
const pathSeparator = "/"

// HierarchyPath is the ordered list of structural labels from the root
// to a node, e.g. ["第一章", "第3條", "part-2"]. The root has an empty path.
// Values are immutable: every method returns a new path.
type HierarchyPath struct {
	segments []string
}

// NewHierarchyPath builds a path from the given segments.
func NewHierarchyPath(segments ...string) HierarchyPath {
	if len(segments) == 0 {
		return HierarchyPath{}
	}
	return HierarchyPath{segments: append([]string(nil), segments...)}
}

// ParseHierarchyPath is the inverse of String for labels without "/".
func ParseHierarchyPath(s string) HierarchyPath {
	s = strings.Trim(s, pathSeparator)
	if s == "" {
		return HierarchyPath{}
	}
	return HierarchyPath{segments: strings.Split(s, pathSeparator)}
}

// Segments returns a copy of the path's labels.
func (p HierarchyPath) Segments() []string {
	return append([]string(nil), p.segments...)
}

// Depth returns the number of segments; the root has depth 0.
func (p HierarchyPath) Depth() int {
	return len(p.segments)
}

// IsRoot returns true for the empty path.
func (p HierarchyPath) IsRoot() bool {
	return len(p.segments) == 0
}

// Last returns the final segment, or "" for the root.
func (p HierarchyPath) Last() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Parent returns the path without its final segment.
// The parent of the root is the root.
func (p HierarchyPath) Parent() HierarchyPath {
	if len(p.segments) <= 1 {
		return HierarchyPath{}
	}
	return NewHierarchyPath(p.segments[:len(p.segments)-1]...)
}

// Append returns a new path with label added as the final segment.
func (p HierarchyPath) Append(label string) HierarchyPath {
	segments := make([]string, len(p.segments), len(p.segments)+1)
	copy(segments, p.segments)
	return HierarchyPath{segments: append(segments, label)}
}

// Prefix returns the first n segments.
func (p HierarchyPath) Prefix(n int) HierarchyPath {
	if n <= 0 {
		return HierarchyPath{}
	}
	if n >= len(p.segments) {
		return p
	}
	return NewHierarchyPath(p.segments[:n]...)
}

// IsAncestorOf reports whether p is a strict prefix of other.
func (p HierarchyPath) IsAncestorOf(other HierarchyPath) bool {
	if len(p.segments) >= len(other.segments) {
		return false
	}
	for i, s := range p.segments {
		if other.segments[i] != s {
			return false
		}
	}
	return true
}

// Equal reports whether both paths have the same segments.
func (p HierarchyPath) Equal(other HierarchyPath) bool {
	if len(p.segments) != len(other.segments) {
		return false
	}
	for i, s := range p.segments {
		if other.segments[i] != s {
			return false
		}
	}
	return true
}

// String joins the segments with "/". The root renders as "".
func (p HierarchyPath) String() string {
	return strings.Join(p.segments, pathSeparator)
}

// key is an unambiguous map key for the path, safe for labels that
// themselves contain the separator.
func (p HierarchyPath) key() string {
	return strings.Join(p.segments, "\x00")
}
