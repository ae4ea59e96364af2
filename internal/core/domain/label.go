package domain

import (
	"crypto/md5" //nolint:gosec // short stable label, not a security boundary
	"encoding/hex"
	"strings"
)

const (
	// LabelRoot is the first element of every encoded path label.
	LabelRoot = "root"

	// labelHashPrefix marks a hashed segment.
	labelHashPrefix = "seg_"

	// labelPlainMaxLen bounds segments kept verbatim, well under the ltree
	// label limit.
	labelPlainMaxLen = 64

	// labelHashLen is how many hex digits of the digest are kept.
	labelHashLen = 8
)

// EncodePathLabel encodes a hierarchy path as a dot-separated label
// usable by prefix-matching indexes (ltree in PostgreSQL).
//
// A segment made only of ASCII letters, digits and underscores, at most
// 64 characters long and not starting with "seg_", is kept as is. Any
// other segment becomes "seg_" plus the first 8 hex digits of its MD5, so
// "part-1" and "part_1" get different labels. Blank segments are dropped,
// and the returned consistent flag is false whenever the label no longer
// has depth+1 elements.
func EncodePathLabel(path HierarchyPath, depth int) (label string, consistent bool) {
	parts := []string{LabelRoot}
	for _, segment := range path.segments {
		if encoded := encodeLabelSegment(segment); encoded != "" {
			parts = append(parts, encoded)
		}
	}
	return strings.Join(parts, "."), len(parts) == depth+1
}

func encodeLabelSegment(segment string) string {
	if strings.TrimSpace(segment) == "" {
		return ""
	}
	if isPlainLabel(segment) {
		return segment
	}
	sum := md5.Sum([]byte(segment)) //nolint:gosec // see import
	return labelHashPrefix + hex.EncodeToString(sum[:])[:labelHashLen]
}

func isPlainLabel(segment string) bool {
	if len(segment) > labelPlainMaxLen || strings.HasPrefix(segment, labelHashPrefix) {
		return false
	}
	for i := 0; i < len(segment); i++ {
		c := segment[i]
		if c != '_' && !('a' <= c && c <= 'z') && !('A' <= c && c <= 'Z') && !('0' <= c && c <= '9') {
			return false
		}
	}
	return true
}
