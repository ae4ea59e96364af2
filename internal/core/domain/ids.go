package domain

import (
	"crypto/sha1" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// chunkIDContentPrefix is how many leading characters of the content
// take part in the chunk fingerprint.
const chunkIDContentPrefix = 100

// ChunkID identifies a chunk. It is derived from the chunk's source,
// hierarchy path and leading content, so re-chunking identical input
// yields identical IDs.
type ChunkID string

// NewChunkID computes the deterministic ID for a chunk.
func NewChunkID(sourceFile string, path HierarchyPath, content string) ChunkID {
	key := sourceFile + "|" + path.String() + "|" + TruncateRunes(content, chunkIDContentPrefix)
	sum := sha1.Sum([]byte(key)) //nolint:gosec // see import
	return ChunkID(hex.EncodeToString(sum[:]))
}

// String returns the hex digest.
func (id ChunkID) String() string {
	return string(id)
}

// IsZero returns true for the empty ID.
func (id ChunkID) IsZero() bool {
	return id == ""
}

// DocumentID identifies a document. It is the source filename without
// directory or extension.
type DocumentID string

// DocumentIDFromFilename derives a DocumentID from a source path.
func DocumentIDFromFilename(filename string) (DocumentID, error) {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("%w: empty filename", ErrInvalidInput)
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return DocumentID(stem), nil
}

// String returns the raw identifier.
func (id DocumentID) String() string {
	return string(id)
}

// TruncateRunes returns at most n leading characters of s.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// RuneCount returns the number of characters in s.
func RuneCount(s string) int {
	return len([]rune(s))
}
