package domain

import (
	"fmt"
	"time"
)

// ChunkType is the structural role of a node in a document tree.
type ChunkType string

// Available chunk types.
const (
	// ChunkTypeDocument is the root node of a document.
	ChunkTypeDocument ChunkType = "document"

	// ChunkTypeChapter is a chapter (第N章) or a level-1 markdown header.
	ChunkTypeChapter ChunkType = "chapter"

	// ChunkTypeArticle is an article (第N條) or a level-2 markdown header.
	ChunkTypeArticle ChunkType = "article"

	// ChunkTypeSection is a numbered item or a deeper markdown header.
	ChunkTypeSection ChunkType = "section"

	// ChunkTypeParagraph is a paragraph-sized piece of running text.
	ChunkTypeParagraph ChunkType = "paragraph"

	// ChunkTypeDetail is a length-driven split of a larger node.
	ChunkTypeDetail ChunkType = "detail"
)

// IsValid returns true if the chunk type is recognised.
func (t ChunkType) IsValid() bool {
	switch t {
	case ChunkTypeDocument, ChunkTypeChapter, ChunkTypeArticle,
		ChunkTypeSection, ChunkTypeParagraph, ChunkTypeDetail:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t ChunkType) String() string {
	return string(t)
}

// IndexingLevel decides which vector indexes a chunk is embedded into.
type IndexingLevel string

// Available indexing levels.
const (
	// IndexingLevelSummary chunks go to the summary index only.
	IndexingLevelSummary IndexingLevel = "summary"

	// IndexingLevelDetail chunks go to the detail index only.
	IndexingLevelDetail IndexingLevel = "detail"

	// IndexingLevelBoth chunks go to both indexes.
	IndexingLevelBoth IndexingLevel = "both"
)

// IsValid returns true if the level is recognised.
func (l IndexingLevel) IsValid() bool {
	switch l {
	case IndexingLevelSummary, IndexingLevelDetail, IndexingLevelBoth:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (l IndexingLevel) String() string {
	return string(l)
}

// InSummaryIndex returns true if chunks at this level are embedded
// into the summary index.
func (l IndexingLevel) InSummaryIndex() bool {
	return l == IndexingLevelSummary || l == IndexingLevelBoth
}

// InDetailIndex returns true if chunks at this level are embedded
// into the detail index.
func (l IndexingLevel) InDetailIndex() bool {
	return l == IndexingLevelDetail || l == IndexingLevelBoth
}

// Accepts reports whether a chunk at this level may have a vector in
// the given index. index must be IndexingLevelSummary or IndexingLevelDetail.
func (l IndexingLevel) Accepts(index IndexingLevel) bool {
	switch index {
	case IndexingLevelSummary:
		return l.InSummaryIndex()
	case IndexingLevelDetail:
		return l.InDetailIndex()
	default:
		return false
	}
}

// Chunk metadata keys written by the chunker.
const (
	// MetaStructuralLabel is the marker or header text the node was cut at.
	MetaStructuralLabel = "structural_label"

	// MetaParentContext is the structural label of the node a split was cut from.
	MetaParentContext = "parent_context"

	// MetaSplitIndex is the 1-based index of a length-driven split.
	MetaSplitIndex = "split_index"

	// MetaOverlap is the number of leading characters a split shares
	// with the previous split of the same parent.
	MetaOverlap = "overlap"

	// MetaIsSynopsis is set on nodes whose content was replaced by a synopsis
	// because the full text exceeded the chunk size.
	MetaIsSynopsis = "is_synopsis"

	// MetaStrategy is the chunking strategy that produced the tree (root only).
	MetaStrategy = "strategy"

	// MetaHeaderLevel is the markdown header depth (1-6).
	MetaHeaderLevel = "header_level"
)

// Chunk is one node of a document's hierarchy tree.
type Chunk struct {
	// ID is the deterministic identifier of the chunk.
	ID ChunkID

	// DocumentID links to the owning Document.
	DocumentID DocumentID

	// Content is the text of this node.
	Content string

	// Path is the structural position from the root.
	Path HierarchyPath

	// Depth equals Path.Depth(); the root has depth 0.
	Depth int

	// Position is the pre-order index of the node within its document.
	Position int

	// Type is the structural role of the node.
	Type ChunkType

	// Level selects the vector indexes the node is embedded into.
	Level IndexingLevel

	// ParentID is empty exactly when Depth is 0.
	ParentID ChunkID

	// ChildIDs lists the direct children in document order.
	ChildIDs []ChunkID

	// SourceFile is the filename the document was read from.
	SourceFile string

	// PageNumber is the page the node starts on (1 for unpaginated text).
	PageNumber int

	// ArticleLabel is the nearest enclosing article marker, if any.
	ArticleLabel string

	// ChapterLabel is the nearest enclosing chapter marker, if any.
	ChapterLabel string

	// CharCount is the number of characters in Content.
	CharCount int

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]string

	// CreatedAt is when the chunk was persisted.
	CreatedAt time.Time
}

// HasParent returns true for every node except the root.
func (c *Chunk) HasParent() bool {
	return !c.ParentID.IsZero()
}

// HasChildren returns true if the node has direct children.
func (c *Chunk) HasChildren() bool {
	return len(c.ChildIDs) > 0
}

// IsRoot returns true for the document node.
func (c *Chunk) IsRoot() bool {
	return c.Depth == 0
}

// Validate checks the structural invariants a store relies on.
func (c *Chunk) Validate() error {
	switch {
	case c.ID.IsZero():
		return fmt.Errorf("%w: chunk has no id", ErrInvalidInput)
	case c.DocumentID == "":
		return fmt.Errorf("%w: chunk %s has no document", ErrInvalidInput, c.ID)
	case !c.Type.IsValid():
		return fmt.Errorf("%w: chunk %s has type %q", ErrInvalidInput, c.ID, c.Type)
	case !c.Level.IsValid():
		return fmt.Errorf("%w: chunk %s has level %q", ErrInvalidLevel, c.ID, c.Level)
	case c.Depth < 0:
		return fmt.Errorf("%w: chunk %s has negative depth", ErrInvalidInput, c.ID)
	case (c.Depth == 0) != c.ParentID.IsZero():
		return fmt.Errorf("%w: chunk %s at depth %d has parent %q", ErrInvalidInput, c.ID, c.Depth, c.ParentID)
	}
	return nil
}
