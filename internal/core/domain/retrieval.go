package domain

import "strings"

// ChildPreviewLength caps how many characters of each child are shown
// when rendering a result's full context.
const ChildPreviewLength = 300

// Ellipsis marks text that was cut short.
const Ellipsis = "..."

// Context rendering markers. Downstream prompts rely on these exact strings.
const (
	markerParent  = "【上層】"
	markerCurrent = "【主要內容】"
	markerDetail  = "【下層詳細內容】"
)

// RetrievalResult is a retrieved chunk together with its surroundings.
type RetrievalResult struct {
	// Chunk is the matched node.
	Chunk Chunk

	// Score is the similarity to the query; higher is better.
	Score float64

	// Ancestors lists the enclosing nodes, nearest first.
	Ancestors []Chunk

	// Children lists the direct children in document order.
	Children []Chunk

	// Siblings lists the other children of the same parent.
	Siblings []Chunk
}

// HasAncestors returns true if any enclosing context was assembled.
func (r *RetrievalResult) HasAncestors() bool {
	return len(r.Ancestors) > 0
}

// FullContext renders the result for a language model: the ancestor
// chain from the root down, the chunk itself, then a preview of each child.
func (r *RetrievalResult) FullContext() string {
	var parts []string

	for i := len(r.Ancestors) - 1; i >= 0; i-- {
		indent := strings.Repeat("  ", len(r.Ancestors)-1-i)
		parts = append(parts, indent+markerParent+DisplayTitle(&r.Ancestors[i]))
	}

	parts = append(parts, markerCurrent+DisplayTitle(&r.Chunk)+":\n"+r.Chunk.Content+"\n")

	if len(r.Children) > 0 {
		parts = append(parts, markerDetail+":")
		for i := range r.Children {
			child := &r.Children[i]
			preview := strings.TrimSpace(child.Content)
			if RuneCount(preview) > ChildPreviewLength {
				preview = TruncateRunes(preview, ChildPreviewLength) + Ellipsis
			}
			parts = append(parts, "  - "+DisplayTitle(child)+":\n    "+preview+"\n")
		}
	}

	return strings.Join(parts, "\n")
}

// DisplayTitle returns a human-readable title for a chunk.
func DisplayTitle(c *Chunk) string {
	switch c.Type {
	case ChunkTypeDocument:
		return "文件: " + c.SourceFile
	case ChunkTypeChapter:
		if c.ChapterLabel != "" {
			firstLine, _, _ := strings.Cut(c.Content, "\n")
			firstLine = strings.TrimSpace(firstLine)
			if strings.Contains(firstLine, c.ChapterLabel) {
				return firstLine
			}
			return c.ChapterLabel
		}
	case ChunkTypeArticle:
		if c.ArticleLabel != "" {
			return c.ArticleLabel
		}
	}
	return c.Path.String()
}

// Passage is a retrieval result flattened for callers outside the core.
type Passage struct {
	// Content is the rendered context, possibly truncated.
	Content string `json:"content"`

	// Metadata describes where the passage came from.
	Metadata PassageMetadata `json:"metadata"`
}

// PassageMetadata describes a Passage.
type PassageMetadata struct {
	ChunkID      ChunkID    `json:"chunk_id"`
	DocumentID   DocumentID `json:"document_id"`
	SectionPath  string     `json:"section_path"`
	ChunkType    ChunkType  `json:"chunk_type"`
	Score        float64    `json:"similarity_score"`
	Source       string     `json:"source"`
	Article      string     `json:"article,omitempty"`
	Chapter      string     `json:"chapter,omitempty"`
	HasParents   bool       `json:"has_parents"`
	HasChildren  bool       `json:"has_children"`
	ParentCount  int        `json:"parent_count"`
	ChildCount   int        `json:"child_count"`
	SiblingCount int        `json:"sibling_count"`
}

// NewPassage flattens a result. The full context is used when the result
// has ancestors, otherwise the chunk text alone. Content longer than
// maxLength characters is cut and suffixed with "..."; maxLength <= 0
// disables truncation.
func NewPassage(r *RetrievalResult, maxLength int) Passage {
	content := r.Chunk.Content
	if r.HasAncestors() {
		content = r.FullContext()
	}
	if maxLength > 0 && RuneCount(content) > maxLength {
		content = TruncateRunes(content, maxLength) + Ellipsis
	}
	return Passage{
		Content: content,
		Metadata: PassageMetadata{
			ChunkID:      r.Chunk.ID,
			DocumentID:   r.Chunk.DocumentID,
			SectionPath:  r.Chunk.Path.String(),
			ChunkType:    r.Chunk.Type,
			Score:        r.Score,
			Source:       r.Chunk.SourceFile,
			Article:      r.Chunk.ArticleLabel,
			Chapter:      r.Chunk.ChapterLabel,
			HasParents:   len(r.Ancestors) > 0,
			HasChildren:  len(r.Children) > 0,
			ParentCount:  len(r.Ancestors),
			ChildCount:   len(r.Children),
			SiblingCount: len(r.Siblings),
		},
	}
}
