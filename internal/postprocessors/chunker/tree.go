package chunker

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/hierag/internal/core/domain"
)

// noParent marks the root node.
const noParent = -1

// pageBreak separates pages in text extracted from paginated formats.
const pageBreak = "\f"

// Node is one element of a Tree. Nodes reference each other by index
// into Tree.Nodes, so the tree has no pointer cycles.
type Node struct {
	// Content is the text of the node.
	Content string

	// Path is the structural position from the root.
	Path domain.HierarchyPath

	// Type is the structural role.
	Type domain.ChunkType

	// Level selects the vector indexes.
	Level domain.IndexingLevel

	// Parent is the index of the parent node, or -1 for the root.
	Parent int

	// Children are indexes of the direct children in document order.
	Children []int

	// Offset is the byte offset in the source where the node starts.
	Offset int

	// ArticleLabel is the nearest enclosing article marker.
	ArticleLabel string

	// ChapterLabel is the nearest enclosing chapter marker.
	ChapterLabel string

	// Metadata holds chunker annotations (see domain.Meta* keys).
	Metadata map[string]string
}

// Tree is the in-memory hierarchy produced for one document.
// Nodes are stored in pre-order: a parent always precedes its children.
type Tree struct {
	// Strategy is the chunking strategy that built the tree.
	Strategy Strategy

	// Nodes holds every node; index 0 is the root.
	Nodes []Node

	source string
	labels map[int]map[string]int
}

// newTree creates a tree holding only the root node.
func newTree(strategy Strategy, source, rootContent string) *Tree {
	t := &Tree{
		Strategy: strategy,
		source:   source,
		labels:   make(map[int]map[string]int),
	}
	t.Nodes = append(t.Nodes, Node{
		Content:  rootContent,
		Type:     domain.ChunkTypeDocument,
		Level:    domain.IndexingLevelSummary,
		Parent:   noParent,
		Metadata: map[string]string{domain.MetaStrategy: string(strategy)},
	})
	return t
}

// Root returns the document node.
func (t *Tree) Root() *Node {
	return &t.Nodes[0]
}

// Len returns the number of nodes including the root.
func (t *Tree) Len() int {
	return len(t.Nodes)
}

// ChildrenOf returns the direct children of node i.
func (t *Tree) ChildrenOf(i int) []*Node {
	out := make([]*Node, 0, len(t.Nodes[i].Children))
	for _, c := range t.Nodes[i].Children {
		out = append(out, &t.Nodes[c])
	}
	return out
}

// Find returns the node at path, or nil.
func (t *Tree) Find(path domain.HierarchyPath) *Node {
	for i := range t.Nodes {
		if t.Nodes[i].Path.Equal(path) {
			return &t.Nodes[i]
		}
	}
	return nil
}

// Leaves returns the indexes of nodes without children, in document order.
func (t *Tree) Leaves() []int {
	var leaves []int
	for i := range t.Nodes {
		if i > 0 && len(t.Nodes[i].Children) == 0 {
			leaves = append(leaves, i)
		}
	}
	return leaves
}

// add attaches n under parent and returns its index. Labels are made
// unique among siblings by suffixing "#2", "#3" and so on, so a path
// always names exactly one node. Chapter and article labels are
// inherited from the parent when n does not set its own.
func (t *Tree) add(parent int, label string, n Node) int {
	label = strings.TrimSpace(label)
	seen := t.labels[parent]
	if seen == nil {
		seen = make(map[string]int)
		t.labels[parent] = seen
	}
	seen[label]++
	if count := seen[label]; count > 1 {
		label = fmt.Sprintf("%s#%d", label, count)
	}

	p := &t.Nodes[parent]
	n.Path = p.Path.Append(label)
	n.Parent = parent
	if n.ChapterLabel == "" {
		n.ChapterLabel = p.ChapterLabel
	}
	if n.ArticleLabel == "" {
		n.ArticleLabel = p.ArticleLabel
	}
	if n.Metadata == nil {
		n.Metadata = make(map[string]string)
	}

	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, n)
	t.Nodes[parent].Children = append(t.Nodes[parent].Children, idx)
	return idx
}

// Flatten converts the tree into persistable chunks in pre-order,
// deriving every ID and parent/child link.
func (t *Tree) Flatten(documentID domain.DocumentID, sourceFile string) []domain.Chunk {
	ids := make([]domain.ChunkID, len(t.Nodes))
	for i := range t.Nodes {
		ids[i] = domain.NewChunkID(sourceFile, t.Nodes[i].Path, t.Nodes[i].Content)
	}

	chunks := make([]domain.Chunk, len(t.Nodes))
	for i := range t.Nodes {
		n := &t.Nodes[i]
		c := domain.Chunk{
			ID:           ids[i],
			DocumentID:   documentID,
			Content:      n.Content,
			Path:         n.Path,
			Depth:        n.Path.Depth(),
			Position:     i,
			Type:         n.Type,
			Level:        n.Level,
			SourceFile:   sourceFile,
			PageNumber:   t.pageAt(n.Offset),
			ArticleLabel: n.ArticleLabel,
			ChapterLabel: n.ChapterLabel,
			CharCount:    domain.RuneCount(n.Content),
			Metadata:     make(map[string]string, len(n.Metadata)),
		}
		for k, v := range n.Metadata {
			c.Metadata[k] = v
		}
		if n.Parent != noParent {
			c.ParentID = ids[n.Parent]
		}
		for _, child := range n.Children {
			c.ChildIDs = append(c.ChildIDs, ids[child])
		}
		chunks[i] = c
	}
	return chunks
}

// pageAt returns the 1-based page containing byte offset off.
func (t *Tree) pageAt(off int) int {
	if off <= 0 || off > len(t.source) {
		return 1
	}
	return 1 + strings.Count(t.source[:off], pageBreak)
}
