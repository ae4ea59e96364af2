package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIndexingLevel_Accepts tests which indexes each level admits
func TestIndexingLevel_Accepts(t *testing.T) {
	tests := []struct {
		level   IndexingLevel
		summary bool
		detail  bool
	}{
		{IndexingLevelSummary, true, false},
		{IndexingLevelDetail, false, true},
		{IndexingLevelBoth, true, true},
		{IndexingLevel("other"), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			assert.Equal(t, tt.summary, tt.level.Accepts(IndexingLevelSummary))
			assert.Equal(t, tt.detail, tt.level.Accepts(IndexingLevelDetail))
			assert.False(t, tt.level.Accepts(IndexingLevelBoth))
		})
	}
}

func validChunk() Chunk {
	return Chunk{
		ID:         "c1",
		DocumentID: "labor",
		Path:       NewHierarchyPath("第一章"),
		Depth:      1,
		ParentID:   "root",
		Type:       ChunkTypeChapter,
		Level:      IndexingLevelSummary,
	}
}

// TestChunk_Validate tests structural checks
func TestChunk_Validate(t *testing.T) {
	c := validChunk()
	assert.NoError(t, c.Validate())

	root := Chunk{ID: "r", DocumentID: "labor", Type: ChunkTypeDocument, Level: IndexingLevelSummary}
	assert.NoError(t, root.Validate())
	assert.True(t, root.IsRoot())
	assert.False(t, root.HasParent())

	tests := []struct {
		name   string
		mutate func(*Chunk)
		want   error
	}{
		{"missing id", func(c *Chunk) { c.ID = "" }, ErrInvalidInput},
		{"missing document", func(c *Chunk) { c.DocumentID = "" }, ErrInvalidInput},
		{"bad type", func(c *Chunk) { c.Type = "clause" }, ErrInvalidInput},
		{"bad level", func(c *Chunk) { c.Level = "all" }, ErrInvalidLevel},
		{"orphan", func(c *Chunk) { c.ParentID = "" }, ErrInvalidInput},
		{"root with parent", func(c *Chunk) { c.Depth = 0 }, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validChunk()
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), tt.want)
		})
	}
}
