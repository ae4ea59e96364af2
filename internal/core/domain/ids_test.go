package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunkID_Deterministic(t *testing.T) {
	path := NewHierarchyPath("第一章", "第2條")

	a := NewChunkID("labor.md", path, "第2條 本法用詞定義如下")
	b := NewChunkID("labor.md", path, "第2條 本法用詞定義如下")

	assert.Equal(t, a, b)
	assert.Len(t, a.String(), 40)
}

func TestNewChunkID_DependsOnEveryInput(t *testing.T) {
	path := NewHierarchyPath("第一章")
	base := NewChunkID("a.md", path, "content")

	assert.NotEqual(t, base, NewChunkID("b.md", path, "content"))
	assert.NotEqual(t, base, NewChunkID("a.md", NewHierarchyPath("第二章"), "content"))
	assert.NotEqual(t, base, NewChunkID("a.md", path, "other"))
}

func TestNewChunkID_OnlyLeadingContentCounts(t *testing.T) {
	prefix := ""
	for i := 0; i < 100; i++ {
		prefix += "字"
	}
	path := NewHierarchyPath("part-1")

	a := NewChunkID("a.txt", path, prefix+"甲")
	b := NewChunkID("a.txt", path, prefix+"乙")

	assert.Equal(t, a, b)
}

func TestDocumentIDFromFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     DocumentID
	}{
		{"plain", "labor_standards.md", "labor_standards"},
		{"with directory", "/data/laws/勞動基準法.txt", "勞動基準法"},
		{"multiple dots", "manual.v2.md", "manual.v2"},
		{"no extension", "README", "README"},
		{"dotfile", ".notes", ".notes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DocumentIDFromFilename(tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDocumentIDFromFilename_Empty(t *testing.T) {
	_, err := DocumentIDFromFilename("  ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "勞動", TruncateRunes("勞動基準法", 2))
	assert.Equal(t, "勞動基準法", TruncateRunes("勞動基準法", 10))
	assert.Equal(t, "", TruncateRunes("abc", 0))
	assert.Equal(t, 5, RuneCount("勞動基準法"))
}
