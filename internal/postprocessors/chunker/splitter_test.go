package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hierag/internal/core/domain"
)

func TestSplitter_ShortTextIsOnePiece(t *testing.T) {
	splits := NewSplitter(100, 10).Split("  short text \n")

	require.Len(t, splits, 1)
	assert.Equal(t, "short text", splits[0].Text)
	assert.Equal(t, 2, splits[0].Start)
	assert.Zero(t, splits[0].Overlap)
}

func TestSplitter_Empty(t *testing.T) {
	assert.Empty(t, NewSplitter(100, 10).Split(""))
	assert.Empty(t, NewSplitter(100, 10).Split(" \n\n "))
}

func TestSplitter_PrefersParagraphs(t *testing.T) {
	para := strings.Repeat("甲", 60)
	text := para + "\n\n" + para + "\n\n" + para

	splits := NewSplitter(100, 0).Split(text)

	require.Len(t, splits, 3)
	for _, s := range splits {
		assert.Equal(t, para, s.Text)
	}
}

func TestSplitter_FallsBackToSentences(t *testing.T) {
	sentence := strings.Repeat("乙", 39) + "。"
	text := strings.Repeat(sentence, 5)

	splits := NewSplitter(100, 0).Split(text)

	require.Len(t, splits, 3)
	assert.Equal(t, sentence+sentence, splits[0].Text)
	assert.True(t, strings.HasSuffix(splits[0].Text, "。"), "separator stays with its sentence")
	assert.Equal(t, sentence, splits[2].Text)
}

func TestSplitter_CharacterWindows(t *testing.T) {
	text := strings.Repeat("字", 5000)

	splits := NewSplitter(800, 100).Split(text)

	require.Len(t, splits, 7)
	for i, s := range splits {
		assert.LessOrEqual(t, domain.RuneCount(s.Text), 800)
		assert.Equal(t, i*700, s.Start)
		if i > 0 {
			assert.Equal(t, 100, s.Overlap)
		}
	}
	assert.Equal(t, 5000, splits[6].End)
}

func TestSplitter_NeverExceedsChunkSize(t *testing.T) {
	text := strings.Repeat("word ", 300) + "\n" + strings.Repeat("長", 1000) + "\n\n" + strings.Repeat("句子。", 200)

	for _, s := range NewSplitter(120, 20).Split(text) {
		assert.LessOrEqual(t, domain.RuneCount(s.Text), 120)
		assert.NotEmpty(t, strings.TrimSpace(s.Text))
	}
}

func TestSplitter_ByteStart(t *testing.T) {
	text := "ab\n\n" + strings.Repeat("字", 10)

	splits := NewSplitter(5, 0).Split(text)

	require.NotEmpty(t, splits)
	last := splits[len(splits)-1]
	assert.Equal(t, last.Text, text[last.ByteStart:last.ByteStart+len(last.Text)])
}

func TestNewSplitter_InvalidOverlap(t *testing.T) {
	s := NewSplitter(100, 100)
	assert.Less(t, s.overlap, s.chunkSize)

	s = NewSplitter(0, 0)
	assert.Equal(t, DefaultMaxChunkSize, s.chunkSize)
}

func TestSummarise(t *testing.T) {
	tests := []struct {
		name    string
		content string
		max     int
		want    string
	}{
		{"first paragraph fits", "第一段。\n\n第二段。", 10, "第一段。"},
		{"whole text fits", "短文", 10, "短文"},
		{"truncated", "一二三四五六七八九十", 4, "一二三四..."},
		{"trims surrounding space", "  \n內容\n  ", 10, "內容"},
		{"empty", "", 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarise(tt.content, tt.max))
		})
	}
}
