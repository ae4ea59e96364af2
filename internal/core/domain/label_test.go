package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodePathLabel_Root(t *testing.T) {
	label, ok := EncodePathLabel(NewHierarchyPath(), 0)

	assert.Equal(t, "root", label)
	assert.True(t, ok)
}

func TestEncodePathLabel_PlainSegmentsAreKept(t *testing.T) {
	label, ok := EncodePathLabel(NewHierarchyPath("chapter_1", "part2"), 2)

	assert.Equal(t, "root.chapter_1.part2", label)
	assert.True(t, ok)
}

func TestEncodePathLabel_DistinctSiblingsNeverShareALabel(t *testing.T) {
	pairs := [][2]string{
		{"Step 1.", "Step 1:"},
		{"part-1", "part_1"},
		{"Getting Started", "Getting_Started"},
		{" a", "a"},
		{"seg_1234abcd", "x"},
	}
	for _, pair := range pairs {
		a, _ := EncodePathLabel(NewHierarchyPath(pair[0], "Details"), 2)
		b, _ := EncodePathLabel(NewHierarchyPath(pair[1], "Details"), 2)
		assert.NotEqual(t, a, b, "%q vs %q", pair[0], pair[1])
	}
}

func TestEncodePathLabel_LongSegmentIsHashed(t *testing.T) {
	long := strings.Repeat("Section", 20)
	label, ok := EncodePathLabel(NewHierarchyPath(long), 1)

	assert.True(t, ok)
	assert.Equal(t, "root.seg_", label[:len("root.seg_")])
	assert.Len(t, label, len("root.seg_")+8)
}

func TestEncodePathLabel_NonASCIISegmentsAreHashed(t *testing.T) {
	label, ok := EncodePathLabel(NewHierarchyPath("第一章", "第1條"), 2)

	parts := strings.Split(label, ".")
	assert.True(t, ok)
	assert.Len(t, parts, 3)
	assert.Equal(t, "root", parts[0])
	for _, p := range parts[1:] {
		assert.True(t, strings.HasPrefix(p, "seg_"))
		assert.Len(t, p, len("seg_")+8)
	}
	assert.NotEqual(t, parts[1], parts[2])

	again, _ := EncodePathLabel(NewHierarchyPath("第一章", "第1條"), 2)
	assert.Equal(t, label, again)
}

func TestEncodePathLabel_EmptySegmentIsInconsistent(t *testing.T) {
	label, ok := EncodePathLabel(NewHierarchyPath("a", " ", "b"), 3)

	assert.Equal(t, "root.a.b", label)
	assert.False(t, ok)
}
