package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/custodia-labs/hierag/internal/core/domain"
)

// chunkFlat adds the text under parent as one "content" node when it
// fits, or as overlapping "chunk-N" pieces otherwise.
func (c *Chunker) chunkFlat(t *Tree, parent int, text string, offset int) {
	offset += len(text) - len(strings.TrimLeftFunc(text, unicode.IsSpace))
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	if domain.RuneCount(text) <= c.maxChunkSize {
		t.add(parent, labelContent, Node{
			Content: text,
			Type:    domain.ChunkTypeDetail,
			Level:   domain.IndexingLevelDetail,
			Offset:  offset,
		})
		return
	}

	for i, sp := range c.splitter.Split(text) {
		t.add(parent, fmt.Sprintf(labelChunk, i+1), Node{
			Content: sp.Text,
			Type:    domain.ChunkTypeDetail,
			Level:   domain.IndexingLevelDetail,
			Offset:  offset + sp.ByteStart,
			Metadata: map[string]string{
				domain.MetaSplitIndex: fmt.Sprint(i + 1),
				domain.MetaOverlap:    fmt.Sprint(sp.Overlap),
			},
		})
	}
}
