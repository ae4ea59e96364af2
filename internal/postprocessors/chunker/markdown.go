package chunker

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/hierag/internal/core/domain"
)

// headerPattern matches an ATX header line; trailing #s are dropped.
var headerPattern = regexp.MustCompile(`^(#{1,6})[ \t]+(.+?)(?:[ \t]+#+)?[ \t]*$`)

// header is one markdown header found in a text.
type header struct {
	level int
	title string
	start int
	end   int // start of the next header, or end of text
}

// findHeaders returns the headers outside fenced code blocks.
func findHeaders(text string) []header {
	var headers []header
	inFence := false
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		} else if !inFence {
			if m := headerPattern.FindStringSubmatch(strings.TrimRight(line, "\n")); m != nil {
				headers = append(headers, header{
					level: len(m[1]),
					title: strings.TrimSpace(m[2]),
					start: offset,
				})
			}
		}
		offset += len(line)
	}
	for i := range headers {
		headers[i].end = len(text)
		if i+1 < len(headers) {
			headers[i].end = headers[i+1].start
		}
	}
	return headers
}

// chunkMarkdown nests each header section under the nearest preceding
// header of a lower level, or the root. A section's content runs to the
// next header of any level.
func (c *Chunker) chunkMarkdown(t *Tree, content string) {
	headers := findHeaders(content)
	if len(headers) == 0 {
		c.chunkFlat(t, 0, content, 0)
		return
	}

	c.addLead(t, 0, labelPreamble, content[:headers[0].start], "", 0)

	type open struct {
		level int
		node  int
	}
	var stack []open

	for _, h := range headers {
		for len(stack) > 0 && stack[len(stack)-1].level >= h.level {
			stack = stack[:len(stack)-1]
		}
		parent := 0
		if len(stack) > 0 {
			parent = stack[len(stack)-1].node
		}

		typ, level := headerRole(h.level)
		idx := c.addStructural(t, parent, h.title, content[h.start:h.end], h.start, Node{
			Type:  typ,
			Level: level,
			Metadata: map[string]string{
				domain.MetaStructuralLabel: h.title,
				domain.MetaHeaderLevel:     strings.Repeat("#", h.level),
			},
		})
		stack = append(stack, open{level: h.level, node: idx})
	}
}

// headerRole maps a header depth to its chunk type and indexing level.
func headerRole(level int) (domain.ChunkType, domain.IndexingLevel) {
	switch level {
	case 1:
		return domain.ChunkTypeChapter, domain.IndexingLevelSummary
	case 2:
		return domain.ChunkTypeArticle, domain.IndexingLevelBoth
	default:
		return domain.ChunkTypeSection, domain.IndexingLevelDetail
	}
}
