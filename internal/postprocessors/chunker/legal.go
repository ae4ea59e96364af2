package chunker

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/hierag/internal/core/domain"
)

// Legal structure markers. Each must start a line; leading half- or
// full-width spaces are allowed.
var (
	chapterPattern = regexp.MustCompile(
		`(?m)^[ \t　]*(第[ \t]*[一二三四五六七八九十百千零〇○兩两0-9]+[ \t]*章)`)
	articlePattern = regexp.MustCompile(
		`(?m)^[ \t　]*(第[ \t]*[一二三四五六七八九十百千零〇○兩两0-9]+[ \t]*[條条](?:之[一二三四五六七八九十0-9]+)?)`)

	// Item markers of an article, outermost first. The first kind present
	// splits the article.
	itemPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^[ \t　]*(第[ \t]*[一二三四五六七八九十百千零〇○兩两0-9]+[ \t]*款)`),
		regexp.MustCompile(`(?m)^[ \t　]*([一二三四五六七八九十百千]+、)`),
		regexp.MustCompile(`(?m)^[ \t　]*([（(][一二三四五六七八九十百千]+[）)])`),
	}
)

// marker is one structural marker found in a text.
type marker struct {
	label string
	start int
	end   int // start of the next marker, or end of text
}

// findMarkers returns the markers of pattern in text with their extents.
func findMarkers(pattern *regexp.Regexp, text string) []marker {
	matches := pattern.FindAllStringSubmatchIndex(text, -1)
	markers := make([]marker, len(matches))
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		markers[i] = marker{
			label: normaliseLabel(text[m[2]:m[3]]),
			start: m[0],
			end:   end,
		}
	}
	return markers
}

// findItems returns the item markers of an article body.
func findItems(text string) []marker {
	for _, pattern := range itemPatterns {
		if items := findMarkers(pattern, text); len(items) > 0 {
			return items
		}
	}
	return nil
}

// normaliseLabel removes the optional spaces inside a marker, so
// "第 3 條" and "第3條" name the same node.
func normaliseLabel(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// chunkLegal builds chapters, articles and items under the root.
// Text without any marker is chunked flat.
func (c *Chunker) chunkLegal(t *Tree, content string) {
	if chapters := findMarkers(chapterPattern, content); len(chapters) > 0 {
		c.addLead(t, 0, labelPreamble, content[:chapters[0].start], "", 0)
		for _, ch := range chapters {
			c.chunkChapter(t, 0, ch, content[ch.start:ch.end], ch.start)
		}
		return
	}

	if articles := findMarkers(articlePattern, content); len(articles) > 0 {
		c.addLead(t, 0, labelPreamble, content[:articles[0].start], "", 0)
		c.chunkArticles(t, 0, content, articles, 0)
		return
	}

	c.chunkFlat(t, 0, content, 0)
}

// chunkChapter adds a summary-level chapter node. Its content is the
// heading line plus a synopsis of the chapter body; articles become children.
func (c *Chunker) chunkChapter(t *Tree, parent int, ch marker, text string, offset int) {
	heading, body, _ := strings.Cut(strings.TrimSpace(text), "\n")
	heading = strings.TrimSpace(heading)
	body = strings.TrimSpace(body)

	articles := findMarkers(articlePattern, text)
	n := Node{
		Type:         domain.ChunkTypeChapter,
		Level:        domain.IndexingLevelSummary,
		ChapterLabel: ch.label,
		Metadata:     map[string]string{domain.MetaStructuralLabel: ch.label},
	}

	if len(articles) == 0 {
		// A chapter without articles keeps its full text when it fits.
		c.addStructural(t, parent, ch.label, text, offset, n)
		return
	}

	n.Content = heading
	if body != "" {
		n.Content = heading + "\n\n" + Summarise(body, synopsisLength)
	}
	n.Offset = offset
	idx := t.add(parent, ch.label, n)

	lead := strings.TrimSpace(text[:articles[0].start])
	_, leadBody, _ := strings.Cut(lead, "\n")
	c.addLead(t, idx, labelIntro, leadBody, ch.label, offset)
	c.chunkArticles(t, idx, text, articles, offset)
}

func (c *Chunker) chunkArticles(t *Tree, parent int, text string, articles []marker, offset int) {
	for _, a := range articles {
		c.chunkArticle(t, parent, a.label, text[a.start:a.end], offset+a.start)
	}
}

// chunkArticle adds one article. Articles that fit become a single node,
// indexed in both indexes when of moderate length. Longer articles become a
// synopsis with numbered items or length-driven parts as children.
func (c *Chunker) chunkArticle(t *Tree, parent int, label, text string, offset int) {
	body := strings.TrimSpace(text)
	n := domain.RuneCount(body)

	if n <= c.maxChunkSize {
		level := domain.IndexingLevelDetail
		if n >= bothLevelMin && n <= bothLevelMax {
			level = domain.IndexingLevelBoth
		}
		t.add(parent, label, Node{
			Content:      body,
			Type:         domain.ChunkTypeArticle,
			Level:        level,
			Offset:       offset,
			ArticleLabel: label,
			Metadata:     map[string]string{domain.MetaStructuralLabel: label},
		})
		return
	}

	items := findItems(text)
	if len(items) == 0 {
		c.addStructural(t, parent, label, text, offset, Node{
			Type:         domain.ChunkTypeArticle,
			Level:        domain.IndexingLevelSummary,
			ArticleLabel: label,
			Metadata:     map[string]string{domain.MetaStructuralLabel: label},
		})
		return
	}

	idx := t.add(parent, label, Node{
		Content:      synopsis(label, body),
		Type:         domain.ChunkTypeArticle,
		Level:        domain.IndexingLevelSummary,
		Offset:       offset,
		ArticleLabel: label,
		Metadata: map[string]string{
			domain.MetaStructuralLabel: label,
			domain.MetaIsSynopsis:      "true",
		},
	})

	c.addLead(t, idx, labelIntro, text[:items[0].start], label, offset)
	for _, it := range items {
		c.addStructural(t, idx, it.label, text[it.start:it.end], offset+it.start, Node{
			Type:     domain.ChunkTypeSection,
			Level:    domain.IndexingLevelDetail,
			Metadata: map[string]string{domain.MetaStructuralLabel: it.label},
		})
	}
}
