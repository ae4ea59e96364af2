// Package chunker decomposes a document into a hierarchy of chunks.
//
// Three strategies exist. Legal text is cut at chapter (第N章), article
// (第N條) and numbered-item (一、) markers; markdown is cut at headers;
// anything else becomes a flat sequence of overlapping pieces. Nodes
// longer than the maximum chunk size are replaced by a synopsis and
// split into detail children, so every leaf fits one embedding.
package chunker

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/custodia-labs/hierag/internal/core/domain"
	"github.com/custodia-labs/hierag/internal/logger"
)

// DefaultMaxChunkSize is the default maximum number of characters per chunk.
const DefaultMaxChunkSize = 800

// DefaultOverlap is the default number of characters shared by consecutive splits.
const DefaultOverlap = 100

const (
	// documentSummaryLength caps the root node synopsis.
	documentSummaryLength = 500

	// synopsisLength caps chapter and oversized-node synopses.
	synopsisLength = 300

	// bothLevelMin and bothLevelMax bound the article length, inclusive,
	// that is embedded into both indexes.
	bothLevelMin = 200
	bothLevelMax = 1000
)

// Labels for generated nodes.
const (
	labelPreamble = "preamble"
	labelIntro    = "intro"
	labelContent  = "content"
	labelPart     = "part-%d"
	labelChunk    = "chunk-%d"
)

// Strategy names a way of building the hierarchy.
type Strategy string

// Available strategies.
const (
	// StrategyLegal cuts at chapter, article and item markers.
	StrategyLegal Strategy = "legal"

	// StrategyMarkdown cuts at markdown headers.
	StrategyMarkdown Strategy = "markdown"

	// StrategyFlat treats the document as one undifferentiated block.
	StrategyFlat Strategy = "flat"
)

// IsValid returns true if the strategy is recognised.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyLegal, StrategyMarkdown, StrategyFlat:
		return true
	default:
		return false
	}
}

// Chunker builds hierarchy trees.
type Chunker struct {
	maxChunkSize int
	overlap      int
	splitter     *Splitter
	log          *logger.Logger
}

// Option configures the Chunker.
type Option func(*Chunker)

// WithMaxChunkSize sets the maximum chunk size in characters.
func WithMaxChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.maxChunkSize = size
		}
	}
}

// WithOverlap sets the overlap between splits in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(c *Chunker) {
		c.log = log
	}
}

// New creates a Chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		maxChunkSize: DefaultMaxChunkSize,
		overlap:      DefaultOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.maxChunkSize {
		c.overlap = c.maxChunkSize / 4
	}

	c.splitter = NewSplitter(c.maxChunkSize, c.overlap)
	return c
}

// MaxChunkSize returns the configured maximum chunk size.
func (c *Chunker) MaxChunkSize() int {
	return c.maxChunkSize
}

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int {
	return c.overlap
}

// Classify picks the strategy for a document: legal when chapter or
// article markers are present, markdown when headers are present or the
// file is .md, flat otherwise.
func Classify(content, sourceName string) Strategy {
	content = normaliseNewlines(content)
	if chapterPattern.MatchString(content) || articlePattern.MatchString(content) {
		return StrategyLegal
	}
	if len(findHeaders(content)) > 0 {
		return StrategyMarkdown
	}
	if strings.EqualFold(filepath.Ext(sourceName), ".md") {
		return StrategyMarkdown
	}
	return StrategyFlat
}

// Chunk builds the hierarchy for content using the classified strategy.
func (c *Chunker) Chunk(content, sourceName string) *Tree {
	content = normaliseNewlines(content)
	t, _ := c.ChunkWith(Classify(content, sourceName), content)
	return t
}

// ChunkWith builds the hierarchy with a chosen strategy. A strategy that
// finds no structure falls back to flat chunking.
func (c *Chunker) ChunkWith(strategy Strategy, content string) (*Tree, error) {
	if !strategy.IsValid() {
		return nil, fmt.Errorf("%w: chunking strategy %q", domain.ErrUnknownStrategy, strategy)
	}
	content = normaliseNewlines(content)

	t := newTree(strategy, content, Summarise(content, documentSummaryLength))
	switch strategy {
	case StrategyLegal:
		c.chunkLegal(t, content)
	case StrategyMarkdown:
		c.chunkMarkdown(t, content)
	default:
		c.chunkFlat(t, 0, content, 0)
	}

	c.log.Debug("chunked document",
		"strategy", strategy,
		"nodes", t.Len(),
		"leaves", len(t.Leaves()))
	return t, nil
}

// addStructural adds a node cut at a structural marker. Text longer than
// the maximum becomes a summary-level synopsis with detail-level parts.
func (c *Chunker) addStructural(t *Tree, parent int, label, text string, offset int, n Node) int {
	offset += len(text) - len(strings.TrimLeftFunc(text, unicode.IsSpace))
	text = strings.TrimSpace(text)
	if domain.RuneCount(text) <= c.maxChunkSize {
		n.Content = text
		n.Offset = offset
		return t.add(parent, label, n)
	}

	n.Content = synopsis(label, text)
	n.Level = domain.IndexingLevelSummary
	n.Offset = offset
	n.Metadata = withMeta(n.Metadata, domain.MetaIsSynopsis, "true")
	idx := t.add(parent, label, n)
	c.addParts(t, idx, label, text, offset)
	return idx
}

// addParts splits text into detail-level "part-N" children of parent.
func (c *Chunker) addParts(t *Tree, parent int, context, text string, offset int) {
	for i, sp := range c.splitter.Split(text) {
		t.add(parent, fmt.Sprintf(labelPart, i+1), Node{
			Content: sp.Text,
			Type:    domain.ChunkTypeDetail,
			Level:   domain.IndexingLevelDetail,
			Offset:  offset + sp.ByteStart,
			Metadata: map[string]string{
				domain.MetaParentContext: context,
				domain.MetaSplitIndex:    fmt.Sprint(i + 1),
				domain.MetaOverlap:       fmt.Sprint(sp.Overlap),
			},
		})
	}
}

// addLead keeps text that precedes the first structural marker of a
// section. Text that is empty or only repeats the section label is dropped.
func (c *Chunker) addLead(t *Tree, parent int, label, text, sectionLabel string, offset int) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || trimmed == sectionLabel {
		return
	}
	c.addStructural(t, parent, label, trimmed, offset, Node{
		Type:  domain.ChunkTypeParagraph,
		Level: domain.IndexingLevelDetail,
	})
}

func synopsis(label, text string) string {
	s := Summarise(text, synopsisLength)
	if label == "" {
		return s
	}
	return label + "\n\n" + s
}

func withMeta(m map[string]string, key, value string) map[string]string {
	if m == nil {
		m = make(map[string]string)
	}
	m[key] = value
	return m
}

func normaliseNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
