package chunker

import (
	"strings"
	"unicode"
)

// DefaultSeparators are tried in order: paragraph, line, sentence,
// word, then individual characters.
var DefaultSeparators = []string{"\n\n", "\n", "。", " ", ""}

// Split is one piece produced by the Splitter.
type Split struct {
	// Text is the piece with surrounding whitespace removed.
	Text string

	// Start and End are character offsets of Text in the input.
	Start, End int

	// ByteStart is the byte offset of Text in the input.
	ByteStart int

	// Overlap is how many leading characters repeat the end of the previous split.
	Overlap int
}

// span is a half-open range of character offsets.
type span struct {
	start, end int
}

func (s span) len() int {
	return s.end - s.start
}

// Splitter cuts text into pieces of at most chunkSize characters,
// preferring the coarsest separator that occurs, and repeats up to
// overlap characters between consecutive pieces.
// Separators stay attached to the end of the piece they terminate.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewSplitter creates a Splitter with DefaultSeparators.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultMaxChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: DefaultSeparators,
	}
}

// Split cuts text. Whitespace-only pieces are dropped.
func (s *Splitter) Split(text string) []Split {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	byteOffsets := make([]int, len(runes)+1)
	off := 0
	for i, r := range runes {
		byteOffsets[i] = off
		off += len(string(r))
	}
	byteOffsets[len(runes)] = off

	spans := s.split(runes, span{0, len(runes)}, s.separators)

	out := make([]Split, 0, len(spans))
	for _, sp := range spans {
		sp = trimSpan(runes, sp)
		if sp.len() == 0 {
			continue
		}
		overlap := 0
		if n := len(out); n > 0 && out[n-1].End > sp.start {
			overlap = out[n-1].End - sp.start
		}
		out = append(out, Split{
			Text:      string(runes[sp.start:sp.end]),
			Start:     sp.start,
			End:       sp.end,
			ByteStart: byteOffsets[sp.start],
			Overlap:   overlap,
		})
	}
	return out
}

// split recursively divides r[whole] using the first separator present.
func (s *Splitter) split(runes []rune, whole span, separators []string) []span {
	sep, rest := pickSeparator(runes[whole.start:whole.end], separators)

	var out, small []span
	for _, piece := range cut(runes, whole, sep) {
		if piece.len() <= s.chunkSize {
			small = append(small, piece)
			continue
		}
		if len(small) > 0 {
			out = append(out, s.merge(small)...)
			small = nil
		}
		if len(rest) == 0 {
			out = append(out, piece)
			continue
		}
		out = append(out, s.split(runes, piece, rest)...)
	}
	if len(small) > 0 {
		out = append(out, s.merge(small)...)
	}
	return out
}

// merge packs consecutive pieces into windows of at most chunkSize
// characters, carrying up to overlap characters into the next window.
func (s *Splitter) merge(pieces []span) []span {
	var windows []span
	var current []span
	total := 0

	for _, p := range pieces {
		l := p.len()
		if total+l > s.chunkSize && len(current) > 0 {
			windows = append(windows, span{current[0].start, current[len(current)-1].end})
			for total > s.overlap || (total+l > s.chunkSize && total > 0) {
				total -= current[0].len()
				current = current[1:]
			}
		}
		current = append(current, p)
		total += l
	}
	if len(current) > 0 {
		windows = append(windows, span{current[0].start, current[len(current)-1].end})
	}
	return windows
}

// pickSeparator returns the first separator found in text and the finer
// separators after it. The empty separator always matches.
func pickSeparator(text []rune, separators []string) (string, []string) {
	str := string(text)
	for i, sep := range separators {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(str, sep) {
			return sep, separators[i+1:]
		}
	}
	return "", nil
}

// cut divides whole at every occurrence of sep, keeping sep at the end of
// each piece. The empty separator cuts between characters.
func cut(runes []rune, whole span, sep string) []span {
	if sep == "" {
		pieces := make([]span, 0, whole.len())
		for i := whole.start; i < whole.end; i++ {
			pieces = append(pieces, span{i, i + 1})
		}
		return pieces
	}

	sepRunes := []rune(sep)
	var pieces []span
	start := whole.start
	for i := whole.start; i+len(sepRunes) <= whole.end; {
		if hasRunesAt(runes, i, sepRunes) {
			i += len(sepRunes)
			pieces = append(pieces, span{start, i})
			start = i
			continue
		}
		i++
	}
	if start < whole.end {
		pieces = append(pieces, span{start, whole.end})
	}
	return pieces
}

func hasRunesAt(runes []rune, i int, want []rune) bool {
	for j, r := range want {
		if runes[i+j] != r {
			return false
		}
	}
	return true
}

func trimSpan(runes []rune, sp span) span {
	for sp.start < sp.end && unicode.IsSpace(runes[sp.start]) {
		sp.start++
	}
	for sp.end > sp.start && unicode.IsSpace(runes[sp.end-1]) {
		sp.end--
	}
	return sp
}
