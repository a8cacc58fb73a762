// Package chunker splits document text into overlapping, size-bounded chunks
// along markdown headings, page breaks, paragraphs, lines, sentences and
// words, falling back to hard character cuts.
package chunker

import (
	"iter"
	"slices"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// PageBreak separates pages in extracted text.
const PageBreak = "\f"

// Chunk is one segment of a document. Start and End are rune offsets into
// the source text; Page is 1-based and zero when the text has no page breaks.
type Chunk struct {
	Index   int
	Content string
	Heading string
	Page    int
	Start   int
	End     int
}

type separator struct {
	text string
	// trailing separators stay on the end of the preceding piece
	trailing bool
}

// separators in priority order. The empty separator means hard character cuts.
var separators = []separator{
	{text: "\n# "},
	{text: "\n## "},
	{text: "\n### "},
	{text: "\n#### "},
	{text: "\n##### "},
	{text: "\n###### "},
	{text: PageBreak},
	{text: "\n\n"},
	{text: "\n"},
	{text: ". ", trailing: true},
	{text: "! ", trailing: true},
	{text: "? ", trailing: true},
	{text: " ", trailing: true},
	{text: ""},
}

// Splitter splits text into chunks.
type Splitter struct {
	chunkSize int
	overlap   int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// ChunkSize returns the configured chunk size.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Chunks returns the chunks of text in document order. Nothing is computed
// until the sequence is ranged over, and each range starts from the beginning.
func (s *Splitter) Chunks(text string) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		if strings.TrimSpace(text) == "" {
			return
		}

		var spans []span
		if runeLen(text) <= s.chunkSize {
			spans = []span{trimmed(text, 0)}
		} else {
			spans = s.split(piece{text: text}, separators)
		}

		loc := newLocator(text)
		for i, sp := range spans {
			c := loc.locate(sp)
			c.Index = i
			if !yield(c) {
				return
			}
		}
	}
}

// Split returns all chunks of text.
func (s *Splitter) Split(text string) []Chunk {
	return slices.Collect(s.Chunks(text))
}

// piece is a slice of the source text starting at byte offset off.
type piece struct {
	text string
	off  int
}

// span is trimmed chunk content and its byte offset in the source text.
type span struct {
	content string
	off     int
}

func trimmed(text string, off int) span {
	lead := len(text) - len(strings.TrimLeftFunc(text, unicode.IsSpace))
	return span{content: strings.TrimSpace(text), off: off + lead}
}

func (s *Splitter) split(p piece, seps []separator) []span {
	sep := seps[len(seps)-1]
	var rest []separator
	for i, candidate := range seps {
		if candidate.text == "" {
			sep = candidate
			break
		}
		if strings.Contains(p.text, candidate.text) {
			sep = candidate
			rest = seps[i+1:]
			break
		}
	}

	var (
		out     []span
		fitting []piece
	)
	for _, sub := range splitKeep(p, sep) {
		if runeLen(sub.text) <= s.chunkSize {
			fitting = append(fitting, sub)
			continue
		}
		if len(fitting) > 0 {
			out = append(out, s.merge(fitting)...)
			fitting = nil
		}
		if len(rest) == 0 {
			out = append(out, s.merge(splitKeep(sub, separator{}))...)
		} else {
			out = append(out, s.split(sub, rest)...)
		}
	}
	if len(fitting) > 0 {
		out = append(out, s.merge(fitting)...)
	}
	return out
}

// merge greedily packs pieces into chunks of at most chunkSize runes and
// carries up to overlap runes of trailing pieces into the next chunk.
func (s *Splitter) merge(pieces []piece) []span {
	var (
		out     []span
		current []piece
		total   int
	)

	flush := func() {
		if len(current) == 0 {
			return
		}
		var b strings.Builder
		for _, p := range current {
			b.WriteString(p.text)
		}
		if sp := trimmed(b.String(), current[0].off); sp.content != "" {
			out = append(out, sp)
		}
	}

	for _, p := range pieces {
		n := runeLen(p.text)
		if total+n > s.chunkSize && len(current) > 0 {
			flush()
			for total > s.overlap || (total+n > s.chunkSize && total > 0) {
				total -= runeLen(current[0].text)
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	flush()
	return out
}

// splitKeep splits p on sep keeping the separator text attached to a
// neighbouring piece, so the pieces are contiguous in the source.
func splitKeep(p piece, sep separator) []piece {
	if sep.text == "" {
		pieces := make([]piece, 0, len(p.text))
		for i, r := range p.text {
			pieces = append(pieces, piece{text: p.text[i : i+utf8.RuneLen(r)], off: p.off + i})
		}
		return pieces
	}

	parts := strings.Split(p.text, sep.text)
	pieces := make([]piece, 0, len(parts))
	off := p.off
	for i, part := range parts {
		text := part
		switch {
		case sep.trailing && i < len(parts)-1:
			text += sep.text
		case !sep.trailing && i > 0:
			text = sep.text + part
		}
		if text != "" {
			pieces = append(pieces, piece{text: text, off: off})
		}
		off += len(text)
	}
	return pieces
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

type heading struct {
	offset int
	title  string
}

// locator derives rune offsets, headings and page numbers for chunk spans.
type locator struct {
	text     string
	headings []heading
	breaks   []int
	byteAt   int
	runeAt   int
}

func newLocator(text string) *locator {
	l := &locator{text: text}

	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		if title, ok := headingTitle(line); ok {
			l.headings = append(l.headings, heading{offset: offset, title: title})
		}
		offset += len(line)
	}

	for i := 0; i < len(text); {
		j := strings.Index(text[i:], PageBreak)
		if j < 0 {
			break
		}
		l.breaks = append(l.breaks, i+j)
		i += j + 1
	}
	return l
}

func (l *locator) locate(sp span) Chunk {
	start := l.runeOffset(sp.off)
	c := Chunk{
		Content: sp.content,
		Start:   start,
		End:     start + runeLen(sp.content),
	}

	if k := sort.Search(len(l.headings), func(i int) bool { return l.headings[i].offset > sp.off }); k > 0 {
		c.Heading = l.headings[k-1].title
	}
	if len(l.breaks) > 0 {
		c.Page = 1 + sort.SearchInts(l.breaks, sp.off)
	}
	return c
}

// runeOffset converts a byte offset to a rune offset. Offsets usually grow
// between calls so counting resumes from the previous position.
func (l *locator) runeOffset(b int) int {
	if b < l.byteAt {
		l.byteAt, l.runeAt = 0, 0
	}
	l.runeAt += utf8.RuneCountInString(l.text[l.byteAt:b])
	l.byteAt = b
	return l.runeAt
}

func headingTitle(line string) (string, bool) {
	line = strings.TrimRight(line, "\r\n")
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 6 || level >= len(line) || line[level] != ' ' {
		return "", false
	}
	title := strings.TrimSpace(line[level+1:])
	if title == "" {
		return "", false
	}
	return title, true
}
