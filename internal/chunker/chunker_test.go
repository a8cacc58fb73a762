package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		s := New()
		assert.Equal(t, DefaultChunkSize, s.ChunkSize())
		assert.Equal(t, DefaultChunkOverlap, s.Overlap())
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		s := New(WithChunkSize(100), WithOverlap(150))
		assert.Equal(t, 25, s.Overlap())
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		s := New(WithChunkSize(0), WithOverlap(-1))
		assert.Equal(t, DefaultChunkSize, s.ChunkSize())
		assert.Equal(t, DefaultChunkOverlap, s.Overlap())
	})
}

func TestSplit_Empty(t *testing.T) {
	s := New()
	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split("  \n\t "))
}

func TestSplit_ShortTextIsOneTrimmedChunk(t *testing.T) {
	s := New()
	chunks := s.Split("\n  A short note about invoices.  \n")
	require.Len(t, chunks, 1)
	assert.Equal(t, "A short note about invoices.", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 3, chunks[0].Start)
}

func sentenceText(n int) string {
	var b strings.Builder
	for b.Len() < n {
		b.WriteString("The quick brown fox jumps over the lazy dog. ")
	}
	return b.String()[:n]
}

func TestSplit_PlainTextRespectsSize(t *testing.T) {
	s := New()
	text := sentenceText(3000)

	chunks := s.Split(text)
	require.GreaterOrEqual(t, len(chunks), 3)
	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), DefaultChunkSize, "chunk %d", i)
		assert.Equal(t, i, c.Index)
		assert.Zero(t, c.Page)
		assert.Empty(t, c.Heading)
	}
}

func TestSplit_ConsecutiveChunksOverlap(t *testing.T) {
	s := New(WithChunkSize(200), WithOverlap(50))
	chunks := s.Split(sentenceText(1000))
	require.Greater(t, len(chunks), 2)

	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		assert.Less(t, prev.Start, cur.Start)
		assert.LessOrEqual(t, cur.Start, prev.End, "chunk %d should start inside chunk %d", i, i-1)
	}
}

func TestSplit_OffsetsPointIntoSource(t *testing.T) {
	text := "# Título\n\n" + sentenceText(600) + "\n\n## Sección dos\n\n" + sentenceText(700)
	runes := []rune(text)

	for _, c := range New(WithChunkSize(300), WithOverlap(30)).Split(text) {
		require.LessOrEqual(t, c.End, len(runes))
		assert.Equal(t, c.Content, string(runes[c.Start:c.End]))
	}
}

func TestSplit_HeadingsLabelChunks(t *testing.T) {
	text := "# Intro\n" + sentenceText(150) + "\n## Details\n" + sentenceText(150)
	chunks := New(WithChunkSize(200), WithOverlap(0)).Split(text)
	require.Len(t, chunks, 2)

	assert.True(t, strings.HasPrefix(chunks[0].Content, "# Intro"))
	assert.Equal(t, "Intro", chunks[0].Heading)
	assert.True(t, strings.HasPrefix(chunks[1].Content, "## Details"))
	assert.Equal(t, "Details", chunks[1].Heading)
}

func TestSplit_PageBreaksNumberPages(t *testing.T) {
	text := sentenceText(150) + PageBreak + sentenceText(150) + PageBreak + sentenceText(150)
	chunks := New(WithChunkSize(200), WithOverlap(0)).Split(text)
	require.Len(t, chunks, 3)

	for i, c := range chunks {
		assert.Equal(t, i+1, c.Page)
		assert.NotContains(t, c.Content, PageBreak)
	}
}

func TestSplit_HardCutWithoutSeparators(t *testing.T) {
	text := strings.Repeat("x", 250)
	chunks := New(WithChunkSize(100), WithOverlap(10)).Split(text)
	require.Len(t, chunks, 3)

	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Content), 100)
	}
	assert.Equal(t, 100, len(chunks[0].Content))
	assert.Equal(t, 90, chunks[1].Start)
}

func TestSplit_MultibyteMeasuredInRunes(t *testing.T) {
	text := strings.Repeat("日本語 ", 100)
	chunks := New(WithChunkSize(40), WithOverlap(8)).Split(text)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c.Content))
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 40)
	}
}

func TestChunks_LazyAndRestartable(t *testing.T) {
	s := New(WithChunkSize(200), WithOverlap(20))
	seq := s.Chunks(sentenceText(900))

	var first []Chunk
	for c := range seq {
		first = append(first, c)
	}
	var second []Chunk
	for c := range seq {
		second = append(second, c)
	}
	assert.Equal(t, first, second)

	taken := 0
	for range seq {
		taken++
		if taken == 2 {
			break
		}
	}
	assert.Equal(t, 2, taken)
}
