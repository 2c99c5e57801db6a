package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSplit_Blank(t *testing.T) {
	s := NewRecursiveSplitter(100, 10)
	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split("  \n\n \n "))
}

func TestSplit_ShortTextIsOneChunk(t *testing.T) {
	s := NewRecursiveSplitter(DefaultChunkSize, DefaultChunkOverlap)
	chunks := s.Split("  Cells are the basic unit of life.\n")
	require.Len(t, chunks, 1)
	assert.Equal(t, "Cells are the basic unit of life.", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	p1 := strings.Repeat("alpha ", 10)
	p2 := strings.Repeat("beta ", 10)
	s := NewRecursiveSplitter(80, 0)

	chunks := s.Split(p1 + "\n\n" + p2)
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.TrimSpace(p1), chunks[0].Text)
	assert.Equal(t, strings.TrimSpace(p2), chunks[1].Text)
}

func TestSplit_OverlapCarriesWords(t *testing.T) {
	var words []string
	for i := 0; i < 60; i++ {
		words = append(words, fmt.Sprintf("w%03d", i))
	}
	text := strings.Join(words, " ")
	s := NewRecursiveSplitter(50, 20)

	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 50, "chunk %d too long", i)
		assert.Equal(t, i, c.Index)
	}
	for i := 1; i < len(chunks); i++ {
		first := strings.Fields(chunks[i].Text)[0]
		assert.Contains(t, chunks[i-1].Text, first, "chunk %d does not overlap its predecessor", i)
	}

	// Every word survives, in order.
	joined := strings.Join(func() []string {
		var all []string
		for _, c := range chunks {
			all = append(all, c.Text)
		}
		return all
	}(), " ")
	last := -1
	for _, w := range words {
		idx := strings.Index(joined, w)
		require.GreaterOrEqual(t, idx, 0, "word %s missing", w)
		assert.Greater(t, idx, last, "word %s out of order", w)
		last = idx
	}
}

func TestSplit_CountsRunesNotBytes(t *testing.T) {
	text := strings.Repeat("ж", 30)
	s := NewRecursiveSplitter(10, 0)

	chunks := s.Split(text)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.Equal(t, 10, utf8.RuneCountInString(c.Text))
	}
}

func TestNewRecursiveSplitter_Clamps(t *testing.T) {
	s := NewRecursiveSplitter(0, -5)
	assert.Equal(t, DefaultChunkSize, s.ChunkSize)
	assert.Equal(t, 0, s.ChunkOverlap)

	s = NewRecursiveSplitter(10, 50)
	assert.Equal(t, 9, s.ChunkOverlap)
}

func TestSplit_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		size := rapid.IntRange(20, 300).Draw(rt, "size")
		overlap := rapid.IntRange(0, size/2).Draw(rt, "overlap")
		word := rapid.StringMatching(`[a-zа-я]{1,12}`)
		sep := rapid.SampledFrom([]string{" ", " ", " ", "\n", "\n\n"})

		var b strings.Builder
		n := rapid.IntRange(0, 200).Draw(rt, "words")
		for i := 0; i < n; i++ {
			if i > 0 {
				b.WriteString(sep.Draw(rt, "sep"))
			}
			b.WriteString(word.Draw(rt, "word"))
		}
		text := b.String()

		chunks := NewRecursiveSplitter(size, overlap).Split(text)
		for i, c := range chunks {
			if got := utf8.RuneCountInString(c.Text); got > size {
				rt.Fatalf("chunk %d has %d runes, limit %d", i, got, size)
			}
			if strings.TrimSpace(c.Text) != c.Text || c.Text == "" {
				rt.Fatalf("chunk %d not trimmed: %q", i, c.Text)
			}
		}
		if strings.TrimSpace(text) != "" && len(chunks) == 0 {
			rt.Fatalf("non-blank text produced no chunks")
		}
	})
}
