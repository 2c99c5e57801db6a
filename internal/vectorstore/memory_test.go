package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/eduassist/internal/chunker"
)

func chunks(texts ...string) []chunker.Chunk {
	out := make([]chunker.Chunk, len(texts))
	for i, t := range texts {
		out[i] = chunker.Chunk{Index: i, Text: t}
	}
	return out
}

func TestMemory_InitRejectsBadDimension(t *testing.T) {
	s := NewMemory()
	assert.ErrorIs(t, s.Init(0), ErrInvalidDimension)
}

func TestMemory_UpsertValidates(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Init(2))
	assert.ErrorIs(t, s.Upsert(chunks("a"), nil), ErrLengthMismatch)
	assert.ErrorIs(t, s.Upsert(chunks("a"), [][]float64{{1, 0, 0}}), ErrDimensionMismatch)
	assert.Equal(t, 0, s.Len())
}

func TestMemory_SearchRanksByCosine(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Init(2))
	require.NoError(t, s.Upsert(chunks("east", "north", "northeast"), [][]float64{
		{10, 0},
		{0, 3},
		{1, 1},
	}))

	res, err := s.Search([]float64{0, 5}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "north", res[0].Chunk.Text)
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
	assert.Equal(t, "northeast", res[1].Chunk.Text)
}

func TestMemory_SearchDefaultsAndClamps(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Init(1))
	require.NoError(t, s.Upsert(chunks("a", "b"), [][]float64{{1}, {1}}))

	res, err := s.Search([]float64{1}, 0)
	require.NoError(t, err)
	assert.Len(t, res, 2)
	// Equal scores keep insertion order.
	assert.Equal(t, "a", res[0].Chunk.Text)

	_, err = s.Search([]float64{1, 2}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestMemory_ClearAndReinit(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Init(1))
	require.NoError(t, s.Upsert(chunks("a"), [][]float64{{1}}))
	s.Clear()
	assert.Equal(t, 0, s.Len())

	require.NoError(t, s.Init(3))
	res, err := s.Search([]float64{1, 0, 0}, 4)
	require.NoError(t, err)
	assert.Empty(t, res)
}
