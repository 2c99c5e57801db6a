// Package vectorstore keeps chunk vectors in memory and ranks them by
// cosine similarity.
package vectorstore

import (
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/abhisek/eduassist/internal/chunker"
)

// DefaultTopK is used when Search is called with topK <= 0.
const DefaultTopK = 4

var (
	ErrInvalidDimension  = errors.New("invalid dimension")
	ErrLengthMismatch    = errors.New("chunks and vectors length mismatch")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Result is a chunk with its similarity to the query.
type Result struct {
	Chunk chunker.Chunk
	Score float64
}

// Memory is a brute-force in-memory vector store.
type Memory struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	chunks    []chunker.Chunk
}

func NewMemory() *Memory { return &Memory{} }

// Init sets the dimension and drops anything stored.
func (s *Memory) Init(dimension int) error {
	if dimension <= 0 {
		return ErrInvalidDimension
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	s.chunks = nil
	return nil
}

// Upsert appends chunks with their vectors. Vectors are stored normalized.
func (s *Memory) Upsert(chunks []chunker.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return ErrLengthMismatch
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return ErrDimensionMismatch
		}
	}
	for _, v := range vectors {
		s.vectors = append(s.vectors, unit(v))
	}
	s.chunks = append(s.chunks, chunks...)
	return nil
}

// Search returns up to topK chunks ordered by descending similarity.
// Ties keep insertion order.
func (s *Memory) Search(vector []float64, topK int) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(vector) != s.dimension {
		return nil, ErrDimensionMismatch
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	q := unit(vector)
	idxs := make([]int, len(s.vectors))
	scores := make([]float64, len(s.vectors))
	for i, v := range s.vectors {
		idxs[i] = i
		scores[i] = dot(v, q)
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })

	topK = min(topK, len(idxs))
	results := make([]Result, 0, topK)
	for _, j := range idxs[:topK] {
		results = append(results, Result{Chunk: s.chunks[j], Score: scores[j]})
	}
	return results, nil
}

// Len is the number of stored chunks.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func (s *Memory) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.chunks = nil
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func unit(v []float64) []float64 {
	out := make([]float64, len(v))
	norm := math.Sqrt(dot(v, v))
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
