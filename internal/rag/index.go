// Package rag builds searchable indexes over uploaded material and answers
// questions against them.
package rag

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/eduassist/internal/chunker"
	"github.com/abhisek/eduassist/internal/embedding"
	"github.com/abhisek/eduassist/internal/vectorstore"
)

// ErrEmptyDocument is returned when a document has no indexable text.
var ErrEmptyDocument = errors.New("document has no text")

// Index is the searchable form of one document.
type Index struct {
	ID        string
	Filename  string
	CreatedAt time.Time
	Chunks    int

	embedder embedding.Embedder
	store    *vectorstore.Memory
	lastUsed atomic.Int64
}

func (ix *Index) touch(now time.Time) { ix.lastUsed.Store(now.UnixNano()) }

// LastUsed is when the index was last built or queried.
func (ix *Index) LastUsed() time.Time { return time.Unix(0, ix.lastUsed.Load()).UTC() }

// Retrieve returns the k chunks most similar to query.
func (ix *Index) Retrieve(ctx context.Context, query string, k int) ([]vectorstore.Result, error) {
	vecs, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vecs))
	}
	return ix.store.Search(vecs[0], k)
}

// Builder turns raw text into an Index.
type Builder struct {
	splitter    *chunker.RecursiveSplitter
	newEmbedder embedding.Factory
	now         func() time.Time
}

// NewBuilder creates a Builder using the chunking settings in cfg.
func NewBuilder(factory embedding.Factory, cfg Config) *Builder {
	return &Builder{
		splitter:    chunker.NewRecursiveSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		newEmbedder: factory,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Build splits text, embeds the chunks and loads them into a fresh index
// with a random id.
func (b *Builder) Build(ctx context.Context, filename, text string) (*Index, error) {
	return b.BuildID(ctx, uuid.NewString(), filename, text)
}

// BuildID is Build with a caller-chosen index id.
func (b *Builder) BuildID(ctx context.Context, id, filename, text string) (*Index, error) {
	chunks := b.splitter.Split(text)
	if len(chunks) == 0 {
		return nil, ErrEmptyDocument
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	emb, err := b.newEmbedder()
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	if err := emb.Prepare(texts); err != nil {
		if errors.Is(err, embedding.ErrNoTokens) {
			return nil, fmt.Errorf("%w: %w", ErrEmptyDocument, err)
		}
		return nil, fmt.Errorf("prepare %s embedder: %w", emb.Name(), err)
	}
	vecs, err := emb.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vecs) != len(chunks) || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vecs), len(chunks))
	}

	store := vectorstore.NewMemory()
	if err := store.Init(len(vecs[0])); err != nil {
		return nil, err
	}
	if err := store.Upsert(chunks, vecs); err != nil {
		return nil, fmt.Errorf("load vectors: %w", err)
	}

	now := b.now()
	ix := &Index{
		ID:        id,
		Filename:  filename,
		CreatedAt: now,
		Chunks:    len(chunks),
		embedder:  emb,
		store:     store,
	}
	ix.touch(now)
	return ix, nil
}
