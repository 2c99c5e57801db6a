// Package embedding turns text into vectors for similarity search.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoTokens means the text has nothing to index once stopwords and
	// punctuation are dropped.
	ErrNoTokens = errors.New("no indexable terms")
	// ErrUpstream marks a failure of a remote embedding API.
	ErrUpstream = errors.New("embedding provider failed")
)

// Embedder converts text into numeric vectors.
// Implementations may need a preparation pass over the corpus before Embed.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	// Dimension is the vector length, or 0 if not yet known.
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Factory builds a fresh Embedder. Each index owns its embedder because
// corpus-dependent embedders (tf-idf) carry per-document state.
type Factory func() (Embedder, error)

// Config selects and configures an embedder.
type Config struct {
	// Provider is "tfidf" (default), "openai" or "gemini".
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	// BatchSize caps texts per remote request.
	BatchSize int `yaml:"batch_size"`
	// RetryBase is the first backoff delay for remote calls.
	RetryBase time.Duration `yaml:"retry_base"`
}

// DefaultConfig returns the local tf-idf configuration.
func DefaultConfig() Config {
	return Config{
		Provider:  "tfidf",
		BatchSize: 96,
		RetryBase: 500 * time.Millisecond,
	}
}

// NewFactory validates cfg and returns a constructor for it.
func NewFactory(cfg Config) (Factory, error) {
	switch cfg.Provider {
	case "", "tfidf":
		return func() (Embedder, error) { return NewTFIDF(), nil }, nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai embeddings need an API key")
		}
		return func() (Embedder, error) {
			e, err := NewOpenAI(cfg)
			if err != nil {
				return nil, err
			}
			return e, nil
		}, nil
	case "gemini":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini embeddings need an API key")
		}
		return func() (Embedder, error) {
			e, err := NewGemini(context.Background(), cfg)
			if err != nil {
				return nil, err
			}
			return e, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// batches splits texts into groups of at most size.
func batches(texts []string, size int) [][]string {
	if size <= 0 {
		size = len(texts)
	}
	var out [][]string
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		out = append(out, texts[start:end])
	}
	return out
}
