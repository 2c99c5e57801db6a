package rag

import (
	"time"

	"github.com/abhisek/eduassist/internal/chunker"
)

// Config holds retrieval and answer generation settings.
type Config struct {
	ChunkSize    int           `yaml:"chunk_size"`
	ChunkOverlap int           `yaml:"chunk_overlap"`
	TopK         int           `yaml:"top_k"`
	MaxTokens    int           `yaml:"max_tokens"`
	Temperature  float64       `yaml:"temperature"`
	IndexMaxIdle time.Duration `yaml:"index_max_idle"`
	ReapInterval time.Duration `yaml:"reap_interval"`
}

// DefaultConfig returns sensible defaults for retrieval.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    chunker.DefaultChunkSize,
		ChunkOverlap: chunker.DefaultChunkOverlap,
		TopK:         4,
		MaxTokens:    1024,
		Temperature:  0.7,
		IndexMaxIdle: 24 * time.Hour,
		ReapInterval: 10 * time.Minute,
	}
}
