package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI embeds text with the OpenAI embeddings API (or a compatible one
// via BaseURL).
type OpenAI struct {
	client    *openai.Client
	model     string
	batchSize int
	cfg       Config
	dimension atomic.Int64
}

// NewOpenAI creates an OpenAI embedder. The model defaults to
// text-embedding-3-small.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAI{
		client:    openai.NewClientWithConfig(oc),
		model:     model,
		batchSize: cfg.BatchSize,
		cfg:       cfg,
	}, nil
}

func (e *OpenAI) Name() string { return "openai" }

// Prepare is a no-op; the model is pretrained.
func (e *OpenAI) Prepare([]string) error { return nil }

// Dimension is learned from the first successful Embed.
func (e *OpenAI) Dimension() int { return int(e.dimension.Load()) }

func (e *OpenAI) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for _, batch := range batches(texts, e.batchSize) {
		var resp openai.EmbeddingResponse
		err := withRetry(ctx, e.cfg.RetryBase, permanentOpenAIError, func(ctx context.Context) error {
			var err error
			resp, err = e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Input: batch,
				Model: openai.EmbeddingModel(e.model),
			})
			return err
		})
		if err != nil {
			return nil, upstream("openai", err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("%w: openai: got %d vectors for %d inputs", ErrUpstream, len(resp.Data), len(batch))
		}

		vecs := make([][]float64, len(batch))
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(batch) {
				return nil, fmt.Errorf("%w: openai: index %d out of range", ErrUpstream, d.Index)
			}
			vecs[d.Index] = toFloat64(d.Embedding)
		}
		out = append(out, vecs...)
	}
	if len(out) > 0 {
		e.dimension.Store(int64(len(out[0])))
	}
	return out, nil
}

func permanentOpenAIError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return permanentStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return permanentStatus(reqErr.HTTPStatusCode)
	}
	return false
}

// toFloat64 converts an SDK vector and normalizes it to unit length.
func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	normalize(out)
	return out
}
