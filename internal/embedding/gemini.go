package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"google.golang.org/genai"
)

// Gemini embeds text with the Gemini embedding API.
type Gemini struct {
	client    *genai.Client
	model     string
	batchSize int
	cfg       Config
	dimension atomic.Int64
}

// NewGemini creates a Gemini embedder. The model defaults to
// text-embedding-004.
func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "text-embedding-004"
	}
	batch := cfg.BatchSize
	if batch <= 0 || batch > 100 {
		batch = 100
	}
	return &Gemini{client: client, model: model, batchSize: batch, cfg: cfg}, nil
}

func (e *Gemini) Name() string { return "gemini" }

// Prepare is a no-op; the model is pretrained.
func (e *Gemini) Prepare([]string) error { return nil }

// Dimension is learned from the first successful Embed.
func (e *Gemini) Dimension() int { return int(e.dimension.Load()) }

func (e *Gemini) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for _, batch := range batches(texts, e.batchSize) {
		contents := make([]*genai.Content, len(batch))
		for i, t := range batch {
			contents[i] = &genai.Content{Parts: []*genai.Part{{Text: t}}}
		}

		var resp *genai.EmbedContentResponse
		err := withRetry(ctx, e.cfg.RetryBase, permanentGeminiError, func(ctx context.Context) error {
			var err error
			resp, err = e.client.Models.EmbedContent(ctx, e.model, contents, nil)
			return err
		})
		if err != nil {
			return nil, upstream("gemini", err)
		}
		if len(resp.Embeddings) != len(batch) {
			return nil, fmt.Errorf("%w: gemini: got %d vectors for %d inputs", ErrUpstream, len(resp.Embeddings), len(batch))
		}
		for _, emb := range resp.Embeddings {
			out = append(out, toFloat64(emb.Values))
		}
	}
	if len(out) > 0 {
		e.dimension.Store(int64(len(out[0])))
	}
	return out, nil
}

func permanentGeminiError(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return permanentStatus(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return permanentStatus(apiErrPtr.Code)
	}
	return false
}
