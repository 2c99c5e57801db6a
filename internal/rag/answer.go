package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abhisek/eduassist/internal/cache"
	"github.com/abhisek/eduassist/internal/llm"
)

// FallbackAnswer is returned when there is no index to answer from.
const FallbackAnswer = "Please upload materials first."

var (
	// ErrNoProvider means an index exists but no model is configured.
	ErrNoProvider = errors.New("no LLM provider configured")
	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("question must not be empty")
)

// Answerer answers questions from indexed material.
type Answerer struct {
	provider llm.Provider
	registry *Registry
	cache    cache.AnswerCache
	cfg      Config
}

// NewAnswerer creates an Answerer. provider may be nil, in which case
// questions against an index fail with ErrNoProvider. A nil cache disables
// caching.
func NewAnswerer(provider llm.Provider, registry *Registry, c cache.AnswerCache, cfg Config) *Answerer {
	if c == nil {
		c = cache.Nop{}
	}
	return &Answerer{provider: provider, registry: registry, cache: c, cfg: cfg}
}

type answerOutput struct {
	Answer string `json:"answer"`
}

// Answer answers question against documentID, or the active index when
// documentID is empty. With no matching index it returns FallbackAnswer.
// Provider errors are returned to the caller.
func (a *Answerer) Answer(ctx context.Context, documentID, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	ix, ok := a.registry.Get(documentID)
	if !ok {
		return FallbackAnswer, nil
	}
	if a.provider == nil {
		return "", ErrNoProvider
	}

	key := cache.Key(ix.ID, question)
	if cached, hit, err := a.cache.Get(ctx, key); err != nil {
		slog.Warn("answer cache read failed", "document_id", ix.ID, "err", err)
	} else if hit {
		return cached, nil
	}

	results, err := ix.Retrieve(ctx, question, a.cfg.TopK)
	if err != nil {
		return "", fmt.Errorf("retrieve context: %w", err)
	}

	ctx = llm.WithPurpose(ctx, llm.PurposeAnswer)
	req := llm.Request{
		System:      answerSystemPrompt,
		Prompt:      buildAnswerPrompt(question, results),
		Schema:      AnswerSchema,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
	}

	resp, err := a.provider.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("answer generation: %w", err)
	}

	var out answerOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return "", fmt.Errorf("parse answer response: %w", err)
	}

	if err := a.cache.Set(ctx, key, out.Answer); err != nil {
		slog.Warn("answer cache write failed", "document_id", ix.ID, "err", err)
	}
	return out.Answer, nil
}
