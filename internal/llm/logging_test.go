package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abhisek/eduassist/internal/store"
)

// fakeEventRepo records appended events in memory.
type fakeEventRepo struct {
	mu     sync.Mutex
	events []store.LLMRequestEventData
	err    error
}

func (f *fakeEventRepo) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, data)
	return nil
}

func (f *fakeEventRepo) QueryLLMEvents(context.Context, store.QueryOpts) ([]store.LLMRequestEvent, error) {
	return nil, nil
}

func (f *fakeEventRepo) GetLLMEvent(context.Context, int64) (*store.LLMRequestEvent, error) {
	return nil, nil
}

func (f *fakeEventRepo) LLMUsageByPurpose(context.Context) ([]store.LLMUsage, error) {
	return nil, nil
}

func (f *fakeEventRepo) LLMUsageByModel(context.Context) ([]store.LLMUsage, error) {
	return nil, nil
}

func TestLogging_RecordsSuccess(t *testing.T) {
	repo := &fakeEventRepo{}
	mock := NewMockProvider(MockResponse{
		Content: json.RawMessage(`{"answer":"42"}`),
		Usage:   Usage{InputTokens: 1000, OutputTokens: 500},
	})
	p := WithLogging(mock, "openai", repo)

	ctx := WithPurpose(context.Background(), PurposeAnswer)
	_, err := p.Generate(ctx, Request{
		System: "sys prompt",
		Prompt: "what is it?",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(repo.events))
	}
	e := repo.events[0]
	if e.Provider != "openai" || e.Model != "mock" || e.Purpose != "answer" {
		t.Fatalf("unexpected event identity: %+v", e)
	}
	if !e.Success || e.ErrorMessage != "" {
		t.Fatalf("expected success event, got %+v", e)
	}
	if e.InputTokens != 1000 || e.OutputTokens != 500 {
		t.Fatalf("unexpected tokens: %d/%d", e.InputTokens, e.OutputTokens)
	}
	if e.ResponseBody != `{"answer":"42"}` {
		t.Fatalf("unexpected response body: %s", e.ResponseBody)
	}
	if !strings.Contains(e.RequestBody, "[system]\nsys prompt") || !strings.Contains(e.RequestBody, "[user]\nwhat is it?") {
		t.Fatalf("unexpected request body: %q", e.RequestBody)
	}
	// "mock" has no pricing.
	if e.CostUSD != 0 {
		t.Fatalf("expected zero cost, got %v", e.CostUSD)
	}
}

func TestLogging_RecordsFailure(t *testing.T) {
	repo := &fakeEventRepo{}
	mock := NewMockProvider(MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}})
	p := WithLogging(mock, "anthropic", repo)

	_, err := p.Generate(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(repo.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(repo.events))
	}
	e := repo.events[0]
	if e.Success || !strings.Contains(e.ErrorMessage, "down") {
		t.Fatalf("expected failure event, got %+v", e)
	}
	if e.Purpose != "unknown" {
		t.Fatalf("expected purpose 'unknown', got %q", e.Purpose)
	}
}

func TestLogging_RepoFailureDoesNotFailCall(t *testing.T) {
	repo := &fakeEventRepo{err: errors.New("disk full")}
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)})
	p := WithLogging(mock, "openai", repo)

	resp, err := p.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp == nil {
		t.Fatal("expected response")
	}
}

// slowProvider blocks until its context ends.
type slowProvider struct{}

func (slowProvider) Generate(ctx context.Context, _ Request) (*Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowProvider) ModelID() string { return "slow" }

func TestWithTimeout(t *testing.T) {
	p := WithTimeout(slowProvider{}, 10*time.Millisecond)

	start := time.Now()
	_, err := p.Generate(context.Background(), Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("timeout did not bound the call")
	}
	if p.ModelID() != "slow" {
		t.Fatalf("expected model 'slow', got %q", p.ModelID())
	}
}

func TestWithTimeout_ZeroIsPassthrough(t *testing.T) {
	mock := NewMockProvider()
	if WithTimeout(mock, 0) != Provider(mock) {
		t.Fatal("expected the same provider back")
	}
}

func TestRetry_StopsOnTimeout(t *testing.T) {
	p := WithTimeout(WithRetry(slowProvider{}, retryConfig()), 10*time.Millisecond)
	_, err := p.Generate(context.Background(), Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
