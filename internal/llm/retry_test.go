package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

func retryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 1 * time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2.0,
	}
}

var answerContent = json.RawMessage(`{"answer":"Mitochondria produce ATP."}`)

func unavailable() MockResponse {
	return MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("upstream 503")}}
}

func TestRetry_Attempts(t *testing.T) {
	cases := []struct {
		name      string
		responses []MockResponse
		wantCalls int
		wantErr   bool
	}{
		{
			name:      "answers first time",
			responses: []MockResponse{{Content: answerContent}},
			wantCalls: 1,
		},
		{
			name:      "recovers after outage",
			responses: []MockResponse{unavailable(), {Content: answerContent}},
			wantCalls: 2,
		},
		{
			name:      "gives up after max attempts",
			responses: []MockResponse{unavailable(), unavailable(), unavailable(), {Content: answerContent}},
			wantCalls: 3,
			wantErr:   true,
		},
		{
			name: "rate limit waits then retries",
			responses: []MockResponse{
				{Err: &ErrRateLimit{RetryAfter: time.Millisecond, Err: errors.New("429")}},
				{Content: answerContent},
			},
			wantCalls: 2,
		},
		{
			name: "malformed answer retried once",
			responses: []MockResponse{
				{Err: &ErrInvalidResponse{Content: json.RawMessage(`Sure!`), Err: errors.New("no JSON object")}},
				{Err: &ErrInvalidResponse{Content: json.RawMessage(`Sure!`), Err: errors.New("no JSON object")}},
				{Content: answerContent},
			},
			wantCalls: 2,
			wantErr:   true,
		},
		{
			name: "truncated answer not retried",
			responses: []MockResponse{
				{Err: &ErrMaxTokensExceeded{Content: json.RawMessage(`{"answer":"Mito`)}},
				{Content: answerContent},
			},
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name: "rejected key not retried",
			responses: []MockResponse{
				{Err: fmt.Errorf("%w: credentials rejected: 401", ErrNotConfigured)},
				{Content: answerContent},
			},
			wantCalls: 1,
			wantErr:   true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := NewMockProvider(tc.responses...)
			p := WithRetry(mock, retryConfig())

			resp, err := p.Generate(context.Background(), Request{Prompt: "What do mitochondria do?"})
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if string(resp.Content) != string(answerContent) {
					t.Fatalf("unexpected content: %s", resp.Content)
				}
			}
			if mock.CallCount() != tc.wantCalls {
				t.Fatalf("expected %d calls, got %d", tc.wantCalls, mock.CallCount())
			}
		})
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	mock := NewMockProvider(unavailable(), unavailable(), MockResponse{Content: answerContent})
	p := WithRetry(mock, retryConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Generate(ctx, Request{Prompt: "q"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got: %v", err)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
}

func TestRetry_ZeroAttemptsStillCalls(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: answerContent})
	p := WithRetry(mock, RetryConfig{})

	if _, err := p.Generate(context.Background(), Request{Prompt: "q"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
}

func TestTimeout_BoundsSlowProvider(t *testing.T) {
	p := WithTimeout(blockingProvider{}, 5*time.Millisecond)
	_, err := p.Generate(context.Background(), Request{Prompt: "q"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got: %v", err)
	}
	if p.ModelID() != "blocking" {
		t.Fatalf("expected ModelID to delegate, got %q", p.ModelID())
	}
}

type blockingProvider struct{}

func (blockingProvider) Generate(ctx context.Context, _ Request) (*Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingProvider) ModelID() string { return "blocking" }
