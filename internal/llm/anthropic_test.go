package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type anthropicReply struct {
	status int
	header http.Header
	body   any
}

// anthropicServer answers every call with reply, captures the last request
// body and counts calls.
func anthropicServer(t *testing.T, reply anthropicReply, captured *map[string]any) (*AnthropicProvider, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if captured != nil {
			if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		for k, v := range reply.header {
			w.Header()[k] = v
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(reply.status)
		json.NewEncoder(w).Encode(reply.body)
	}))
	t.Cleanup(srv.Close)

	p, err := NewAnthropicProvider(AnthropicConfig{APIKey: "test-key", Model: "claude-haiku-4-5", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p, &calls
}

func anthropicMessage(stopReason string, texts ...string) map[string]any {
	blocks := make([]map[string]any, len(texts))
	for i, s := range texts {
		blocks[i] = map[string]any{"type": "text", "text": s}
	}
	return map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"content":     blocks,
		"model":       "claude-haiku-4-5-20251001",
		"stop_reason": stopReason,
		"usage":       map[string]any{"input_tokens": 50, "output_tokens": 30},
	}
}

func anthropicErrorBody(kind string) map[string]any {
	return map[string]any{"type": "error", "error": map[string]any{"type": kind, "message": kind}}
}

func TestAnthropicProvider_FencedAnswerAcrossBlocks(t *testing.T) {
	var sent map[string]any
	p, _ := anthropicServer(t, anthropicReply{
		status: http.StatusOK,
		body:   anthropicMessage("end_turn", "```json\n{\"answer\":", "\"ATP.\"}\n```"),
	}, &sent)

	resp, err := p.Generate(context.Background(), answerRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != `{"answer":"ATP."}` {
		t.Fatalf("unexpected content: %s", resp.Content)
	}
	if resp.Model != "claude-haiku-4-5-20251001" || resp.StopReason != "end" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Usage.TotalTokens != 80 {
		t.Fatalf("expected 80 total tokens, got %d", resp.Usage.TotalTokens)
	}

	msgs, _ := sent["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("expected one user message, got %v", sent["messages"])
	}
	content, _ := msgs[0].(map[string]any)["content"].([]any)
	if len(content) != 1 || content[0].(map[string]any)["text"] != answerRequest().Prompt {
		t.Fatalf("unexpected user content: %v", msgs[0])
	}
	system, _ := sent["system"].([]any)
	if len(system) != 1 || system[0].(map[string]any)["text"] != answerRequest().System {
		t.Fatalf("unexpected system prompt: %v", sent["system"])
	}
}

func TestAnthropicProvider_MaxTokens(t *testing.T) {
	p, _ := anthropicServer(t, anthropicReply{
		status: http.StatusOK,
		body:   anthropicMessage("max_tokens", `{"answer":"Mitochondria make`),
	}, nil)

	_, err := p.Generate(context.Background(), answerRequest())
	var maxTok *ErrMaxTokensExceeded
	if !errors.As(err, &maxTok) {
		t.Fatalf("expected ErrMaxTokensExceeded, got: %v", err)
	}
}

func TestAnthropicProvider_RateLimitCarriesRetryAfter(t *testing.T) {
	p, calls := anthropicServer(t, anthropicReply{
		status: http.StatusTooManyRequests,
		header: http.Header{"Retry-After": {"7"}},
		body:   anthropicErrorBody("rate_limit_error"),
	}, nil)

	_, err := p.Generate(context.Background(), answerRequest())
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got: %T (%v)", err, err)
	}
	if rl.RetryAfter != 7*time.Second {
		t.Fatalf("expected 7s retry-after, got %s", rl.RetryAfter)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected the SDK not to retry, got %d calls", calls.Load())
	}
}

func TestAnthropicProvider_ErrorStatus(t *testing.T) {
	t.Run("overloaded", func(t *testing.T) {
		p, _ := anthropicServer(t, anthropicReply{status: 529, body: anthropicErrorBody("overloaded_error")}, nil)
		_, err := p.Generate(context.Background(), answerRequest())
		var unavail *ErrProviderUnavailable
		if !errors.As(err, &unavail) {
			t.Fatalf("expected ErrProviderUnavailable, got: %T (%v)", err, err)
		}
	})

	t.Run("bad key", func(t *testing.T) {
		p, _ := anthropicServer(t, anthropicReply{status: http.StatusUnauthorized, body: anthropicErrorBody("authentication_error")}, nil)
		_, err := p.Generate(context.Background(), answerRequest())
		if !errors.Is(err, ErrNotConfigured) {
			t.Fatalf("expected ErrNotConfigured, got: %T (%v)", err, err)
		}
	})
}

func TestNewAnthropicProvider_RequiresKey(t *testing.T) {
	if _, err := NewAnthropicProvider(AnthropicConfig{Model: "claude-haiku-4-5"}); err == nil {
		t.Fatal("expected error for empty API key")
	}
}

func TestRetryAfterHeader(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{"-1", 0},
		{"Wed, 21 Oct 2026 07:28:00 GMT", 0},
	}
	for _, tt := range tests {
		h := http.Header{}
		if tt.value != "" {
			h.Set("Retry-After", tt.value)
		}
		if got := retryAfter(h); got != tt.want {
			t.Errorf("retryAfter(%q) = %s, want %s", tt.value, got, tt.want)
		}
	}
}
