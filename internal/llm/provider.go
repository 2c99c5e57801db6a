package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// Provider is the core abstraction for chat-completion models.
type Provider interface {
	// Generate sends a prompt to the model and returns its response.
	// When req.Schema is set the provider asks for JSON conforming to it
	// and validates the result before returning.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request is a single-turn prompt: a system instruction plus one user
// message carrying the retrieved context and the question.
type Request struct {
	System string
	Prompt string

	// Schema, when set, requests structured JSON output.
	// When nil, the response Content holds the model's raw text.
	Schema *Schema

	MaxTokens   int
	Temperature float64
}

// Schema defines the JSON structure expected from the model.
type Schema struct {
	// Name identifies this schema (schema name for OpenAI). Kebab-case.
	Name string

	// Description is sent to the model to guide generation.
	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Response holds the model's output.
type Response struct {
	// Content is the generated output: validated JSON when a Schema was
	// requested, otherwise the raw text bytes.
	Content json.RawMessage

	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason is "end" or "max_tokens".
	StopReason string
}

// Text returns the response content as a plain string.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Content)
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// completion is what each vendor backend extracts from its SDK response.
type completion struct {
	text      string
	model     string
	truncated bool
	usage     Usage
}

// finish turns a vendor completion into a Response. A structured answer
// cut off at MaxTokens cannot be parsed, so it fails with
// ErrMaxTokensExceeded, which the retry decorator does not retry.
func finish(req Request, c completion) (*Response, error) {
	if c.truncated && req.Schema != nil {
		return nil, &ErrMaxTokensExceeded{Content: json.RawMessage(c.text)}
	}
	if strings.TrimSpace(c.text) == "" {
		return nil, &ErrInvalidResponse{Err: errors.New("empty completion")}
	}

	if c.usage.TotalTokens == 0 {
		c.usage.TotalTokens = c.usage.InputTokens + c.usage.OutputTokens
	}
	resp := &Response{
		Content:    json.RawMessage(c.text),
		Usage:      c.usage,
		Model:      c.model,
		StopReason: "end",
	}
	if c.truncated {
		resp.StopReason = "max_tokens"
	}
	if req.Schema != nil {
		content, err := decodeStructured(req.Schema, c.text)
		if err != nil {
			return nil, err
		}
		resp.Content = content
	}
	return resp, nil
}
