package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compiled holds compiled schemas by Schema.Name.
var compiled = struct {
	sync.RWMutex
	byName map[string]*jsonschema.Schema
}{byName: make(map[string]*jsonschema.Schema)}

// decodeStructured pulls the JSON object out of a model reply and checks it
// against schema. It returns the bare object. Failures are
// *ErrInvalidResponse carrying the full reply.
func decodeStructured(schema *Schema, text string) (json.RawMessage, error) {
	invalid := func(err error) error {
		return &ErrInvalidResponse{Content: json.RawMessage(text), Err: err}
	}

	raw := extractJSON(text)
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		return nil, invalid(fmt.Errorf("reply is not JSON: %w", err))
	}

	sch, err := compileSchema(schema)
	if err != nil {
		return nil, invalid(err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, invalid(fmt.Errorf("reply does not match %s: %w", schema.Name, err))
	}
	return json.RawMessage(raw), nil
}

// extractJSON strips what models without a strict JSON mode tend to put
// around the object: a markdown fence, or a sentence before and after.
func extractJSON(text string) string {
	t := strings.TrimSpace(text)
	if rest, ok := strings.CutPrefix(t, "```"); ok {
		rest = strings.TrimPrefix(rest, "json")
		body, _, _ := strings.Cut(rest, "```")
		t = strings.TrimSpace(body)
	}
	if strings.HasPrefix(t, "{") {
		return t
	}
	start, end := strings.Index(t, "{"), strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return t[start : end+1]
	}
	return t
}

func compileSchema(schema *Schema) (*jsonschema.Schema, error) {
	if schema.Name == "" {
		return nil, errors.New("schema has no name")
	}

	compiled.RLock()
	sch, ok := compiled.byName[schema.Name]
	compiled.RUnlock()
	if ok {
		return sch, nil
	}

	// Round-trip through JSON so Go slices and maps become the generic
	// values the compiler expects.
	def, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", schema.Name, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(def))
	if err != nil {
		return nil, fmt.Errorf("decode schema %s: %w", schema.Name, err)
	}

	url := "mem://schemas/" + schema.Name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("load schema %s: %w", schema.Name, err)
	}
	sch, err = c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", schema.Name, err)
	}

	compiled.Lock()
	compiled.byName[schema.Name] = sch
	compiled.Unlock()
	return sch, nil
}
