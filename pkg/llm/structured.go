package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedOutput is returned when a completion cannot be decoded into the
// requested shape.
var ErrMalformedOutput = errors.New("llm: malformed structured output")

const jsonInstruction = "Respond with a single JSON object and nothing else. It must match this shape:\n"

// CompleteJSON asks the provider for a JSON object matching schema and decodes
// it into out. Models often wrap JSON in prose or code fences, so the first
// balanced object in the reply is used.
func CompleteJSON(ctx context.Context, p LLMProvider, prompt, schema string, out any, opts ...Option) error {
	history := []Message{
		{Role: "system", Content: jsonInstruction + schema},
		{Role: "user", Content: prompt},
	}

	opts = append([]Option{WithTemperature(0.2), WithJSON()}, opts...)
	raw, err := p.Chat(ctx, history, opts...)
	if err != nil {
		return err
	}

	obj, ok := ExtractJSONObject(raw)
	if !ok {
		return fmt.Errorf("%w: no JSON object in response", ErrMalformedOutput)
	}
	if err := json.Unmarshal([]byte(obj), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

// ExtractJSONObject returns the first balanced {...} block in s.
func ExtractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
