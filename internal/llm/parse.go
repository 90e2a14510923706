package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
)

// ParseResponse turns a model response into a JSON-decoded mapping. Precedence: the provider's
// parsed payload, a typed content payload, a mapping, then text with optional code fences.
func ParseResponse(resp Response) (map[string]any, error) {
	if resp.Parsed != nil {
		return normalize(resp.Parsed)
	}
	switch c := resp.Content.(type) {
	case nil:
		return nil, errors.New("empty response")
	case Mapper:
		m, err := c.AsMap()
		if err != nil {
			return nil, fmt.Errorf("typed content: %w", err)
		}
		return normalize(m)
	case map[string]any:
		return normalize(c)
	case string:
		return decodeText(c)
	case []byte:
		return decodeText(string(c))
	}
	if k := reflect.Indirect(reflect.ValueOf(resp.Content)).Kind(); k == reflect.Struct || k == reflect.Map {
		return normalize(resp.Content)
	}
	return nil, fmt.Errorf("unsupported content type %T", resp.Content)
}

// normalize round-trips v through JSON so every value has a JSON-decoded shape.
func normalize(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New("payload is not an object")
	}
	return m, nil
}

func decodeText(text string) (map[string]any, error) {
	var m map[string]any
	if err := decodeModelJSON(stripCodeFences(text), &m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New("payload is not an object")
	}
	return m, nil
}

// stripCodeFences removes a surrounding ```json ... ``` or ``` ... ``` wrapper.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		first := strings.TrimSpace(s[:nl])
		if first == "" || !strings.ContainsAny(first, "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// decodeModelJSON unmarshals the text as-is, then retries with the span between the first
// '{' and the last '}'.
func decodeModelJSON(outputText string, v any) error {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return io.ErrUnexpectedEOF
	}
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("no JSON object found in model output (len=%d)", len(s))
	}
	sub := s[start : end+1]
	if err := json.Unmarshal([]byte(sub), v); err != nil {
		return fmt.Errorf("failed to unmarshal extracted JSON (len=%d): %w", len(sub), err)
	}
	return nil
}
