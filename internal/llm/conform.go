package llm

import (
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/joseph-ayodele/drive-renamer/constants"
)

// Conform checks m against schema. In strict mode any mismatch is an error. In lenient mode
// unknown keys are dropped and repairable fields are fixed first, and whatever still fails
// validation is logged and accepted.
func Conform(m map[string]any, schema map[string]any, mode SchemaMode, logger *slog.Logger) (map[string]any, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if mode == SchemaStrict {
		if err := ValidateAgainstSchema(schema, m); err != nil {
			return nil, err
		}
		return m, nil
	}

	out, dropped := sanitize(m, schema)
	if len(dropped) > 0 {
		logger.Debug("llm.conform.sanitized", "dropped", dropped)
	}
	if err := ValidateAgainstSchema(schema, out); err != nil {
		logger.Warn("llm.conform.accepted_with_errors", "error", err)
	}
	return out, nil
}

// sanitize drops unknown and null keys, trims strings, enforces maxLength, wraps scalars in
// array fields and canonicalises enum values.
func sanitize(in map[string]any, schema map[string]any) (map[string]any, []string) {
	out := maps.Clone(in)
	var dropped []string

	props, _ := schema[propertiesKey].(map[string]any)
	for k, v := range in {
		if v == nil {
			delete(out, k)
			dropped = append(dropped, k+"(null)")
			continue
		}
		if props == nil {
			continue
		}
		prop, ok := props[k].(map[string]any)
		if !ok {
			delete(out, k)
			dropped = append(dropped, k+"(unknown)")
			continue
		}
		out[k] = sanitizeValue(v, prop)
	}
	return out, dropped
}

func sanitizeValue(v any, prop map[string]any) any {
	switch prop[typeKey] {
	case "string":
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprint(v)
		}
		s = strings.TrimSpace(s)
		if enum, ok := prop["enum"].([]any); ok {
			s = matchEnum(s, enum)
		}
		if limit, ok := intKeyword(prop["maxLength"]); ok {
			s = truncateRunes(s, limit)
		}
		return s
	case "array":
		switch t := v.(type) {
		case []any:
			if limit, ok := intKeyword(prop["maxItems"]); ok && len(t) > limit {
				return t[:limit]
			}
			return t
		case string:
			return []any{t}
		default:
			return []any{v}
		}
	}
	return v
}

// matchEnum maps s onto the enum, first case-insensitively, then through category synonyms.
func matchEnum(s string, enum []any) string {
	for _, e := range enum {
		if es, ok := e.(string); ok && strings.EqualFold(es, s) {
			return es
		}
	}
	if c, ok := constants.Canonicalize(s); ok {
		for _, e := range enum {
			if es, ok := e.(string); ok && es == string(c) {
				return es
			}
		}
	}
	return s
}

func intKeyword(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case uint64:
		return int(t), true
	case float64:
		return int(t), true
	}
	return 0, false
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return strings.TrimSpace(string(r[:limit]))
}
