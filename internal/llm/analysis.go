package llm

import (
	"fmt"
	"strings"
)

// Analysis is the key-value result of analysing one document. Values are JSON-decoded shapes.
type Analysis map[string]any

// String returns the value under key rendered as text, or "" when absent.
func (a Analysis) String(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []any:
		return strings.Join(toStrings(t), "_")
	default:
		return fmt.Sprint(t)
	}
}

func (a Analysis) Date() string { return a.String("date") }

// Keywords returns keywords as a list; a scalar value becomes a one-element list.
func (a Analysis) Keywords() []string {
	switch t := a["keywords"].(type) {
	case nil:
		return nil
	case []any:
		return toStrings(t)
	case []string:
		return t
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	default:
		return []string{fmt.Sprint(t)}
	}
}

func toStrings(in []any) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			out = append(out, s)
			continue
		}
		out = append(out, fmt.Sprint(v))
	}
	return out
}

// DocumentFields is the default typed record requested from the model.
type DocumentFields struct {
	Date        string   `json:"date" jsonschema:"required,description=Document date as YYYY-MM-DD or YYYY-MM or YYYY"`
	Category    string   `json:"category" jsonschema:"required,description=Document category"`
	Issuer      string   `json:"issuer" jsonschema:"required,maxLength=30,description=Issuing company or person"`
	BriefDetail string   `json:"brief_detail" jsonschema:"required,maxLength=50,description=Short concept separated by hyphens"`
	Keywords    []string `json:"keywords" jsonschema:"required,description=Descriptive keywords"`
}

func (d DocumentFields) AsMap() (map[string]any, error) {
	kw := make([]any, 0, len(d.Keywords))
	for _, k := range d.Keywords {
		kw = append(kw, k)
	}
	return map[string]any{
		"date":         d.Date,
		"category":     d.Category,
		"issuer":       d.Issuer,
		"brief_detail": d.BriefDetail,
		"keywords":     kw,
	}, nil
}
