// Package naming turns an analysis result into a file name.
package naming

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/drive-renamer/constants"
)

const (
	Unknown        = "unknown"
	emptyKeywords  = "doc"
	FallbackFormat = "{date}_{keywords}{ext}"
	maxNameRunes   = 200
	keywordSep     = "_"
)

var errMalformed = errors.New("malformed template")

// Vars is a case-insensitive variable set. Keys are stored lowercased.
type Vars map[string]string

// Lookup returns the value for name ignoring case, or Unknown.
func (v Vars) Lookup(name string) string {
	if s, ok := v[strings.ToLower(strings.TrimSpace(name))]; ok {
		return s
	}
	return Unknown
}

// BuildVars assembles the template variables for originalName and analysis. The date, keywords,
// ext and original_filename entries win over keyword aliases, which win over other analysis keys.
func BuildVars(originalName string, analysis map[string]any) Vars {
	ext := filepath.Ext(originalName)
	stem := strings.TrimSuffix(originalName, ext)
	keywords := keywordList(analysis)

	vars := Vars{}
	aliases := [][]string{{"type"}, {"issuer", "entity"}, {"brief_detail", "concept"}}
	for i, names := range aliases {
		if i < len(keywords) {
			for _, n := range names {
				vars[n] = keywords[i]
			}
		}
	}

	keys := make([]string, 0, len(analysis))
	for k := range analysis {
		keys = append(keys, k)
	}
	// lowercase collisions resolve deterministically
	sort.Strings(keys)
	aliased := make(map[string]bool, len(vars))
	for k := range vars {
		aliased[k] = true
	}
	for _, k := range keys {
		low := strings.ToLower(k)
		if aliased[low] {
			continue
		}
		if s, ok := render(analysis[k]); ok {
			vars[low] = s
		}
	}

	joined := strings.Join(keywords, keywordSep)
	if joined == "" {
		joined = emptyKeywords
	}
	vars["date"] = dateOf(vars)
	vars["keywords"] = joined
	vars["ext"] = ext
	vars["original_filename"] = stem
	return vars
}

func dateOf(vars Vars) string {
	if d, ok := vars["date"]; ok && d != "" {
		return d
	}
	if d, ok := vars["fecha"]; ok && d != "" {
		return d
	}
	return Unknown
}

func keywordList(analysis map[string]any) []string {
	for k, v := range analysis {
		if !strings.EqualFold(k, "keywords") {
			continue
		}
		switch t := v.(type) {
		case []string:
			return nonEmpty(t)
		case []any:
			out := make([]string, 0, len(t))
			for _, item := range t {
				if s, ok := render(item); ok {
					out = append(out, s)
				}
			}
			return nonEmpty(out)
		default:
			if s, ok := render(t); ok && s != "" {
				return []string{s}
			}
		}
	}
	return nil
}

func nonEmpty(in []string) []string {
	out := in[:0:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// render formats a value for a file name; lists join with underscores. nil is absent.
func render(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return strings.TrimSpace(t), true
	case []string:
		return strings.Join(t, keywordSep), true
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := render(item); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, keywordSep), true
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t)), true
		}
		return fmt.Sprint(t), true
	default:
		return fmt.Sprint(t), true
	}
}

// Build fills format with the analysis variables and returns a safe, non-empty file name.
// Unknown placeholders become "unknown"; a malformed format falls back to FallbackFormat.
func Build(originalName string, analysis map[string]any, format string) string {
	vars := BuildVars(originalName, analysis)
	name, err := substitute(format, vars)
	if err != nil || strings.TrimSpace(format) == "" {
		name, _ = substitute(FallbackFormat, vars)
	}
	name = sanitize(name)
	if name == "" || name == vars["ext"] {
		name = sanitize(emptyKeywords + vars["ext"])
	}
	return name
}

// substitute expands {name}, {name:spec} and {name!conv} fields with "{{" and "}}" escapes.
func substitute(format string, vars Vars) (string, error) {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		switch c {
		case '{':
			if i+1 < len(format) && format[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(format[i+1:], '}')
			if end < 0 {
				return "", errMalformed
			}
			field := format[i+1 : i+1+end]
			if strings.ContainsRune(field, '{') {
				return "", errMalformed
			}
			if j := strings.IndexAny(field, ":!"); j >= 0 {
				field = field[:j]
			}
			if strings.TrimSpace(field) == "" {
				return "", errMalformed
			}
			b.WriteString(vars.Lookup(field))
			i += end + 1
		case '}':
			if i+1 < len(format) && format[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", errMalformed
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// sanitize replaces path separators and control characters and caps the length, keeping the extension.
func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '-'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if r := []rune(name); len(r) > maxNameRunes {
		ext := []rune(filepath.Ext(name))
		if len(ext) >= maxNameRunes {
			ext = nil
		}
		name = string(r[:maxNameRunes-len(ext)]) + string(ext)
	}
	return name
}

// WithMarker inserts "_<marker>" before the extension unless name already carries marker.
func WithMarker(name, marker string) string {
	if marker == "" || strings.Contains(name, marker) {
		return name
	}
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "_" + marker + ext
}

// Skip reports whether a listed file must not be processed: it is the index or already carries marker.
func Skip(name, marker string) bool {
	if name == constants.IndexFileName {
		return true
	}
	return marker != "" && strings.Contains(name, marker)
}
