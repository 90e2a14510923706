package naming

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildInvoiceScenario(t *testing.T) {
	analysis := map[string]any{
		"date":         "2024-05-27",
		"category":     "FACTURA",
		"issuer":       "Banco-Galicia",
		"brief_detail": "honorarios-profesionales",
	}
	got := Build("documento.pdf", analysis, "{date}_{category}_{issuer}_{brief_detail}{ext}")
	assert.Equal(t, "2024-05-27_FACTURA_Banco-Galicia_honorarios-profesionales.pdf", got)
}

func TestBuildKeywordAliasesWinOverAnalysisKeys(t *testing.T) {
	analysis := map[string]any{
		"date":     "2024-05-27",
		"keywords": []any{"FACTURA", "Galicia", "honorarios"},
		"issuer":   "Banco-Galicia",
		"Category": "FACTURA",
	}
	got := Build("doc.pdf", analysis, "{issuer}_{brief_detail}_{CATEGORY}{ext}")
	assert.Equal(t, "Galicia_honorarios_FACTURA.pdf", got)
}

func TestBuild(t *testing.T) {
	kw := []any{"factura", "edenor", "luz-marzo"}
	tests := []struct {
		name     string
		original string
		analysis map[string]any
		format   string
		want     string
	}{
		{"case insensitive", "a.pdf", map[string]any{"date": "2024", "category": "LEGAL"}, "{Date}_{CATEGORY}{Ext}", "2024_LEGAL.pdf"},
		{"missing placeholder", "a.pdf", map[string]any{"date": "2024"}, "{date}_{issuer}{ext}", "2024_unknown.pdf"},
		{"keyword aliases", "a.pdf", map[string]any{"date": "2024-03", "keywords": kw}, "{type}-{entity}-{concept}{ext}", "factura-edenor-luz-marzo.pdf"},
		{"alias beats explicit key", "a.pdf", map[string]any{"keywords": kw, "issuer": "EDESUR"}, "{issuer}{ext}", "edenor.pdf"},
		{"explicit key without alias", "a.pdf", map[string]any{"keywords": kw[:1], "issuer": "EDESUR"}, "{type}_{issuer}{ext}", "factura_EDESUR.pdf"},
		{"manual default format", "scan.png", map[string]any{"date": "2024-01-02", "keywords": kw}, "{date}_{keywords}_{ext}", "2024-01-02_factura_edenor_luz-marzo_.png"},
		{"scalar keywords", "a.pdf", map[string]any{"date": "2024", "keywords": "único"}, "{date}_{keywords}{ext}", "2024_único.pdf"},
		{"empty keywords", "a.pdf", map[string]any{"date": "2024", "keywords": []any{}}, "{date}_{keywords}{ext}", "2024_doc.pdf"},
		{"fecha fallback", "a.pdf", map[string]any{"fecha": "2023-12-01"}, "{date}{ext}", "2023-12-01.pdf"},
		{"no date", "a.pdf", map[string]any{}, "{date}_{keywords}{ext}", "unknown_doc.pdf"},
		{"nil value is missing", "a.pdf", map[string]any{"issuer": nil}, "{issuer}{ext}", "unknown.pdf"},
		{"list values join", "a.pdf", map[string]any{"tags": []any{"x", "y"}}, "{tags}{ext}", "x_y.pdf"},
		{"numbers", "a.pdf", map[string]any{"year": float64(2024), "amount": 12.5}, "{year}_{amount}{ext}", "2024_12.5.pdf"},
		{"original filename", "Scan 001.pdf", map[string]any{"date": "2024"}, "{date}_{original_filename}{ext}", "2024_Scan 001.pdf"},
		{"escaped braces", "a.pdf", map[string]any{"date": "2024"}, "{{x}}_{date}{ext}", "{x}_2024.pdf"},
		{"format spec ignored", "a.pdf", map[string]any{"date": "2024"}, "{date:>10}{ext}", "2024.pdf"},
		{"unbalanced falls back", "a.pdf", map[string]any{"date": "2024", "keywords": kw}, "{date_{ext}", "2024_factura_edenor_luz-marzo.pdf"},
		{"stray close falls back", "a.pdf", map[string]any{"date": "2024"}, "date}{ext}", "2024_doc.pdf"},
		{"empty field falls back", "a.pdf", map[string]any{"date": "2024"}, "{}{ext}", "2024_doc.pdf"},
		{"empty format falls back", "a.pdf", map[string]any{"date": "2024"}, "", "2024_doc.pdf"},
		{"path separators", "a.pdf", map[string]any{"issuer": "AFIP/ARBA"}, "{issuer}{ext}", "AFIP-ARBA.pdf"},
		{"only ext", "a.pdf", map[string]any{}, "{ext}", "doc.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Build(tt.original, tt.analysis, tt.format))
		})
	}
}

func TestBuildIsTotal(t *testing.T) {
	formats := []string{"", "{", "}", "{}", "{{", "}}", "{a}{b}{c}", "\x00\x01", "/", strings.Repeat("{date}", 100)}
	analyses := []map[string]any{nil, {}, {"keywords": nil}, {"keywords": []any{nil, 3}}, {"date": map[string]any{"x": 1}}}
	for _, f := range formats {
		for _, a := range analyses {
			got := Build("file.pdf", a, f)
			assert.NotEmpty(t, got, "format %q", f)
			assert.LessOrEqual(t, len([]rune(got)), maxNameRunes)
			assert.NotContains(t, got, "/")
		}
	}
}

func TestWithMarker(t *testing.T) {
	assert.Equal(t, "2024_x_DOCPROCESADO.pdf", WithMarker("2024_x.pdf", "DOCPROCESADO"))
	assert.Equal(t, "2024_DOCPROCESADO_x.pdf", WithMarker("2024_DOCPROCESADO_x.pdf", "DOCPROCESADO"))
	assert.Equal(t, "noext_DOCPROCESADO", WithMarker("noext", "DOCPROCESADO"))
	assert.Equal(t, "a.pdf", WithMarker("a.pdf", ""))
}

func TestSkip(t *testing.T) {
	assert.True(t, Skip("index.html", "DOCPROCESADO"))
	assert.True(t, Skip("2024_x_DOCPROCESADO.pdf", "DOCPROCESADO"))
	assert.False(t, Skip("scan.pdf", "DOCPROCESADO"))
	assert.False(t, Skip("Index.html", "DOCPROCESADO"))
}
