package constants

import (
	"strings"
)

// Category is the document class the analyzer assigns.
type Category string

const (
	Contable   Category = "CONTABLE"
	Factura    Category = "FACTURA"
	Sueldo     Category = "SUELDO"
	Resumen    Category = "RESUMEN"
	Impuesto   Category = "IMPUESTO"
	Legal      Category = "LEGAL"
	DocInterna Category = "DOC-INTERNA"
	Constancia Category = "CONSTANCIA"
)

var allCategories = []Category{
	Contable,
	Factura,
	Sueldo,
	Resumen,
	Impuesto,
	Legal,
	DocInterna,
	Constancia,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps loose model output onto a known category.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return "", false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]Category{
		"invoice":          Factura,
		"recibo":           Factura,
		"payslip":          Sueldo,
		"recibo de sueldo": Sueldo,
		"statement":        Resumen,
		"extracto":         Resumen,
		"tax":              Impuesto,
		"afip":             Impuesto,
		"contract":         Legal,
		"contrato":         Legal,
		"certificate":      Constancia,
		"certificado":      Constancia,
		"internal":         DocInterna,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return "", false
}
