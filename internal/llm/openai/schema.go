package openai

import "encoding/json"

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	requiredKey             = "required"
	itemsKey                = "items"
)

// keywords the strict structured-output mode rejects; local validation still enforces them
var unsupportedKeywords = []string{"maxLength", "minLength", "minItems", "maxItems", "$schema", "$id"}

// compliantSchema returns a deep copy of schema fit for strict mode, and whether strict mode can
// be used at all. Free-form objects without declared properties cannot be strict.
func compliantSchema(schema map[string]any) (map[string]any, bool) {
	b, err := json.Marshal(schema)
	if err != nil {
		return schema, false
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return schema, false
	}
	strict := true
	ensureOpenAICompliance(out, &strict)
	return out, strict
}

func ensureOpenAICompliance(schema map[string]any, strict *bool) {
	for _, k := range unsupportedKeywords {
		delete(schema, k)
	}
	if schemaType, ok := schema[typeKey].(string); ok && schemaType == "object" {
		schema[additionalPropertiesKey] = false
		properties, ok := schema[propertiesKey].(map[string]any)
		if !ok || len(properties) == 0 {
			*strict = false
		} else {
			required := make([]any, 0, len(properties))
			for propName := range properties {
				required = append(required, propName)
			}
			schema[requiredKey] = required
		}
	}
	if properties, ok := schema[propertiesKey].(map[string]any); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]any); ok {
				ensureOpenAICompliance(propMap, strict)
			}
		}
	}
	if items, ok := schema[itemsKey].(map[string]any); ok {
		ensureOpenAICompliance(items, strict)
	}
}
