package llm

import (
	"encoding/json"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/joseph-ayodele/drive-renamer/constants"
	"github.com/joseph-ayodele/drive-renamer/internal/entity"
)

// SchemaMode decides what happens when model output does not match the schema.
type SchemaMode string

const (
	// SchemaLenient drops unknown keys, repairs what it can and accepts the rest.
	SchemaLenient SchemaMode = "lenient"
	// SchemaStrict rejects any mismatch, which sends the analyzer to its fallback record.
	SchemaStrict SchemaMode = "strict"
)

const (
	propertiesKey = "properties"
	requiredKey   = "required"
	typeKey       = "type"
	itemsKey      = "items"
)

// DefaultSchema reflects DocumentFields and applies the category set and keyword count.
func DefaultSchema(categories []string, keywordCount int) map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.Reflect(&DocumentFields{})
	m, err := schemaToMap(schema)
	if err != nil {
		// reflection of a fixed struct cannot produce invalid JSON
		panic(err)
	}
	delete(m, "$schema")
	delete(m, "$id")

	if len(categories) == 0 {
		categories = constants.AsStringSlice()
	}
	props := m[propertiesKey].(map[string]any)
	if cat, ok := props["category"].(map[string]any); ok {
		enum := make([]any, 0, len(categories))
		for _, c := range categories {
			enum = append(enum, c)
		}
		cat["enum"] = enum
	}
	if kw, ok := props["keywords"].(map[string]any); ok && keywordCount > 0 {
		kw["minItems"] = keywordCount
		kw["maxItems"] = keywordCount
	}
	return m
}

// DynamicSchema builds an object schema from a job's field declarations. Every declared field is required.
func DynamicSchema(fields map[string]entity.FieldKind, keywordCount int) map[string]any {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	props := make(map[string]any, len(fields))
	required := make([]any, 0, len(fields))
	for _, name := range names {
		prop := fieldSchema(fields[name])
		if name == "keywords" && fields[name] == entity.FieldList && keywordCount > 0 {
			prop["minItems"] = keywordCount
			prop["maxItems"] = keywordCount
		}
		props[name] = prop
		required = append(required, name)
	}
	return map[string]any{
		typeKey:                "object",
		propertiesKey:          props,
		requiredKey:            required,
		"additionalProperties": false,
	}
}

func fieldSchema(kind entity.FieldKind) map[string]any {
	switch kind {
	case entity.FieldInteger:
		return map[string]any{typeKey: "integer"}
	case entity.FieldFloat:
		return map[string]any{typeKey: "number"}
	case entity.FieldBoolean:
		return map[string]any{typeKey: "boolean"}
	case entity.FieldList:
		return map[string]any{typeKey: "array", itemsKey: map[string]any{typeKey: "string"}}
	case entity.FieldMap:
		return map[string]any{typeKey: "object"}
	default:
		return map[string]any{typeKey: "string"}
	}
}

// SchemaFor picks the dynamic schema when the agent declares fields, else the default one.
func SchemaFor(agent entity.AgentConfig, fallbackCategories []string) map[string]any {
	if len(agent.OutputSchema) > 0 {
		return DynamicSchema(agent.OutputSchema, agent.KeywordCount)
	}
	categories := agent.Categories
	if len(categories) == 0 {
		categories = fallbackCategories
	}
	return DefaultSchema(categories, agent.KeywordCount)
}

func schemaToMap(schema *jsonschema.Schema) (map[string]any, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
