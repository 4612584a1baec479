package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildPageRecordSchema returns the advisory JSON-Schema (draft 2020-12
// subset) for a normalized page record. The schema is advisory, not a
// contract: document types vary, so unknown top-level fields are allowed and
// a validation miss only flags the record for review.
func BuildPageRecordSchema() map[string]any {
	lineItem := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"description": map[string]any{"type": "string"},
			"quantity":    map[string]any{"type": []string{"number", "string"}},
			"unit_price":  map[string]any{"type": []string{"number", "string"}},
			"amount":      map[string]any{"type": []string{"number", "string"}},
			"line_total":  map[string]any{"type": []string{"number", "string"}},
		},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"document_type": map[string]any{"type": "string", "minLength": 1},
			"key_fields":    map[string]any{"type": "object"},
			"items": map[string]any{
				"type":  "array",
				"items": lineItem,
			},
			"tables": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"table_name": map[string]any{"type": "string"},
						"items":      map[string]any{"type": "array", "items": lineItem},
					},
				},
			},
			"notes": map[string]any{"type": "string"},
		},
		"required": []string{"document_type"},
	}
}

// CompilePageRecordSchema compiles the advisory schema once for reuse.
func CompilePageRecordSchema() (*jsonschema.Schema, error) {
	b, err := json.Marshal(BuildPageRecordSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("page-record.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("page-record.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}
