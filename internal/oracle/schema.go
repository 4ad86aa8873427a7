package oracle

// BuildClassificationSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. It is passed to the oracle as an output constraint and used
// locally to validate the response.
func BuildClassificationSchema(allowedTypes []string) map[string]any {
	props := map[string]any{
		"document_type":    typeProp(allowedTypes),
		"confidence":       confidenceProp(),
		"customer_name":    map[string]any{"type": "string"},
		"signed":           map[string]any{"type": "boolean"},
		"summary":          map[string]any{"type": "string"},
		"extracted_fields": map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "string"}},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             []string{"document_type", "confidence"},
	}
}

// BuildBatchSchema constrains the combined-text / whole-document response:
// per-page type assignments plus a page-range grouping.
func BuildBatchSchema(allowedTypes []string) map[string]any {
	pageType := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"page_number":   map[string]any{"type": "integer", "minimum": 1},
			"document_type": typeProp(allowedTypes),
			"confidence":    confidenceProp(),
		},
		"required": []string{"page_number", "document_type"},
	}
	group := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"document_type": typeProp(allowedTypes),
			"confidence":    confidenceProp(),
			"pages": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "integer", "minimum": 1},
			},
		},
		"required": []string{"document_type", "pages"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"customer_name": map[string]any{"type": "string"},
			"page_types":    map[string]any{"type": "array", "items": pageType},
			"groups":        map[string]any{"type": "array", "items": group},
			"page_texts":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"groups"},
	}
}

func typeProp(allowedTypes []string) map[string]any {
	if len(allowedTypes) > 0 {
		return map[string]any{"type": "string", "enum": allowedTypes}
	}
	return map[string]any{"type": "string"}
}

func confidenceProp() map[string]any {
	return map[string]any{"type": "integer", "minimum": 0, "maximum": 100}
}
