package oracle

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/weiliang-ho/dealerdocs/constants"
)

// ExtractJSONBlock strips markdown fences and surrounding prose from a model
// response, returning the first top-level JSON object. Oracles routinely wrap
// their JSON in ```json fences despite being told not to.
func ExtractJSONBlock(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return []byte(strings.TrimSpace(s))
}

// NormalizeClassificationJSON
// - Renames known synonyms (type -> document_type, name -> customer_name)
// - Coerces confidence to an integer in 0..100 (0..1 floats are scaled)
// - Drops null/empty optionals
// - Removes unknown keys (strict additionalProperties = false friendliness)
func NormalizeClassificationJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(ExtractJSONBlock(raw), &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)
	rename := func(from, to string) {
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}

	// 1) rename synonyms to our schema
	rename("type", "document_type")
	rename("doc_type", "document_type")
	rename("category", "document_type")
	rename("name", "customer_name")
	rename("customer", "customer_name")
	rename("client_name", "customer_name")
	rename("description", "summary")
	rename("notes", "summary")
	rename("fields", "extracted_fields")

	// 2) canonicalize the type onto the closed enum
	canonicalizeType(m)

	// 3) coerce confidence
	m["confidence"] = coerceConfidence(m["confidence"])

	// 4) coerce signed to bool
	if v, ok := m["signed"]; ok {
		switch t := v.(type) {
		case bool:
		case string:
			m["signed"] = strings.EqualFold(strings.TrimSpace(t), "true") || strings.EqualFold(strings.TrimSpace(t), "yes")
		default:
			delete(m, "signed")
			dropped = append(dropped, "signed(type)")
		}
	}

	// 5) extracted_fields values must be strings
	if v, ok := m["extracted_fields"].(map[string]any); ok {
		clean := make(map[string]any, len(v))
		for k, fv := range v {
			switch t := fv.(type) {
			case string:
				if s := strings.TrimSpace(t); s != "" {
					clean[k] = s
				}
			case float64:
				clean[k] = strconv.FormatFloat(t, 'f', -1, 64)
			case bool:
				clean[k] = strconv.FormatBool(t)
			}
		}
		if len(clean) > 0 {
			m["extracted_fields"] = clean
		} else {
			delete(m, "extracted_fields")
			dropped = append(dropped, "extracted_fields(empty)")
		}
	} else if _, present := m["extracted_fields"]; present {
		delete(m, "extracted_fields")
		dropped = append(dropped, "extracted_fields(type)")
	}

	// 6) trim strings, drop empties
	for _, k := range []string{"document_type", "customer_name", "summary"} {
		if v, ok := m[k].(string); ok {
			s := strings.TrimSpace(v)
			if s == "" {
				delete(m, k)
				dropped = append(dropped, k+"(empty)")
			} else {
				m[k] = s
			}
		}
	}

	// 7) remove unknown keys
	allowed := map[string]struct{}{
		"document_type": {}, "confidence": {}, "customer_name": {},
		"signed": {}, "summary": {}, "extracted_fields": {},
	}
	for k := range m {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("oracle.sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

// NormalizeBatchJSON applies the same lenient pass to a combined-text or
// whole-document response.
func NormalizeBatchJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(ExtractJSONBlock(raw), &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)
	rename := func(from, to string) {
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}
	rename("page_groups", "groups")
	rename("document_groups", "groups")
	rename("per_page_types", "page_types")
	rename("pages", "page_types")
	rename("name", "customer_name")
	rename("customer", "customer_name")
	rename("texts", "page_texts")

	if items, ok := m["page_types"].([]any); ok {
		for _, it := range items {
			if obj, ok := it.(map[string]any); ok {
				renameIn(obj, "page", "page_number")
				renameIn(obj, "type", "document_type")
				canonicalizeType(obj)
				obj["page_number"] = coerceInt(obj["page_number"])
				obj["confidence"] = coerceConfidence(obj["confidence"])
			}
		}
	}
	if items, ok := m["groups"].([]any); ok {
		for _, it := range items {
			if obj, ok := it.(map[string]any); ok {
				renameIn(obj, "type", "document_type")
				renameIn(obj, "page_numbers", "pages")
				canonicalizeType(obj)
				obj["confidence"] = coerceConfidence(obj["confidence"])
				if pages, ok := obj["pages"].([]any); ok {
					clean := make([]any, 0, len(pages))
					for _, p := range pages {
						if n := coerceInt(p); n > 0 {
							clean = append(clean, n)
						}
					}
					obj["pages"] = clean
				}
			}
		}
	}

	allowed := map[string]struct{}{
		"customer_name": {}, "page_types": {}, "groups": {}, "page_texts": {},
	}
	for k := range m {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("oracle.sanitize_batch", "dropped", dropped)
	}
	return out, dropped, nil
}

// canonicalizeType maps a free-form document_type value onto the closed
// taxonomy in place. Labels nothing matches become "other".
func canonicalizeType(obj map[string]any) {
	if s, ok := obj["document_type"].(string); ok {
		dt, _ := constants.Canonicalize(s)
		obj["document_type"] = string(dt)
	}
}

func renameIn(obj map[string]any, from, to string) {
	if v, ok := obj[from]; ok {
		if _, exists := obj[to]; !exists {
			obj[to] = v
		}
		delete(obj, from)
	}
}

// coerceConfidence accepts integers, 0..1 floats, percentage strings and
// clamps the result into 0..100. Anything unparseable becomes 0.
func coerceConfidence(v any) int {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(t), "%")
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if f > 0 && f <= 1 {
		f *= 100
	}
	if f < 0 {
		return 0
	}
	if f > 100 {
		return 100
	}
	return int(f + 0.5)
}

func coerceInt(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return 0
}
