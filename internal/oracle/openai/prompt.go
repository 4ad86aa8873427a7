package openai

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxTextChars = 6000

func buildClassifySystemPrompt(allowedTypes []string) string {
	parts := []string{
		"You are a document filing assistant for a vehicle dealership.",
		"Given the extracted text of one customer document, classify it.",
		"Allowed document types (enum): " + strings.Join(allowedTypes, ", ") + ".",
		"Use 'other' when no type fits.",
		"Confidence is an integer 0-100.",
		"Extract the customer's full name into 'customer_name' when visible.",
		"Set 'signed' true only when a signature or signed date is clearly present.",
		"Write a one-sentence 'summary' of what the document is.",
		"Return ONLY JSON that matches the provided schema. Never output null; omit absent fields.",
	}
	return strings.Join(parts, " ")
}

func buildClassifyUserPrompt(rawText, typeHint string, schema map[string]any) string {
	var b strings.Builder
	if typeHint != "" {
		b.WriteString("Expected document type (hint, may be wrong): ")
		b.WriteString(typeHint)
		b.WriteString("\n\n")
	}
	b.WriteString("Document text (truncated):\n")
	b.WriteString(truncate(rawText, maxTextChars))
	b.WriteString("\n\nJSON Schema:\n")
	b.WriteString(mustJSON(schema))
	return b.String()
}

func buildBatchSystemPrompt(allowedTypes []string) string {
	parts := []string{
		"You are a document filing assistant for a vehicle dealership.",
		"You receive the per-page text of one multi-page scan that may contain several distinct documents.",
		"Allowed document types (enum): " + strings.Join(allowedTypes, ", ") + ".",
		"Assign a type to every page, then group pages into documents: each group is one document spanning the listed pages, in order.",
		"Pages belonging to the same document are usually adjacent.",
		"A group's pages must not appear in any other group.",
		"Extract the customer's full name into 'customer_name' when visible on any page.",
		"Return ONLY JSON that matches the provided schema.",
	}
	return strings.Join(parts, " ")
}

func buildBatchUserPrompt(pageTexts []string, schema map[string]any) string {
	var b strings.Builder
	perPage := maxTextChars / len(pageTexts)
	if perPage < 400 {
		perPage = 400
	}
	for i, text := range pageTexts {
		fmt.Fprintf(&b, "--- PAGE %d ---\n", i+1)
		b.WriteString(truncate(text, perPage))
		b.WriteString("\n")
	}
	b.WriteString("\nJSON Schema:\n")
	b.WriteString(mustJSON(schema))
	return b.String()
}

// truncate cuts s to at most n bytes without splitting a UTF-8 rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
