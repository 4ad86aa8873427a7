// Package oracle defines the classification boundary: an external capability
// that turns extracted text (or a whole document) into a structured business
// document classification. The oracle is not contract-bound to a schema, so
// every response is validated and defaulted at this boundary.
package oracle

import "context"

// Classification is the normalized shape we want from the oracle for one
// document or one spreadsheet.
type Classification struct {
	DocumentType string `json:"document_type"`
	Confidence   int    `json:"confidence"` // 0..100
	CustomerName string `json:"customer_name,omitempty"`
	Signed       bool   `json:"signed,omitempty"`
	Summary      string `json:"summary,omitempty"`

	// ExtractedFields carries any additional key/value pairs the oracle
	// surfaced (dates, registration numbers). Best-effort, may be empty.
	ExtractedFields map[string]string `json:"extracted_fields,omitempty"`
}

// PageType assigns a document type to a single page.
type PageType struct {
	PageNumber   int    `json:"page_number"`
	DocumentType string `json:"document_type"`
	Confidence   int    `json:"confidence"`
}

// PageGroup is a contiguous-or-not run of pages the oracle judged to be one
// document.
type PageGroup struct {
	DocumentType string `json:"document_type"`
	Confidence   int    `json:"confidence"`
	Pages        []int  `json:"pages"`
}

// BatchClassification is the oracle's answer for a multi-page source.
type BatchClassification struct {
	CustomerName string      `json:"customer_name,omitempty"`
	PageTypes    []PageType  `json:"page_types"`
	Groups       []PageGroup `json:"groups"`

	// PageTexts is only populated by the whole-document path, where the
	// oracle reads the pages itself.
	PageTexts []string `json:"page_texts,omitempty"`
}

// Classifier classifies one piece of extracted text.
type Classifier interface {
	Classify(ctx context.Context, rawText, typeHint string) (Classification, error)
}

// BatchClassifier classifies the concatenated per-page texts of one source
// in a single call, returning per-page types and a page grouping.
type BatchClassifier interface {
	ClassifyBatchText(ctx context.Context, pageTexts []string) (BatchClassification, error)
}

// WholeDocumentClassifier reasons over the raw document bytes directly,
// without a separate OCR pass.
type WholeDocumentClassifier interface {
	ClassifyWholeDocument(ctx context.Context, document []byte, mimeType string) (BatchClassification, error)
}
