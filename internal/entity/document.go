package entity

import (
	"path/filepath"

	"github.com/weiliang-ho/dealerdocs/constants"
)

// FileDescriptor identifies one input file for data transfer between layers.
// Immutable once created.
type FileDescriptor struct {
	Name string              `json:"name"`
	Data []byte              `json:"-"`
	Kind constants.MediaKind `json:"kind"`
}

// NewFileDescriptor builds a descriptor, deriving the media kind from the
// file extension.
func NewFileDescriptor(name string, data []byte) FileDescriptor {
	return FileDescriptor{
		Name: name,
		Data: data,
		Kind: constants.KindForExt(filepath.Ext(name)),
	}
}

// ClassificationSource records which strategy produced a result.
type ClassificationSource string

const (
	SourceAI          ClassificationSource = "ai"
	SourceHeuristic   ClassificationSource = "heuristic"
	SourceSpreadsheet ClassificationSource = "spreadsheet"
	SourceNone        ClassificationSource = "none"
)

// ClassificationResult is the outcome of classifying one file. Produced
// exactly once per descriptor; replaced wholesale on re-classification.
type ClassificationResult struct {
	DocumentType constants.DocumentType `json:"document_type"`
	Confidence   int                    `json:"confidence"` // 0..100
	Folder       string                 `json:"folder"`
	Milestone    string                 `json:"milestone"`
	CustomerName string                 `json:"customer_name,omitempty"`
	Summary      string                 `json:"summary,omitempty"`
	Signed       bool                   `json:"signed"`
	RawText      string                 `json:"raw_text,omitempty"`
	Source       ClassificationSource   `json:"source"`

	// UsedNetwork tells the scheduler whether this item consumed an
	// external call, so throttling can skip local short-circuits.
	UsedNetwork bool `json:"-"`
}

// PageClassification scopes classification fields to one page of a
// multi-page source. Pages are 1-indexed and ordered.
type PageClassification struct {
	PageNumber   int                    `json:"page_number"`
	DocumentType constants.DocumentType `json:"document_type"`
	Confidence   int                    `json:"confidence"`
	RawText      string                 `json:"raw_text,omitempty"`
	Thumbnail    []byte                 `json:"-"`
}

// SplitDocument is an ordered set of page numbers assigned one document
// type, destined to become one output file. Output is populated by the
// splitter; a group emptied by blank-page filtering is discarded.
type SplitDocument struct {
	DocumentType constants.DocumentType `json:"document_type"`
	Confidence   int                    `json:"confidence"`
	Pages        []int                  `json:"pages"`
	Output       []byte                 `json:"-"`
}

// AnalysisResult is the outcome of analyzing one multi-page source.
type AnalysisResult struct {
	Pages        []PageClassification `json:"pages"`
	Groups       []SplitDocument      `json:"groups"`
	CustomerName string               `json:"customer_name,omitempty"`
	Strategy     string               `json:"strategy"`
}

// BatchProgress is the transient payload emitted after each completed item.
type BatchProgress struct {
	Completed int
	Total     int
	Filename  string
	Result    *ClassificationResult
}
