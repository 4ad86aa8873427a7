// Package ocr defines the text-extraction boundary. The engine is an opaque
// external capability; every failure it raises is caught one layer up by the
// single-item classifier.
package ocr

import "context"

// Engine converts an image (or a PDF page rendered to an image) into raw
// extracted text.
type Engine interface {
	ExtractText(ctx context.Context, image []byte, mimeType string) (string, error)
}
