package constants

import "strings"

// MediaKind is the coarse input category the pipeline dispatches on.
type MediaKind string

const (
	KindImage       MediaKind = "IMAGE"
	KindPDF         MediaKind = "PDF"
	KindSpreadsheet MediaKind = "SPREADSHEET"
	KindUnsupported MediaKind = "UNSUPPORTED"
)

var imageExts = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"webp": {},
}

var spreadsheetExts = map[string]struct{}{
	"xlsx": {},
	"xlsm": {},
	"csv":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// KindForExt maps a normalized extension to its media kind.
func KindForExt(ext string) MediaKind {
	ext = NormalizeExt(ext)
	if ext == "pdf" {
		return KindPDF
	}
	if _, ok := imageExts[ext]; ok {
		return KindImage
	}
	if _, ok := spreadsheetExts[ext]; ok {
		return KindSpreadsheet
	}
	return KindUnsupported
}

// MimeForExt returns the MIME type the OCR engine expects for an extension.
func MimeForExt(ext string) string {
	switch NormalizeExt(ext) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
