// Package adapter normalizes arbitrary input files into the payloads the
// OCR engine and classification oracle expect. It never calls out.
package adapter

import (
	"encoding/base64"
	"fmt"
	"path/filepath"

	"github.com/weiliang-ho/dealerdocs/constants"
	"github.com/weiliang-ho/dealerdocs/internal/common"
	"github.com/weiliang-ho/dealerdocs/internal/entity"
)

// ImagePayload holds an image encoded for the OCR engine.
type ImagePayload struct {
	DataURL  string
	MimeType string
	Bytes    []byte
}

// Image encodes a descriptor's bytes as a data URL for vision-style APIs.
// PDF descriptors are passed through with their PDF MIME type; the engine
// decides whether it can consume them directly.
func Image(fd entity.FileDescriptor) (ImagePayload, error) {
	if len(fd.Data) == 0 {
		return ImagePayload{}, fmt.Errorf("%w: empty payload for %q", common.ErrInvalidInput, fd.Name)
	}
	switch fd.Kind {
	case constants.KindImage, constants.KindPDF:
	default:
		return ImagePayload{}, fmt.Errorf("%w: media kind %s has no image payload", common.ErrUnsupported, fd.Kind)
	}

	mt := constants.MimeForExt(filepath.Ext(fd.Name))
	data := base64.StdEncoding.EncodeToString(fd.Data)
	return ImagePayload{
		DataURL:  "data:" + mt + ";base64," + data,
		MimeType: mt,
		Bytes:    fd.Data,
	}, nil
}
