package common

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/wvf-labs/docparse/constants"
)

// ValidatePDFUpload rejects bad input before any pipeline work starts: a
// non-PDF extension, an empty body, a body over maxBytes, or a body that does
// not begin with the PDF header. maxBytes <= 0 disables the size check.
func ValidatePDFUpload(filename string, data []byte, maxBytes int64) error {
	ext := constants.NormalizeExt(filepath.Ext(filename))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return NewAppError("INVALID_FILE_TYPE",
			fmt.Sprintf("unsupported file type %q, only PDF is accepted", ext), ErrInvalidInput)
	}
	if len(data) == 0 {
		return NewAppError("EMPTY_FILE", "uploaded file is empty", ErrInvalidInput)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return NewAppError("FILE_TOO_LARGE",
			fmt.Sprintf("file is %d bytes, limit is %d", len(data), maxBytes), ErrInvalidInput)
	}
	if !bytes.HasPrefix(data, constants.PDFMagic) {
		return NewAppError("INVALID_PDF", "file does not look like a PDF", ErrInvalidInput)
	}
	return nil
}
