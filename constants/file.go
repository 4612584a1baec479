// Package constants holds shared file-handling constants.
package constants

import "strings"

// PDFExtension is the only ingestible document format.
const PDFExtension = "pdf"

// PDFMagic is the header every well-formed PDF starts with.
var PDFMagic = []byte("%PDF-")

// AllowedExtensions holds the file extensions ingestion accepts.
var AllowedExtensions = map[string]struct{}{
	PDFExtension: {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
