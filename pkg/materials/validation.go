package materials

import (
	"fmt"
	"net/http"
	"strings"
)

// MIMEPDF is the only accepted content type.
const MIMEPDF = "application/pdf"

// Validate checks an upload against the size limit and PDF magic bytes.
// The filename extension is not trusted.
func Validate(data []byte, maxSize int64) error {
	if len(data) == 0 {
		return ErrEmptyFile
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, len(data), maxSize)
	}
	if got := DetectMIME(data); got != MIMEPDF {
		return fmt.Errorf("%w: detected %s", ErrNotPDF, got)
	}
	return nil
}

// DetectMIME returns the base content type sniffed from the first 512 bytes.
func DetectMIME(data []byte) string {
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}
