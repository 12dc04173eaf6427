package extractor

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for file types the extractor does not
// handle. ErrNoText is returned for supported files that yield no usable
// text. Both are content errors, not system errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNoText            = errors.New("no text could be extracted")
)

// Extractor turns an uploaded document into plain transcript text.
type Extractor interface {
	Extract(filename string, data []byte) (string, error)
}

// SourceType tags a record's origin: "text" for direct input, or
// "file_<ext>" for an uploaded document.
func SourceType(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if len(ext) == 0 {
		return "text"
	}
	return "file_" + ext
}
