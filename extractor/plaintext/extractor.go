package plaintext

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/w-h-a/sales-insight/extractor"
)

type plaintextExtractor struct{}

func (e *plaintextExtractor) Extract(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var text string
	var err error

	switch ext {
	case ".txt", ".text", ".md", ".log":
		text = string(data)
	case ".csv":
		text, err = flattenCSV(data)
		if err != nil {
			return "", fmt.Errorf("%w: %v", extractor.ErrNoText, err)
		}
	default:
		return "", fmt.Errorf("%w: %s", extractor.ErrUnsupportedFormat, ext)
	}

	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return "", extractor.ErrNoText
	}

	return text, nil
}

func flattenCSV(data []byte) (string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, row := range rows {
		sb.WriteString(strings.Join(row, ", "))
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

func NewExtractor() extractor.Extractor {
	return &plaintextExtractor{}
}
