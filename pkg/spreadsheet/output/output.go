// Package output serializes extraction results to JSON.
package output

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/osmaviation/spreadsheet/pkg/spreadsheet/models"
)

// ToJSON encodes v, indenting with two spaces when pretty is set. HTML
// characters are left unescaped so cell text survives as written.
func ToJSON(v any, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, v, pretty); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// WriteJSON encodes v to w followed by a newline.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// SheetToJSON encodes a single sheet.
func SheetToJSON(sheet *models.SheetData, pretty bool) ([]byte, error) {
	return ToJSON(sheet, pretty)
}

// PrintAreaViewToJSON encodes a print area view.
func PrintAreaViewToJSON(view *models.PrintAreaView, pretty bool) ([]byte, error) {
	return ToJSON(view, pretty)
}

// FileName turns a sheet name into a file name without path separators or
// characters reserved on common filesystems.
func FileName(sheet string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(sheet))
	if name == "" || name == "." || name == ".." {
		return "sheet"
	}
	return name
}
