package spreadsheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Writer encodes a workbook in one format.
type Writer interface {
	Format() Format
	WriteTo(w io.Writer) (int64, error)
}

// NewWriter returns the writer for format bound to f.
func NewWriter(f *excelize.File, format Format) (Writer, error) {
	switch format {
	case FormatXLSX, FormatXLSM:
		return &openXMLWriter{file: f, format: format}, nil
	case FormatCSV:
		return &csvWriter{file: f}, nil
	case FormatXLS:
		return legacyWriter{}, nil
	}
	return nil, fmt.Errorf("%w: no writer for %q", ErrUnsupportedFormat, format)
}

type openXMLWriter struct {
	file   *excelize.File
	format Format
}

func (w *openXMLWriter) Format() Format { return w.format }

func (w *openXMLWriter) WriteTo(out io.Writer) (int64, error) {
	return w.file.WriteTo(out)
}

// legacyWriter stands in for the BIFF8 encoder; there is none in the Go
// ecosystem, so every write fails with ErrLegacyWrite.
type legacyWriter struct{}

func (legacyWriter) Format() Format { return FormatXLS }

func (legacyWriter) WriteTo(io.Writer) (int64, error) {
	return 0, ErrLegacyWrite
}
