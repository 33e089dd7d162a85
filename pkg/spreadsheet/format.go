package spreadsheet

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies a workbook file format.
type Format string

const (
	// FormatXLSX is the Office Open XML workbook.
	FormatXLSX Format = "xlsx"
	// FormatXLSM is the macro-enabled Office Open XML workbook.
	FormatXLSM Format = "xlsm"
	// FormatXLS is the legacy BIFF8 binary workbook. Read only.
	FormatXLS Format = "xls"
	// FormatCSV is comma separated values, a single sheet.
	FormatCSV Format = "csv"
)

// DetectFormat maps the extension of filename to a Format.
func DetectFormat(filename string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch Format(ext) {
	case FormatXLSX, FormatXLSM, FormatXLS, FormatCSV:
		return Format(ext), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
}

// IsOpenXML reports whether the format is one of the zipped XML workbooks.
func (f Format) IsOpenXML() bool {
	return f == FormatXLSX || f == FormatXLSM
}

// createFormat picks the writer format for a new workbook: legacy binary
// for .xls and Open XML for everything else.
func createFormat(filename string) Format {
	if format, err := DetectFormat(filename); err == nil && format == FormatXLS {
		return FormatXLS
	}
	return FormatXLSX
}
