package spreadsheet

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Reader gives read-only, row-by-row access to a workbook without building
// an editable copy.
type Reader interface {
	// Format is the detected file format.
	Format() Format
	// SheetNames lists the sheets in workbook order.
	SheetNames() []string
	// EachRow streams the rows of sheet to fn, stopping at the first error.
	EachRow(sheet string, fn func(row []string) error) error
	// Rows collects every row of sheet.
	Rows(sheet string) ([][]string, error)
	// Close releases the underlying workbook.
	Close() error
}

// OpenReader detects the format from filename and opens a Reader over r.
func OpenReader(filename string, r io.Reader) (Reader, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	return openReaderBytes(format, data)
}

func openReaderBytes(format Format, data []byte) (Reader, error) {
	switch format {
	case FormatXLSX, FormatXLSM:
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return &openXMLReader{file: f, format: format}, nil
	case FormatXLS:
		return openLegacyReader(data)
	case FormatCSV:
		return newCSVReader(data), nil
	}
	return nil, fmt.Errorf("%w: no reader for %q", ErrUnsupportedFormat, format)
}

// FirstSheet returns the first sheet name of r, or "" for an empty workbook.
func FirstSheet(r Reader) string {
	names := r.SheetNames()
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

func collectRows(r Reader, sheet string) ([][]string, error) {
	var rows [][]string
	err := r.EachRow(sheet, func(row []string) error {
		rows = append(rows, row)
		return nil
	})
	return rows, err
}

type openXMLReader struct {
	file   *excelize.File
	format Format
}

func (r *openXMLReader) Format() Format { return r.format }

func (r *openXMLReader) SheetNames() []string { return r.file.GetSheetList() }

func (r *openXMLReader) EachRow(sheet string, fn func(row []string) error) error {
	rows, err := r.file.Rows(sheet)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return err
		}
		if err := fn(cols); err != nil {
			return err
		}
	}
	return rows.Error()
}

func (r *openXMLReader) Rows(sheet string) ([][]string, error) {
	return collectRows(r, sheet)
}

func (r *openXMLReader) Close() error { return r.file.Close() }
