package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// csvSheetName is the single sheet a CSV file exposes.
const csvSheetName = "Sheet1"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type csvReader struct {
	data []byte
}

func newCSVReader(data []byte) *csvReader {
	return &csvReader{data: bytes.TrimPrefix(data, utf8BOM)}
}

func (r *csvReader) Format() Format { return FormatCSV }

func (r *csvReader) SheetNames() []string { return []string{csvSheetName} }

func (r *csvReader) EachRow(sheet string, fn func(row []string) error) error {
	if sheet != csvSheetName {
		return excelize.ErrSheetNotExist{SheetName: sheet}
	}
	cr := csv.NewReader(bytes.NewReader(r.data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse csv: %w", err)
		}
		if err := fn(record); err != nil {
			return err
		}
	}
}

func (r *csvReader) Rows(sheet string) ([][]string, error) {
	return collectRows(r, sheet)
}

func (r *csvReader) Close() error { return nil }

// csvWriter encodes the active sheet; CSV holds no more than one.
type csvWriter struct {
	file *excelize.File
}

func (w *csvWriter) Format() Format { return FormatCSV }

func (w *csvWriter) WriteTo(out io.Writer) (int64, error) {
	sheet := w.file.GetSheetName(w.file.GetActiveSheetIndex())
	rows, err := w.file.GetRows(sheet)
	if err != nil {
		return 0, err
	}
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.WriteAll(rows); err != nil {
		return 0, fmt.Errorf("encode csv: %w", err)
	}
	return buf.WriteTo(out)
}
