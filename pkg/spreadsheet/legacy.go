package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

const legacyCharset = "utf-8"

type legacyReader struct {
	book *xls.WorkBook
}

func openLegacyReader(data []byte) (*legacyReader, error) {
	book, err := xls.OpenReader(bytes.NewReader(data), legacyCharset)
	if err != nil {
		return nil, fmt.Errorf("parse xls: %w", err)
	}
	// A compound file without a Workbook stream yields no book and no error.
	if book == nil {
		return nil, errors.New("parse xls: no workbook stream")
	}
	return &legacyReader{book: book}, nil
}

func (r *legacyReader) Format() Format { return FormatXLS }

func (r *legacyReader) SheetNames() []string {
	names := make([]string, 0, r.book.NumSheets())
	for i := 0; i < r.book.NumSheets(); i++ {
		if ws := r.book.GetSheet(i); ws != nil {
			names = append(names, ws.Name)
		}
	}
	return names
}

func (r *legacyReader) sheet(name string) *xls.WorkSheet {
	for i := 0; i < r.book.NumSheets(); i++ {
		if ws := r.book.GetSheet(i); ws != nil && ws.Name == name {
			return ws
		}
	}
	return nil
}

// EachRow yields rows 0..MaxRow. Missing rows inside the range come through
// empty; empty rows at the end are dropped.
func (r *legacyReader) EachRow(sheet string, fn func(row []string) error) error {
	ws := r.sheet(sheet)
	if ws == nil {
		return excelize.ErrSheetNotExist{SheetName: sheet}
	}
	pending := 0
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := rowAt(ws, i)
		if row == nil || row.LastCol() <= 0 {
			pending++
			continue
		}
		for ; pending > 0; pending-- {
			if err := fn([]string{}); err != nil {
				return err
			}
		}
		cols := make([]string, row.LastCol())
		for j := range cols {
			cols[j] = row.Col(j)
		}
		if err := fn(cols); err != nil {
			return err
		}
	}
	return nil
}

// rowAt returns row i of ws, or nil when the sheet has no record for it.
// WorkSheet.Row dereferences the missing row and panics.
func rowAt(ws *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(i)
}

func (r *legacyReader) Rows(sheet string) ([][]string, error) {
	return collectRows(r, sheet)
}

func (r *legacyReader) Close() error { return nil }

// toWorkbook copies every sheet of r into a new in-memory workbook so formats
// without an editable engine model can be loaded like Open XML ones.
func toWorkbook(r Reader) (*excelize.File, error) {
	names := r.SheetNames()
	f := excelize.NewFile()
	if len(names) == 0 {
		return f, nil
	}
	if first := f.GetSheetName(0); first != names[0] {
		if err := f.SetSheetName(first, names[0]); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	for _, name := range names[1:] {
		if _, err := f.NewSheet(name); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("create sheet %q: %w", name, err)
		}
	}
	for _, name := range names {
		rowNum := 0
		err := r.EachRow(name, func(row []string) error {
			rowNum++
			if len(row) == 0 {
				return nil
			}
			values := make([]any, len(row))
			for i, v := range row {
				values[i] = v
			}
			cell, err := excelize.CoordinatesToCellName(1, rowNum)
			if err != nil {
				return err
			}
			return f.SetSheetRow(name, cell, &values)
		})
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("copy sheet %q: %w", name, err)
		}
	}
	return f, nil
}
