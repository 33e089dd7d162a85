package spreadsheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet is a named worksheet of an open workbook. File exposes the engine
// for anything the helpers do not cover.
type Sheet struct {
	file *excelize.File
	name string
}

// Name returns the sheet name.
func (s *Sheet) Name() string { return s.name }

// File returns the workbook the sheet belongs to.
func (s *Sheet) File() *excelize.File { return s.file }

// SetCell writes v into the cell at the given reference, e.g. "B3".
func (s *Sheet) SetCell(cell string, v any) error {
	return s.file.SetCellValue(s.name, cell, v)
}

// Cell returns the formatted value of the cell at the given reference.
func (s *Sheet) Cell(cell string) (string, error) {
	return s.file.GetCellValue(s.name, cell)
}

// SetRow writes values left to right starting at column A of the 1-based row.
func (s *Sheet) SetRow(row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return s.file.SetSheetRow(s.name, cell, &values)
}

// AppendRow writes values into the row after the last non-empty one.
func (s *Sheet) AppendRow(values ...any) error {
	rows, err := s.file.GetRows(s.name)
	if err != nil {
		return err
	}
	return s.SetRow(len(rows)+1, values...)
}

// Rows returns every row of the sheet as formatted strings.
func (s *Sheet) Rows() ([][]string, error) {
	return s.file.GetRows(s.name)
}

// Editor edits the sheets of one workbook. The first failure is kept and
// every later call becomes a no-op; check Err when done.
type Editor struct {
	file *excelize.File
	err  error
}

func newEditor(f *excelize.File) *Editor {
	return &Editor{file: f}
}

// Sheet looks up the sheet called name, creating it when absent, and passes
// it to fn.
func (e *Editor) Sheet(name string, fn func(*Sheet) error) *Editor {
	if e.err != nil {
		return e
	}
	idx, err := e.file.GetSheetIndex(name)
	if err != nil {
		e.err = fmt.Errorf("sheet %q: %w", name, err)
		return e
	}
	if idx == -1 {
		if _, err := e.file.NewSheet(name); err != nil {
			e.err = fmt.Errorf("create sheet %q: %w", name, err)
			return e
		}
	}
	if fn == nil {
		return e
	}
	if err := fn(&Sheet{file: e.file, name: name}); err != nil {
		e.err = fmt.Errorf("edit sheet %q: %w", name, err)
	}
	return e
}

// Err returns the first error hit by Sheet.
func (e *Editor) Err() error { return e.err }

// Workbook returns the workbook being edited.
func (e *Editor) Workbook() *excelize.File { return e.file }

// SheetNames lists the workbook's sheets in order.
func (e *Editor) SheetNames() []string { return e.file.GetSheetList() }
