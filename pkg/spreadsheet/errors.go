package spreadsheet

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat indicates a filename whose extension maps to no reader or writer.
var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

// ErrLegacyWrite indicates an attempt to encode a legacy binary .xls workbook.
var ErrLegacyWrite = errors.New("writing legacy .xls workbooks is not supported")

// ErrNoWorkbook indicates Store was called before Create or Load.
var ErrNoWorkbook = errors.New("no workbook has been created or loaded")

// OperationError reports which service operation failed and on what file.
type OperationError struct {
	Op       string // "create", "load", "read", "store", "extract"
	Disk     string
	Filename string
	Err      error
}

func (e *OperationError) Error() string {
	if e.Disk == "" {
		return fmt.Sprintf("spreadsheet %s %q: %v", e.Op, e.Filename, e.Err)
	}
	return fmt.Sprintf("spreadsheet %s %q on disk %q: %v", e.Op, e.Filename, e.Disk, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

func opError(op, disk, filename string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Op: op, Disk: disk, Filename: filename, Err: err}
}

// ExtractionError represents an error while extracting one sheet.
type ExtractionError struct {
	SheetName string
	Component string // "cells", "tables", "print_areas"
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction error in sheet %q (%s): %v", e.SheetName, e.Component, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
