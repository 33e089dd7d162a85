package models

import "github.com/osmaviation/spreadsheet/pkg/spreadsheet/headers"

// Table is a detected table region whose first row was used as its header.
type Table struct {
	// Range is the cell range of the table, e.g. "A1:D10".
	Range string `json:"range"`
	// Headings are the normalized header keys.
	Headings []string `json:"headings"`
	// Records holds one mapping per data row, keyed by heading.
	Records []headers.Row[string] `json:"records"`
}
