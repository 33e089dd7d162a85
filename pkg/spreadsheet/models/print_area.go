package models

// PrintArea represents cell coordinate bounds for a print area.
type PrintArea struct {
	// R1 is the start row (1-based).
	R1 int `json:"r1"`
	// C1 is the start column (1-based).
	C1 int `json:"c1"`
	// R2 is the end row (1-based, inclusive).
	R2 int `json:"r2"`
	// C2 is the end column (1-based, inclusive).
	C2 int `json:"c2"`
}

// Contains reports whether the 1-based row r lies inside the area.
func (a PrintArea) Contains(r int) bool {
	return r >= a.R1 && r <= a.R2
}

// PrintAreaView represents a slice of a sheet restricted to a print area.
type PrintAreaView struct {
	BookName  string    `json:"book_name"`
	SheetName string    `json:"sheet_name"`
	Area      PrintArea `json:"area"`
	// Rows contains rows within the area bounds, trimmed to its columns.
	Rows []CellRow `json:"rows,omitempty"`
}
