package models

// SheetData represents structured data for a single sheet.
type SheetData struct {
	// Rows contains extracted rows with cell values and links.
	Rows []CellRow `json:"rows,omitempty"`
	// TableCandidates contains cell ranges likely representing tables.
	TableCandidates []string `json:"table_candidates,omitempty"`
	// Tables contains the candidates mapped onto their header rows.
	Tables []Table `json:"tables,omitempty"`
	// PrintAreas contains user-defined print areas.
	PrintAreas []PrintArea `json:"print_areas,omitempty"`
}
