// Package models defines the JSON documents produced by structured extraction.
package models

// CellRow represents a single non-empty row of cells with optional hyperlinks.
type CellRow struct {
	// R is the row index (1-based).
	R int `json:"r"`
	// C maps column index (1-based, as a string) to the typed cell value.
	C map[string]any `json:"c"`
	// Links maps column index to hyperlink target (optional).
	Links map[string]string `json:"links,omitempty"`
}
