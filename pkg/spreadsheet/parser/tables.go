package parser

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// TableDetectionParams holds parameters for table detection.
type TableDetectionParams struct {
	// DensityMin is the minimum share of non-empty cells in the bounding box.
	DensityMin float64
	// CoverageMin is the minimum share of rows in the bounding box holding data.
	CoverageMin float64
	// MinNonemptyCells is the minimum number of non-empty cells.
	MinNonemptyCells int
}

// DefaultTableParams returns default table detection parameters.
func DefaultTableParams() TableDetectionParams {
	return TableDetectionParams{
		DensityMin:       0.04,
		CoverageMin:      0.2,
		MinNonemptyCells: 3,
	}
}

// Bounds is a 0-based, inclusive rectangle of cells.
type Bounds struct {
	MinRow, MaxRow int
	MinCol, MaxCol int
}

// Range renders the bounds in A1 notation, e.g. "A1:D10".
func (b Bounds) Range() string {
	start, _ := excelize.CoordinatesToCellName(b.MinCol+1, b.MinRow+1)
	end, _ := excelize.CoordinatesToCellName(b.MaxCol+1, b.MaxRow+1)
	return fmt.Sprintf("%s:%s", start, end)
}

// Slice cuts the bounded rectangle out of rows. Short rows stay short.
func (b Bounds) Slice(rows [][]string) [][]string {
	var out [][]string
	for r := b.MinRow; r <= b.MaxRow && r < len(rows); r++ {
		row := rows[r]
		if b.MinCol >= len(row) {
			out = append(out, []string{})
			continue
		}
		end := b.MaxCol + 1
		if end > len(row) {
			end = len(row)
		}
		out = append(out, row[b.MinCol:end])
	}
	return out
}

// DetectTables returns the table-like regions of rows.
func DetectTables(rows [][]string, params TableDetectionParams) []Bounds {
	b, ok := dataBounds(rows)
	if !ok {
		return nil
	}

	totalCells := (b.MaxRow - b.MinRow + 1) * (b.MaxCol - b.MinCol + 1)
	nonEmpty, filledRows := countNonEmpty(rows, b)
	if nonEmpty < params.MinNonemptyCells {
		return nil
	}
	if float64(nonEmpty)/float64(totalCells) < params.DensityMin {
		return nil
	}
	if float64(filledRows)/float64(b.MaxRow-b.MinRow+1) < params.CoverageMin {
		return nil
	}
	return []Bounds{b}
}

// dataBounds finds the bounding box of non-empty cells.
func dataBounds(rows [][]string) (Bounds, bool) {
	b := Bounds{MinRow: -1, MaxRow: -1, MinCol: -1, MaxCol: -1}
	for rowIdx, row := range rows {
		for colIdx, cell := range row {
			if cell == "" {
				continue
			}
			if b.MinRow < 0 {
				b.MinRow = rowIdx
			}
			b.MaxRow = rowIdx
			if b.MinCol < 0 || colIdx < b.MinCol {
				b.MinCol = colIdx
			}
			if colIdx > b.MaxCol {
				b.MaxCol = colIdx
			}
		}
	}
	return b, b.MinRow >= 0
}

// countNonEmpty counts non-empty cells and rows holding at least one within b.
func countNonEmpty(rows [][]string, b Bounds) (cells, filledRows int) {
	for rowIdx := b.MinRow; rowIdx <= b.MaxRow && rowIdx < len(rows); rowIdx++ {
		row := rows[rowIdx]
		filled := false
		for colIdx := b.MinCol; colIdx <= b.MaxCol && colIdx < len(row); colIdx++ {
			if row[colIdx] != "" {
				cells++
				filled = true
			}
		}
		if filled {
			filledRows++
		}
	}
	return cells, filledRows
}
