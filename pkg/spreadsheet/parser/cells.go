// Package parser derives structured sheet data from raw workbook rows.
package parser

import (
	"strconv"

	"github.com/osmaviation/spreadsheet/pkg/spreadsheet/models"
	"github.com/xuri/excelize/v2"
)

// LinkFunc returns the hyperlink target of the cell at the 1-based column and
// row, if any.
type LinkFunc func(col, row int) (string, bool)

// WorkbookLinks returns a LinkFunc reading hyperlinks of sheetName from f.
func WorkbookLinks(f *excelize.File, sheetName string) LinkFunc {
	return func(col, row int) (string, bool) {
		cellName, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return "", false
		}
		hasLink, target, err := f.GetCellHyperLink(sheetName, cellName)
		if err != nil || !hasLink || target == "" {
			return "", false
		}
		return target, true
	}
}

// ExtractCells converts rows into CellRows, skipping rows without data.
// links may be nil.
func ExtractCells(rows [][]string, links LinkFunc) []models.CellRow {
	var result []models.CellRow
	for rowIdx, row := range rows {
		rowNum := rowIdx + 1
		cellMap := make(map[string]any)
		linkMap := make(map[string]string)

		for colIdx, cellValue := range row {
			if cellValue == "" {
				continue
			}
			colStr := strconv.Itoa(colIdx + 1)
			cellMap[colStr] = parseValue(cellValue)

			if links != nil {
				if target, ok := links(colIdx+1, rowNum); ok {
					linkMap[colStr] = target
				}
			}
		}

		if len(cellMap) == 0 {
			continue
		}
		cellRow := models.CellRow{R: rowNum, C: cellMap}
		if len(linkMap) > 0 {
			cellRow.Links = linkMap
		}
		result = append(result, cellRow)
	}
	return result
}

// parseValue returns int64 for integers, float64 for decimals, or s itself.
func parseValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
