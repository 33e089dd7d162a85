package parser

import (
	"strings"

	"github.com/osmaviation/spreadsheet/pkg/spreadsheet/models"
	"github.com/xuri/excelize/v2"
)

const printAreaName = "_xlnm.Print_Area"

// ExtractPrintAreas returns the print areas of f keyed by sheet name.
func ExtractPrintAreas(f *excelize.File) map[string][]models.PrintArea {
	result := make(map[string][]models.PrintArea)
	for _, dn := range f.GetDefinedName() {
		if !strings.EqualFold(dn.Name, printAreaName) {
			continue
		}
		sheetName, areas := parsePrintAreaReference(dn.RefersTo)
		if sheetName == "" && dn.Scope != "" && dn.Scope != "Workbook" {
			sheetName = dn.Scope
		}
		if sheetName != "" && len(areas) > 0 {
			result[sheetName] = append(result[sheetName], areas...)
		}
	}
	return result
}

// parsePrintAreaReference parses 'Sheet Name'!$A$1:$D$10[,...] references.
func parsePrintAreaReference(ref string) (string, []models.PrintArea) {
	var (
		sheetName string
		areas     []models.PrintArea
	)
	for _, part := range strings.Split(ref, ",") {
		part = strings.TrimSpace(part)
		idx := strings.LastIndex(part, "!")
		if idx < 0 {
			continue
		}
		if sheetName == "" {
			sheetName = strings.ReplaceAll(strings.Trim(part[:idx], "'"), "''", "'")
		}
		if area, ok := parseRange(part[idx+1:]); ok {
			areas = append(areas, area)
		}
	}
	return sheetName, areas
}

// parseRange parses $A$1:$D$10 into a PrintArea.
func parseRange(rangeStr string) (models.PrintArea, bool) {
	start, end, ok := strings.Cut(strings.ReplaceAll(rangeStr, "$", ""), ":")
	if !ok {
		return models.PrintArea{}, false
	}
	c1, r1, err := excelize.CellNameToCoordinates(start)
	if err != nil {
		return models.PrintArea{}, false
	}
	c2, r2, err := excelize.CellNameToCoordinates(end)
	if err != nil {
		return models.PrintArea{}, false
	}
	return models.PrintArea{R1: r1, C1: c1, R2: r2, C2: c2}, true
}

// ViewOf restricts rows to area, dropping cells outside its columns.
func ViewOf(bookName, sheetName string, rows []models.CellRow, area models.PrintArea) models.PrintAreaView {
	view := models.PrintAreaView{BookName: bookName, SheetName: sheetName, Area: area}
	for _, row := range rows {
		if !area.Contains(row.R) {
			continue
		}
		trimmed := models.CellRow{R: row.R, C: make(map[string]any)}
		for col, v := range row.C {
			if inColumns(col, area) {
				trimmed.C[col] = v
			}
		}
		for col, target := range row.Links {
			if inColumns(col, area) {
				if trimmed.Links == nil {
					trimmed.Links = make(map[string]string)
				}
				trimmed.Links[col] = target
			}
		}
		if len(trimmed.C) > 0 {
			view.Rows = append(view.Rows, trimmed)
		}
	}
	return view
}

func inColumns(col string, area models.PrintArea) bool {
	n := 0
	for _, ch := range col {
		if ch < '0' || ch > '9' {
			return false
		}
		n = n*10 + int(ch-'0')
	}
	return n >= area.C1 && n <= area.C2
}
