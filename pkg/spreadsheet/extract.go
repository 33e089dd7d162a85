package spreadsheet

import (
	"context"
	"path"

	"github.com/osmaviation/spreadsheet/pkg/spreadsheet/headers"
	"github.com/osmaviation/spreadsheet/pkg/spreadsheet/models"
	"github.com/osmaviation/spreadsheet/pkg/spreadsheet/parser"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Extract loads filename from disk (or the local file system when disk is
// empty) and returns its structured content. A zero Mode falls back to the
// Service's configured extraction options.
func (s *Service) Extract(ctx context.Context, disk, filename string, opts ExtractOptions) (*models.WorkbookData, error) {
	if opts.Mode == "" {
		opts = s.extract
	}
	if err := s.Load(ctx, filename, disk, nil); err != nil {
		return nil, err
	}
	format, _ := DetectFormat(filename)
	wb, err := ExtractWorkbook(s.file, path.Base(filename), opts, s.normalizer.Func(ctx))
	if err != nil {
		return nil, opError("extract", disk, filename, err)
	}
	wb.Format = string(format)
	s.log.Debug("workbook extracted",
		zap.String("disk", disk),
		zap.String("filename", filename),
		zap.String("mode", string(opts.Mode)),
		zap.Int("sheets", len(wb.Sheets)))
	return wb, nil
}

// ExtractWorkbook builds the structured view of every sheet in f. normalize
// keys the detected tables; nil uses headers.Normalize.
func ExtractWorkbook(f *excelize.File, bookName string, opts ExtractOptions, normalize func(string) string) (*models.WorkbookData, error) {
	if normalize == nil {
		normalize = headers.Normalize
	}
	wb := &models.WorkbookData{
		BookName:   bookName,
		SheetOrder: f.GetSheetList(),
		Sheets:     make(map[string]models.SheetData),
	}

	for _, sheetName := range wb.SheetOrder {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, &ExtractionError{SheetName: sheetName, Component: "cells", Err: err}
		}

		var links parser.LinkFunc
		if opts.ShouldIncludeLinks() {
			links = parser.WorkbookLinks(f, sheetName)
		}
		sheet := models.SheetData{Rows: parser.ExtractCells(rows, links)}

		if opts.ShouldDetectTables() {
			for _, b := range parser.DetectTables(rows, parser.DefaultTableParams()) {
				assoc := headers.AssociateWith(b.Slice(rows), normalize)
				sheet.TableCandidates = append(sheet.TableCandidates, b.Range())
				sheet.Tables = append(sheet.Tables, models.Table{
					Range:    b.Range(),
					Headings: assoc.Headings,
					Records:  assoc.Data,
				})
			}
		}
		wb.Sheets[sheetName] = sheet
	}

	if opts.ShouldIncludePrintAreas() {
		for sheetName, areas := range parser.ExtractPrintAreas(f) {
			if sheet, ok := wb.Sheets[sheetName]; ok {
				sheet.PrintAreas = areas
				wb.Sheets[sheetName] = sheet
			}
		}
	}

	return wb, nil
}
