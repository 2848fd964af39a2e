package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"churchadmin/internal/core"
	"churchadmin/internal/table"
)

// WriteXLSX writes records as a single-sheet workbook using the list
// columns of kind.
func WriteXLSX(w io.Writer, kind core.Kind, columns []table.Column, records []core.Record) error {
	return WriteSheetXLSX(w, Build(kind, columns, records, nil))
}

// WriteSheetXLSX writes s as a workbook with a bold, frozen, filterable
// header row.
func WriteSheetXLSX(w io.Writer, s Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	name := TabName(s.Title)
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(s.Headers))
	for i, h := range s.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range s.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if len(s.Headers) > 0 {
		last, err := excelize.ColumnNumberToName(len(s.Headers))
		if err != nil {
			return err
		}
		style, err := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		})
		if err != nil {
			return fmt.Errorf("header style: %w", err)
		}
		if err := f.SetCellStyle(name, "A1", last+"1", style); err != nil {
			return err
		}
		if err := f.SetColWidth(name, "A", last, 22); err != nil {
			return err
		}
		if err := f.AutoFilter(name, "A1:"+last+"1", nil); err != nil {
			return fmt.Errorf("auto filter: %w", err)
		}
		if err := f.SetPanes(name, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Filename is the download name of s, e.g. "zones-2024-05-01.xlsx".
func Filename(s Sheet) string {
	return fmt.Sprintf("%s-%s.xlsx", s.Kind.Slug(), s.GeneratedAt.Format(time.DateOnly))
}
