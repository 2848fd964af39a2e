// Package report turns list views into spreadsheets: XLSX downloads for the
// browser and tab appends for the Google Sheets export.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"churchadmin/internal/core"
	"churchadmin/internal/sheets"
	"churchadmin/internal/table"
)

// Sheet is a rendered report: one header row and one row per record.
// Numeric cells hold float64 so spreadsheets can sum them.
type Sheet struct {
	Kind        core.Kind
	Title       string
	Headers     []string
	Rows        [][]any
	GeneratedAt time.Time
}

// Build renders records with the list columns of their kind. names resolves
// relation IDs to display names and may be nil.
func Build(kind core.Kind, columns []table.Column, records []core.Record, names map[string]string) Sheet {
	s := Sheet{
		Kind:        kind,
		Title:       kind.Plural(),
		Headers:     make([]string, 0, len(columns)+2),
		Rows:        make([][]any, 0, len(records)),
		GeneratedAt: time.Now().UTC(),
	}
	s.Headers = append(s.Headers, "ID")
	for _, c := range columns {
		s.Headers = append(s.Headers, c.Header)
	}
	s.Headers = append(s.Headers, "Created")

	for _, r := range records {
		row := make([]any, 0, len(s.Headers))
		row = append(row, r.ID)
		for _, c := range columns {
			if c.Numeric {
				if d, err := decimal.NewFromString(strings.ReplaceAll(r.Field(c.Key), ",", ".")); err == nil {
					row = append(row, d.InexactFloat64())
					continue
				}
			}
			row = append(row, c.Cell(r, names))
		}
		row = append(row, r.CreatedAt.Format(time.DateOnly))
		s.Rows = append(s.Rows, row)
	}
	return s
}

// Exporter publishes a sheet to an external spreadsheet and returns a
// reference to the written range.
type Exporter interface {
	Export(ctx context.Context, s Sheet) (string, error)
}

// TabExporter exports each kind to its own tab.
type TabExporter struct {
	w sheets.TabWriter
}

func NewTabExporter(w sheets.TabWriter) *TabExporter {
	return &TabExporter{w: w}
}

func (e *TabExporter) Export(ctx context.Context, s Sheet) (string, error) {
	if len(s.Rows) == 0 {
		return "", nil
	}
	ref, err := e.w.AppendRows(ctx, TabName(s.Title), s.Headers, s.Rows)
	if err != nil {
		return "", fmt.Errorf("export %s: %w", s.Kind, err)
	}
	return ref, nil
}

// TabName trims title to the 31 characters spreadsheets allow and drops the
// characters they reject.
func TabName(title string) string {
	title = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return -1
		}
		return r
	}, strings.TrimSpace(title))
	if r := []rune(title); len(r) > 31 {
		title = string(r[:31])
	}
	if title == "" {
		return "Report"
	}
	return title
}
