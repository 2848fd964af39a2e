package sheets

import "context"

// Ports for outbound spreadsheet adapters.
type (
	// TabWriter appends rows to a named tab, creating the tab and writing
	// header first when the tab is new or empty. It returns the A1 range of
	// the appended rows.
	TabWriter interface {
		AppendRows(ctx context.Context, tab string, header []string, rows [][]any) (rangeRef string, err error)
	}
)
