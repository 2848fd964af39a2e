// Package memory is an in-process spreadsheet used when no Google
// spreadsheet is configured, and by tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"churchadmin/internal/sheets"
)

var _ sheets.TabWriter = (*Store)(nil)

type Store struct {
	mu   sync.Mutex
	tabs map[string][][]any
}

func New() *Store {
	return &Store{tabs: make(map[string][][]any)}
}

// AppendRows stores rows under tab and returns a synthetic A1 range.
func (s *Store) AppendRows(_ context.Context, tab string, header []string, rows [][]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.tabs[tab]
	if len(existing) == 0 && len(header) > 0 {
		h := make([]any, len(header))
		for i, v := range header {
			h[i] = v
		}
		existing = append(existing, h)
	}
	first := len(existing) + 1
	for _, r := range rows {
		existing = append(existing, slices.Clone(r))
	}
	s.tabs[tab] = existing
	return fmt.Sprintf("%s!A%d:A%d", tab, first, len(existing)), nil
}

// Rows returns a copy of tab including its header row.
func (s *Store) Rows(tab string) [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.tabs[tab]))
	for i, r := range s.tabs[tab] {
		out[i] = slices.Clone(r)
	}
	return out
}

// Tabs lists the tab names in sorted order.
func (s *Store) Tabs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tabs))
	for t := range s.tabs {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}
