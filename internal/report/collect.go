package report

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"churchadmin/internal/core"
	"churchadmin/internal/table"
)

const DefaultPageSize = 200

// Searcher is the backend search a report reads from.
type Searcher interface {
	Search(ctx context.Context, kind core.Kind, q core.SearchQuery) ([]core.Record, error)
}

// Collect reads every record of kind matching q and builds its sheet with
// relation IDs resolved to display names.
func Collect(ctx context.Context, s Searcher, kind core.Kind, q core.SearchQuery, pageSize int) (Sheet, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	records, err := SearchAll(ctx, s, kind, q, pageSize)
	if err != nil {
		return Sheet{}, fmt.Errorf("search %s: %w", kind, err)
	}
	names, err := RelationNames(ctx, s, kind, pageSize)
	if err != nil {
		return Sheet{}, err
	}
	return Build(kind, table.ColumnsFor(kind), records, names), nil
}

// SearchAll pages through the backend until a short page comes back.
func SearchAll(ctx context.Context, s Searcher, kind core.Kind, q core.SearchQuery, pageSize int) ([]core.Record, error) {
	var out []core.Record
	q.Limit = pageSize
	for q.Offset = 0; ; q.Offset += pageSize {
		page, err := s.Search(ctx, kind, q)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < pageSize {
			return out, nil
		}
	}
}

// RelationNames loads the display names of every kind referenced by the
// relation columns of kind, one search per kind in parallel.
func RelationNames(ctx context.Context, s Searcher, kind core.Kind, pageSize int) (map[string]string, error) {
	kinds := map[core.Kind]bool{}
	for _, k := range table.RelationKinds(kind) {
		kinds[k] = true
	}
	var (
		mu    sync.Mutex
		names = map[string]string{}
	)
	g, ctx := errgroup.WithContext(ctx)
	for k := range kinds {
		g.Go(func() error {
			records, err := SearchAll(ctx, s, k, core.SearchQuery{}, pageSize)
			if err != nil {
				return fmt.Errorf("resolve %s names: %w", k, err)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, r := range records {
				names[r.ID] = r.DisplayName()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return names, nil
}
