package http

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"churchadmin/internal/core"
)

type kindCount struct {
	Kind   core.Kind
	Label  string
	URL    string
	Active int
}

// handleDashboard shows how many active records each kind has. The counts
// load concurrently and go through the query cache, so a dashboard visit
// also warms the list pages.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	var kinds []core.Kind
	for _, k := range core.Kinds() {
		if k == core.KindUser && !sess.CanManage(k) {
			continue
		}
		kinds = append(kinds, k)
	}

	counts := make([]kindCount, len(kinds))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(4)
	for i, k := range kinds {
		g.Go(func() error {
			records, err := s.searchAll(ctx, k, core.SearchQuery{Status: core.StatusActive})
			if err != nil {
				return err
			}
			counts[i] = kindCount{Kind: k, Label: k.Plural(), URL: "/" + k.Slug(), Active: len(records)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.backendFailed(w, r, err, "dashboard")
		return
	}
	s.render(w, r, http.StatusOK, "dashboard.html", s.page(r, "Dashboard", "", counts))
}
