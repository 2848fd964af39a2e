package http

import (
	"context"
	"html/template"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"churchadmin/internal/core"
	"churchadmin/internal/query"
	"churchadmin/internal/report"
	"churchadmin/internal/table"
	"churchadmin/internal/uistate"
)

// searchKeys are the list parameters sent to the backend. Everything else
// in the query string is table state applied in the console.
var searchKeys = []string{"by", "term", "first", "last", "from", "to", "status"}

// searchQueryFrom builds the backend search of a list request. Lists show
// active records unless status asks otherwise.
func searchQueryFrom(v url.Values) core.SearchQuery {
	q := core.SearchQuery{Status: core.StatusActive}
	switch v.Get("status") {
	case "all":
		q.Status = ""
	case string(core.StatusInactive):
		q.Status = core.StatusInactive
	}

	switch by := core.SearchType(v.Get("by")); by {
	case core.SearchFullName:
		q.Term = core.FormatSearchTerm(by, v.Get("first"), v.Get("last"))
	case core.SearchDateRange:
		q.Term = core.FormatSearchTerm(by, v.Get("from"), v.Get("to"))
	case core.SearchFirstName, core.SearchLastName, core.SearchDate, core.SearchText:
		q.Term = core.FormatSearchTerm(by, v.Get("term"))
	default:
		if t := strings.TrimSpace(v.Get("term")); t != "" {
			q.Term = core.FormatSearchTerm(core.SearchText, t)
		}
	}
	return q
}

func searchValues(v url.Values) url.Values {
	out := url.Values{}
	for _, k := range searchKeys {
		if val := strings.TrimSpace(v.Get(k)); val != "" {
			out.Set(k, val)
		}
	}
	return out
}

type listView struct {
	Kind      core.Kind
	Slug      string
	Title     string
	Search    url.Values
	CanManage bool
	Table     tableView
}

// ReportURL is the workbook download of the current search. The query is
// built here because templates escape it as one component.
func (v listView) ReportURL() template.URL {
	u := "/" + v.Slug + "/report"
	if q := v.Search.Encode(); q != "" {
		u += "?" + q
	}
	return template.URL(u)
}

type tableView struct {
	Kind      core.Kind
	Slug      string
	Result    table.Result
	Flags     uistate.Flags
	Search    url.Values
	CanManage bool
}

// Link is the table partial URL for a table query, keeping the search.
func (v tableView) Link(tableQuery string) string {
	u := "/" + v.Slug + "/table"
	q := v.Search.Encode()
	if tableQuery != "" {
		if q != "" {
			q += "&"
		}
		q += tableQuery
	}
	if q == "" {
		return u
	}
	return u + "?" + q
}

// handleList renders the page shell. The table arrives with a follow-up
// request so the page shows its loading state first.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	kind := kindFrom(r)
	sess := sessionFrom(r)
	v := r.URL.Query()
	tv := tableView{
		Kind:      kind,
		Slug:      kind.Slug(),
		Flags:     s.ui.Get(sess.ID, kind),
		Search:    searchValues(v),
		CanManage: sess.CanManage(kind),
	}
	tv.Result = table.Apply(nil, table.ColumnsFor(kind), table.ParseParams(v), table.Options{Loading: true})
	s.render(w, r, http.StatusOK, "list.html", s.page(r, kind.Plural(), kind, listView{
		Kind:      kind,
		Slug:      kind.Slug(),
		Title:     kind.Plural(),
		Search:    tv.Search,
		CanManage: tv.CanManage,
		Table:     tv,
	}))
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	kind := kindFrom(r)
	sess := sessionFrom(r)
	v := r.URL.Query()
	tv := tableView{
		Kind:      kind,
		Slug:      kind.Slug(),
		Flags:     s.ui.Get(sess.ID, kind),
		Search:    searchValues(v),
		CanManage: sess.CanManage(kind),
	}
	columns := table.ColumnsFor(kind)
	params := table.ParseParams(v)

	if tv.Flags.FiltersDisabled {
		tv.Result = table.Apply(nil, columns, params, table.Options{FiltersDisabled: true})
		s.render(w, r, http.StatusOK, "table.html", tv)
		return
	}

	records, err := s.searchAll(r.Context(), kind, searchQueryFrom(v))
	if err != nil {
		s.backendFailed(w, r, err, "search")
		return
	}
	names, err := report.RelationNames(r.Context(), cachedSearcher{s}, kind, report.DefaultPageSize)
	if err != nil {
		s.backendFailed(w, r, err, "relation_names")
		return
	}
	tv.Result = table.Apply(records, columns, params, table.Options{Names: names})
	s.render(w, r, http.StatusOK, "table.html", tv)
}

func (s *Server) handleToggleFilters(w http.ResponseWriter, r *http.Request) {
	kind, err := core.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	visible := s.ui.ToggleFilters(sessionFrom(r).ID, kind)
	NewHTMXResponse().
		Trigger(EventListRefresh, map[string]any{"kind": kind.Slug(), "filtersVisible": visible}).
		NoSwap().
		Write(w)
}

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

// handleOptions lists the active records of a kind as select options. With
// by set the options depend on a parent selection and nothing is fetched
// until parent has a value.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	kind, err := core.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	v := r.URL.Query()
	records, err := s.relationRecords(r, kind, v.Get("by"), v.Get("parent"))
	if err != nil {
		s.backendFailed(w, r, err, "options")
		return
	}
	s.render(w, r, http.StatusOK, "options.html",
		optionsFrom(records, v.Get("exclude"), v["selected"]))
}

func (s *Server) relationRecords(r *http.Request, kind core.Kind, by, parent string) ([]core.Record, error) {
	q := core.SearchQuery{Status: core.StatusActive}
	if by == "" {
		return s.searchAll(r.Context(), kind, q)
	}
	q.Filters = map[string]string{by: parent}
	return s.queries.FetchDependent(r.Context(), query.KeyFor(kind, q), parent, func(ctx context.Context) ([]core.Record, error) {
		return report.SearchAll(ctx, s.backend, kind, q, report.DefaultPageSize)
	})
}

func optionsFrom(records []core.Record, exclude string, selected []string) []optionView {
	out := make([]optionView, 0, len(records))
	for _, rec := range records {
		if rec.ID == exclude {
			continue
		}
		out = append(out, optionView{
			Value:    rec.ID,
			Label:    rec.DisplayName(),
			Selected: slices.Contains(selected, rec.ID),
		})
	}
	return out
}
