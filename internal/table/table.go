// Package table filters, sorts and pages records for the generic list view.
package table

import (
	"cmp"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"churchadmin/internal/core"
)

type FilterType int

const (
	FilterNone FilterType = iota
	FilterText
	FilterSelect
)

// Column describes one table column. Format renders the cell; by default the
// record field named Key is shown.
type Column struct {
	Key      string
	Header   string
	Sortable bool
	Filter   FilterType
	Options  []core.Option
	// Numeric columns sort by value instead of text.
	Numeric bool
	// Relation columns hold a record ID shown through Options.Names.
	Relation bool
	Format   func(core.Record) string
}

// Cell renders the column for r. Relation columns resolve IDs through names.
func (c Column) Cell(r core.Record, names map[string]string) string {
	if c.Relation {
		id := r.Field(c.Key)
		if n, ok := names[id]; ok {
			return n
		}
		return id
	}
	if c.Format != nil {
		return c.Format(r)
	}
	return r.Field(c.Key)
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	filterPrefix    = "f."
)

// Params is the table view requested by the browser.
type Params struct {
	SortBy   string
	Desc     bool
	Filters  map[string]string
	Page     int
	PageSize int
}

// ParseParams reads sort, desc, page, size and f.<column> keys.
func ParseParams(v url.Values) Params {
	p := Params{
		SortBy:   v.Get("sort"),
		Desc:     v.Get("desc") == "1" || v.Get("desc") == "true",
		Filters:  map[string]string{},
		Page:     1,
		PageSize: DefaultPageSize,
	}
	if n, err := strconv.Atoi(v.Get("page")); err == nil && n > 0 {
		p.Page = n
	}
	if n, err := strconv.Atoi(v.Get("size")); err == nil && n > 0 {
		p.PageSize = min(n, MaxPageSize)
	}
	for k, vals := range v {
		if key, ok := strings.CutPrefix(k, filterPrefix); ok && key != "" {
			if f := strings.TrimSpace(vals[0]); f != "" {
				p.Filters[key] = f
			}
		}
	}
	return p
}

// Values encodes p back into query parameters.
func (p Params) Values() url.Values {
	v := url.Values{}
	if p.SortBy != "" {
		v.Set("sort", p.SortBy)
		if p.Desc {
			v.Set("desc", "1")
		}
	}
	if p.Page > 1 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 && p.PageSize != DefaultPageSize {
		v.Set("size", strconv.Itoa(p.PageSize))
	}
	for k, f := range p.Filters {
		v.Set(filterPrefix+k, f)
	}
	return v
}

// SortQuery is the query string that sorts by key, flipping the direction
// when the table is already sorted by it.
func (p Params) SortQuery(key string) string {
	next := p
	next.Desc = p.SortBy == key && !p.Desc
	next.SortBy = key
	next.Page = 1
	return next.Values().Encode()
}

func (p Params) PageQuery(page int) string {
	next := p
	next.Page = page
	return next.Values().Encode()
}

type State string

const (
	StateLoading  State = "loading"
	StateDisabled State = "disabled"
	StateEmpty    State = "empty"
	StateReady    State = "ready"
)

type Options struct {
	Loading bool
	// FiltersDisabled hides the table entirely.
	FiltersDisabled bool
	// Names maps record IDs to display names for relation columns.
	Names map[string]string
}

type Row struct {
	Record core.Record
	Cells  []string
}

type Result struct {
	Columns []Column
	Rows    []Row
	Params  Params
	Page    int
	Pages   int
	Total   int
	State   State
}

// Apply filters, sorts and pages records. Text filters match fuzzily,
// ignoring case and diacritics; select filters match the raw field exactly.
// Sorting is stable so equal cells keep backend order.
func Apply(records []core.Record, columns []Column, p Params, opts Options) Result {
	res := Result{Columns: columns, Params: p, Page: 1, Pages: 1}
	switch {
	case opts.Loading:
		res.State = StateLoading
		return res
	case opts.FiltersDisabled:
		res.State = StateDisabled
		return res
	}

	rows := make([]Row, 0, len(records))
	for _, r := range records {
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = c.Cell(r, opts.Names)
		}
		if matches(r, cells, columns, p.Filters) {
			rows = append(rows, Row{Record: r, Cells: cells})
		}
	}

	if i := slices.IndexFunc(columns, func(c Column) bool { return c.Key == p.SortBy && c.Sortable }); i >= 0 {
		col := columns[i]
		slices.SortStableFunc(rows, func(a, b Row) int {
			var c int
			if col.Numeric {
				c = cmp.Compare(number(a.Record.Field(col.Key)), number(b.Record.Field(col.Key)))
			} else {
				c = strings.Compare(strings.ToLower(a.Cells[i]), strings.ToLower(b.Cells[i]))
			}
			if p.Desc {
				return -c
			}
			return c
		})
	}

	res.Total = len(rows)
	if res.Total == 0 {
		res.State = StateEmpty
		return res
	}
	size := p.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	res.Pages = (res.Total + size - 1) / size
	res.Page = min(max(p.Page, 1), res.Pages)
	start := (res.Page - 1) * size
	res.Rows = rows[start:min(start+size, res.Total)]
	res.State = StateReady
	return res
}

func matches(r core.Record, cells []string, columns []Column, filters map[string]string) bool {
	for key, f := range filters {
		i := slices.IndexFunc(columns, func(c Column) bool { return c.Key == key })
		if i < 0 {
			continue
		}
		switch columns[i].Filter {
		case FilterSelect:
			if r.Field(key) != f {
				return false
			}
		case FilterText:
			if !fuzzy.MatchNormalizedFold(f, cells[i]) {
				return false
			}
		}
	}
	return true
}

func number(s string) float64 {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0
	}
	return f
}
