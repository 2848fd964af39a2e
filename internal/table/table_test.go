package table

import (
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churchadmin/internal/core"
)

func preacher(id, first, last, gender, zone string) core.Record {
	return core.Record{
		ID:     id,
		Kind:   core.KindPreacher,
		Status: core.StatusActive,
		Data: map[string]any{
			"firstNames": first, "lastNames": last, "gender": gender, "theirZone": zone,
		},
	}
}

func fixtures() []core.Record {
	return []core.Record{
		preacher("1", "José", "Pérez", "male", "z-1"),
		preacher("2", "Maria", "Lopez", "female", "z-2"),
		preacher("3", "Ana", "Perez", "female", "z-1"),
		preacher("4", "Pedro", "Alva", "male", "z-2"),
	}
}

func ids(res Result) []string {
	out := make([]string, len(res.Rows))
	for i, r := range res.Rows {
		out[i] = r.Record.ID
	}
	return out
}

func TestParseParams(t *testing.T) {
	v, err := url.ParseQuery("sort=fullName&desc=1&page=2&size=500&f.gender=male&f.fullName=+jo+&f.empty=")
	require.NoError(t, err)
	p := ParseParams(v)
	assert.Equal(t, "fullName", p.SortBy)
	assert.True(t, p.Desc)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, MaxPageSize, p.PageSize)
	assert.Equal(t, map[string]string{"gender": "male", "fullName": "jo"}, p.Filters)

	assert.Equal(t, Params{Filters: map[string]string{}, Page: 1, PageSize: DefaultPageSize}, ParseParams(url.Values{}))
}

func TestSortQueryTogglesDirection(t *testing.T) {
	p := Params{SortBy: "fullName", Page: 3, PageSize: DefaultPageSize}
	assert.Equal(t, "desc=1&sort=fullName", p.SortQuery("fullName"))
	assert.Equal(t, "sort=gender", p.SortQuery("gender"))
	assert.Equal(t, "page=2&sort=fullName", p.PageQuery(2))
}

func TestApplyFuzzyTextFilterIgnoresAccents(t *testing.T) {
	cols := ColumnsFor(core.KindPreacher)
	res := Apply(fixtures(), cols, Params{Filters: map[string]string{"fullName": "perez"}, PageSize: 10}, Options{})
	assert.Equal(t, StateReady, res.State)
	assert.ElementsMatch(t, []string{"1", "3"}, ids(res))
}

func TestApplySelectFilterIsExact(t *testing.T) {
	cols := ColumnsFor(core.KindPreacher)
	res := Apply(fixtures(), cols, Params{Filters: map[string]string{"gender": "male"}, PageSize: 10}, Options{})
	assert.Equal(t, []string{"1", "4"}, ids(res))
	assert.Equal(t, "Male", res.Rows[0].Cells[1])
}

func TestApplyStableSort(t *testing.T) {
	cols := ColumnsFor(core.KindPreacher)
	res := Apply(fixtures(), cols, Params{SortBy: "gender", PageSize: 10}, Options{})
	// Equal genders keep their input order.
	assert.Equal(t, []string{"2", "3", "1", "4"}, ids(res))

	res = Apply(fixtures(), cols, Params{SortBy: "gender", Desc: true, PageSize: 10}, Options{})
	assert.Equal(t, []string{"1", "4", "2", "3"}, ids(res))
}

func TestApplyIgnoresUnsortableColumn(t *testing.T) {
	cols := []Column{{Key: "firstNames"}}
	res := Apply(fixtures(), cols, Params{SortBy: "firstNames", PageSize: 10}, Options{})
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(res))
}

func TestApplyPaging(t *testing.T) {
	var rs []core.Record
	for i := range 25 {
		rs = append(rs, preacher(fmt.Sprint(i), "P", fmt.Sprint(i), "male", "z"))
	}
	cols := ColumnsFor(core.KindPreacher)

	res := Apply(rs, cols, Params{Page: 3, PageSize: 10}, Options{})
	assert.Equal(t, 25, res.Total)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 3, res.Page)
	assert.Len(t, res.Rows, 5)

	res = Apply(rs, cols, Params{Page: 99, PageSize: 10}, Options{})
	assert.Equal(t, 3, res.Page, "page clamps to the last page")
}

func TestApplyStates(t *testing.T) {
	cols := ColumnsFor(core.KindPreacher)
	assert.Equal(t, StateLoading, Apply(fixtures(), cols, Params{}, Options{Loading: true}).State)
	assert.Equal(t, StateDisabled, Apply(fixtures(), cols, Params{}, Options{FiltersDisabled: true}).State)
	assert.Equal(t, StateEmpty, Apply(nil, cols, Params{}, Options{}).State)
	empty := Apply(fixtures(), cols, Params{Filters: map[string]string{"fullName": "zzz"}}, Options{})
	assert.Equal(t, StateEmpty, empty.State)
	assert.Empty(t, empty.Rows)
}

func TestRelationColumnsUseNames(t *testing.T) {
	cols := ColumnsFor(core.KindPreacher)
	res := Apply(fixtures()[:1], cols, Params{PageSize: 10}, Options{Names: map[string]string{"z-1": "Zona Norte"}})
	require.Len(t, res.Rows, 1)
	assert.Contains(t, res.Rows[0].Cells, "Zona Norte")

	assert.Equal(t, map[string]core.Kind{"theirZone": core.KindZone, "theirSupervisor": core.KindSupervisor},
		RelationKinds(core.KindPreacher))
}

func TestAmountColumnSortsNumerically(t *testing.T) {
	mk := func(id, amount string) core.Record {
		return core.Record{ID: id, Kind: core.KindOfferingIncome, Data: map[string]any{"amount": amount, "currency": "USD"}}
	}
	rs := []core.Record{mk("a", "100"), mk("b", "9.5"), mk("c", "20")}
	res := Apply(rs, ColumnsFor(core.KindOfferingIncome), Params{SortBy: "amount", PageSize: 10}, Options{})
	assert.Equal(t, []string{"b", "c", "a"}, ids(res))
	assert.Equal(t, "$9.50", res.Rows[0].Cells[3])
}

func TestEveryKindHasColumns(t *testing.T) {
	for _, k := range core.Kinds() {
		assert.NotEmpty(t, ColumnsFor(k), k)
	}
}
