package form

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churchadmin/internal/core"
)

func validate(t *testing.T, kind core.Kind, purpose Purpose, mode Mode, values url.Values) (any, map[string]string) {
	t.Helper()
	s, err := SchemaFor(kind, purpose, mode)
	require.NoError(t, err)
	return DefaultValidator().Validate(s, values)
}

func validMember() url.Values {
	return url.Values{
		"firstNames":       {"Juan Carlos"},
		"lastNames":        {"Perez Diaz"},
		"gender":           {"male"},
		"originCountry":    {"Peru"},
		"birthDate":        {"1980-02-14"},
		"maritalStatus":    {"married"},
		"numberChildren":   {"2"},
		"roles":            {"supervisor", "disciple"},
		"country":          {"peru"},
		"department":       {"lima"},
		"province":         {"lima"},
		"district":         {"comas"},
		"urbanSector":      {"collique"},
		"address":          {"Jr. Los Pinos 456"},
		"referenceAddress": {"Behind the market"},
	}
}

func TestSupervisorRequiresExactlyOneLeader(t *testing.T) {
	cases := []struct {
		name    string
		extra   []string
		errKeys []string
	}{
		{"direct with pastor", []string{"isDirectRelationToPastor", "true", "theirPastor", "p-1"}, nil},
		{"direct without pastor", []string{"isDirectRelationToPastor", "true"}, []string{"theirPastor"}},
		{"indirect with copastor", []string{"theirCopastor", "cp-1"}, nil},
		{"indirect without copastor", nil, []string{"theirCopastor"}},
		{"direct with both", []string{"isDirectRelationToPastor", "true", "theirPastor", "p-1", "theirCopastor", "cp-1"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, errs := validate(t, core.KindSupervisor, PurposeRecord, Create, with(validMember(), tc.extra...))
			keys := make([]string, 0, len(errs))
			for k := range errs {
				keys = append(keys, k)
			}
			assert.ElementsMatch(t, tc.errKeys, keys)
		})
	}
}

func TestSupervisorDirectRelationResetsBothLeaders(t *testing.T) {
	s, err := SchemaFor(core.KindSupervisor, PurposeRecord, Create)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"theirPastor", "theirCopastor"}, s.Dependents("isDirectRelationToPastor"))
}

func TestSupervisorHiddenLeaderIsExcluded(t *testing.T) {
	// A copastor left behind on a direct relation must not be sent.
	_, errs := validate(t, core.KindSupervisor, PurposeRecord, Create,
		with(validMember(), "isDirectRelationToPastor", "true", "theirPastor", "p-1", "theirCopastor", "cp-1"))
	assert.Empty(t, errs)

	m := NewMachine(mustSchema(t, core.KindSupervisor, Create), Create, nil, DefaultTimings())
	_, err := m.Change("theirCopastor", with(validMember(), "theirCopastor", "cp-1"))
	require.NoError(t, err)
	reset, err := m.Change("isDirectRelationToPastor", with(validMember(), "isDirectRelationToPastor", "true", "theirCopastor", "cp-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"theirCopastor"}, reset)
	v := m.View()
	assert.Contains(t, v.Errors, "theirPastor")
	assert.Empty(t, v.Values.Get("theirCopastor"))
}

func mustSchema(t *testing.T, kind core.Kind, mode Mode) *Schema {
	t.Helper()
	s, err := SchemaFor(kind, PurposeRecord, mode)
	require.NoError(t, err)
	return s
}

func validIncome() url.Values {
	return url.Values{
		"type":        {"offering"},
		"subType":     {"sunday-service"},
		"shift":       {"day"},
		"amount":      {"150.50"},
		"currency":    {"PEN"},
		"date":        {"2024-03-03"},
		"theirChurch": {"c-1"},
	}
}

func TestOfferingIncomeConditionalFields(t *testing.T) {
	cases := []struct {
		name   string
		values url.Values
		errKey string
	}{
		{"valid sunday service", validIncome(), ""},
		{"sunday service needs shift", with(validIncome(), "shift", ""), "shift"},
		{"family group needs group", with(validIncome(), "subType", "family-group", "shift", ""), "theirFamilyGroup"},
		{"zonal vigil needs zone", with(validIncome(), "subType", "zonal-vigil", "shift", ""), "theirZone"},
		{"special needs member type", with(validIncome(), "subType", "special", "shift", ""), "memberType"},
		{"member type needs member", with(validIncome(), "subType", "special", "shift", "", "memberType", "pastor"), "theirMember"},
		{"offering needs sub type", with(validIncome(), "subType", "", "shift", ""), "subType"},
		{"adjustment needs comments", url.Values{
			"type": {"income-adjustment"}, "amount": {"5"}, "currency": {"USD"},
			"date": {"2024-03-03"}, "theirChurch": {"c-1"},
		}, "comments"},
		{"bad amount", with(validIncome(), "amount", "-3"), "amount"},
		{"bad currency", with(validIncome(), "currency", "BTC"), "currency"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, errs := validate(t, core.KindOfferingIncome, PurposeRecord, Create, tc.values)
			if tc.errKey == "" {
				assert.Empty(t, errs)
				return
			}
			assert.Contains(t, errs, tc.errKey)
		})
	}
}

func TestOfferingExpenseAdjustment(t *testing.T) {
	base := url.Values{
		"type": {"expense-adjustment"}, "amount": {"20"}, "currency": {"PEN"},
		"date": {"2024-04-01"}, "theirChurch": {"c-1"},
	}
	_, errs := validate(t, core.KindOfferingExpense, PurposeRecord, Create, base)
	assert.Contains(t, errs, "comments")
	assert.NotContains(t, errs, "subType")

	_, errs = validate(t, core.KindOfferingExpense, PurposeRecord, Create, with(base, "comments", "Cash count correction"))
	assert.Empty(t, errs)

	_, errs = validate(t, core.KindOfferingExpense, PurposeRecord, Create, with(base, "type", "supplies-expenses", "comments", ""))
	assert.Contains(t, errs, "subType")
}

func TestOfferingInactivationRequiresReasonAndDescription(t *testing.T) {
	cases := []struct {
		reason, description string
		ok                  bool
	}{
		{"", "", false},
		{"duplicate-record", "", false},
		{"duplicate-record", "abcd", false},
		{"", "Entered twice", false},
		{"duplicate-record", "abcde", true},
	}
	for _, tc := range cases {
		values := url.Values{
			"offeringInactivationReason":      {tc.reason},
			"offeringInactivationDescription": {tc.description},
		}
		s, err := SchemaFor(core.KindOfferingExpense, PurposeInactivate, Update)
		require.NoError(t, err)
		m := NewMachine(s, Update, nil, DefaultTimings())
		_, err = m.Change("offeringInactivationDescription", values)
		require.NoError(t, err)
		v := m.View()
		assert.Equal(t, !tc.ok, v.SubmitDisabled, "%q/%q", tc.reason, tc.description)
	}
}

func TestMemberInactivationSchema(t *testing.T) {
	_, errs := validate(t, core.KindPastor, PurposeInactivate, Update, url.Values{
		"inactivationCategory": {"member-request"},
		"inactivationReason":   {"Moved abroad"},
	})
	assert.Empty(t, errs)
}

func TestUserForms(t *testing.T) {
	create := url.Values{
		"firstNames": {"Ana"}, "lastNames": {"Lopez"}, "gender": {"female"},
		"email": {"ana@example.org"}, "password": {"s3cretpass"}, "passwordConfirm": {"s3cretpass"},
		"roles": {"admin-user"},
	}
	dto, errs := validate(t, core.KindUser, PurposeRecord, Create, create)
	require.Empty(t, errs)

	payload, err := Payload(dto)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.org", payload["email"])
	assert.NotContains(t, payload, "passwordConfirm")

	_, errs = validate(t, core.KindUser, PurposeRecord, Create, with(create, "passwordConfirm", "other"))
	assert.Contains(t, errs, "passwordConfirm")

	_, errs = validate(t, core.KindUser, PurposeRecord, Create, with(create, "roles", "pope"))
	assert.Contains(t, errs, "roles")

	s := mustSchema(t, core.KindUser, Update)
	_, ok := s.Field("password")
	assert.False(t, ok)
}

func TestPayloadFlattensEmbeddedBlocks(t *testing.T) {
	values := with(validMember(), "theirChurch", "c-1")
	dto, errs := validate(t, core.KindPastor, PurposeRecord, Create, values)
	require.Empty(t, errs)

	payload, err := Payload(dto)
	require.NoError(t, err)
	assert.Equal(t, "Juan Carlos", payload["firstNames"])
	assert.Equal(t, "collique", payload["urbanSector"])
	assert.Equal(t, "c-1", payload["theirChurch"])
	assert.Equal(t, float64(2), payload["numberChildren"])
}

func TestValuesFromRecord(t *testing.T) {
	s := mustSchema(t, core.KindChurch, Update)
	r := core.Record{
		ID: "c-9", Kind: core.KindChurch, Status: core.StatusInactive,
		Data: map[string]any{
			"churchName":   "Anexo Norte",
			"serviceTimes": []any{"09:00", "16:00"},
			"isAnexe":      true,
			"unknownKey":   "ignored",
		},
	}
	v := ValuesFromRecord(s, r)
	assert.Equal(t, "Anexo Norte", v.Get("churchName"))
	assert.Equal(t, []string{"09:00", "16:00"}, v["serviceTimes"])
	assert.Equal(t, "true", v.Get("isAnexe"))
	assert.Equal(t, "inactive", v.Get("recordStatus"))
	assert.NotContains(t, v, "unknownKey")
}

func TestClearHiddenMarksSwitchedOffRelations(t *testing.T) {
	s := mustSchema(t, core.KindSupervisor, Update)
	values := with(validMember(), "theirCopastor", "cp-1", "recordStatus", "active")
	assert.Equal(t, []string{"theirPastor"}, HiddenFields(s, values))

	payload := map[string]any{"theirCopastor": "cp-1", "isDirectRelationToPastor": false}
	ClearHidden(s, values, payload)
	assert.Contains(t, payload, "theirPastor")
	assert.Nil(t, payload["theirPastor"])
	assert.Equal(t, "cp-1", payload["theirCopastor"])

	church := mustSchema(t, core.KindChurch, Update)
	assert.NotContains(t, HiddenFields(church, url.Values{"isAnexe": {"true"}}), "theirMainChurch")
	assert.Contains(t, HiddenFields(church, url.Values{}), "theirMainChurch")
}

func TestEverySchemaBuilds(t *testing.T) {
	for _, k := range core.Kinds() {
		for _, mode := range []Mode{Create, Update} {
			s, err := SchemaFor(k, PurposeRecord, mode)
			require.NoError(t, err)
			assert.NotEmpty(t, s.Fields, k)
			assert.NotNil(t, s.New(), k)
			assert.NotEmpty(t, s.Title)
		}
		s, err := SchemaFor(k, PurposeInactivate, Update)
		require.NoError(t, err)
		assert.Len(t, s.Fields, 2)
	}
	_, err := SchemaFor("deacon", PurposeRecord, Create)
	assert.Error(t, err)
}

func TestRelationKindFromField(t *testing.T) {
	s := mustSchema(t, core.KindOfferingIncome, Create)
	f, ok := s.Field("theirMember")
	require.True(t, ok)
	k, ok := f.ResolveKind(url.Values{"memberType": {"preacher"}})
	assert.True(t, ok)
	assert.Equal(t, core.KindPreacher, k)
	_, ok = f.ResolveKind(url.Values{})
	assert.False(t, ok)
}

type fakeReleaser struct{ released []string }

func (f *fakeReleaser) ReleaseForm(id string) int {
	f.released = append(f.released, id)
	return 1
}

func TestRegistryReleasesOnCloseAndEviction(t *testing.T) {
	rel := &fakeReleaser{}
	r := NewRegistry(2, time.Hour, rel, nil)
	s := mustSchema(t, core.KindZone, Create)

	a := r.Open(&Instance{Kind: core.KindZone, SessionID: "s1", Machine: NewMachine(s, Create, nil, DefaultTimings())})
	b := r.Open(&Instance{Kind: core.KindZone, SessionID: "s1", Machine: NewMachine(s, Create, nil, DefaultTimings())})
	require.NotEqual(t, a, b)

	_, ok := r.Get(a, "s2")
	assert.False(t, ok, "other sessions cannot reach the form")
	inst, ok := r.Get(a, "s1")
	require.True(t, ok)
	assert.Equal(t, core.KindZone, inst.Kind)

	r.Open(&Instance{Kind: core.KindZone, SessionID: "s1", Machine: NewMachine(s, Create, nil, DefaultTimings())})
	assert.Equal(t, []string{b}, rel.released)

	r.Close(a)
	assert.Equal(t, []string{b, a}, rel.released)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryCloseSession(t *testing.T) {
	rel := &fakeReleaser{}
	r := NewRegistry(10, time.Hour, rel, nil)
	s := mustSchema(t, core.KindZone, Create)
	open := func(session string) string {
		return r.Open(&Instance{Kind: core.KindZone, SessionID: session, Machine: NewMachine(s, Create, nil, DefaultTimings())})
	}
	a, b := open("s1"), open("s1")
	kept := open("s2")

	assert.Equal(t, 2, r.CloseSession("s1"))
	assert.ElementsMatch(t, []string{a, b}, rel.released)
	_, ok := r.Get(kept, "s2")
	assert.True(t, ok)
	assert.Zero(t, r.CloseSession("s1"))
}
