package form

import (
	"fmt"
	"net/url"
	"slices"

	"churchadmin/internal/core"
)

func is(field, value string) func(url.Values) bool {
	return func(v url.Values) bool { return v.Get(field) == value }
}

func isNot(field, value string) func(url.Values) bool {
	return func(v url.Values) bool { return v.Get(field) != value }
}

func oneOf(field string, values ...string) func(url.Values) bool {
	return func(v url.Values) bool { return slices.Contains(values, v.Get(field)) }
}

func text(name, label string) Field { return Field{Name: name, Label: label, Type: InputText} }
func date(name, label string) Field { return Field{Name: name, Label: label, Type: InputDate} }

func sel(name, label string, opts []core.Option) Field {
	return Field{Name: name, Label: label, Type: InputSelect, Options: opts}
}

func multi(name, label string, opts []core.Option) Field {
	return Field{Name: name, Label: label, Type: InputMulti, Options: opts}
}

func relation(name, label string, kind core.Kind) Field {
	return Field{Name: name, Label: label, Type: InputRelation, Relation: &Relation{Kind: kind}}
}

func statusField() Field {
	return sel("recordStatus", "Record status", core.OptionsOf(core.RecordStatuses()))
}

func geo(name, label string, level core.GeoLevel, parent string) Field {
	f := Field{Name: name, Label: label, Type: InputSelect}
	if parent != "" {
		f.DependsOn = []string{parent}
	}
	f.OptionsFunc = func(v url.Values) []core.Option {
		return core.GeoOptions(level, v.Get(parent))
	}
	return f
}

// residenceFields is the address cascade. Each level clears the ones below.
func residenceFields() []Field {
	sector := Field{
		Name: "urbanSector", Label: "Urban sector", Type: InputSelect,
		DependsOn: []string{"district"},
		OptionsFunc: func(v url.Values) []core.Option {
			return core.UrbanSectorOptions(v.Get("district"), nil)
		},
	}
	return []Field{
		geo("country", "Country", core.GeoCountry, ""),
		geo("department", "Department", core.GeoDepartment, "country"),
		geo("province", "Province", core.GeoProvince, "department"),
		geo("district", "District", core.GeoDistrict, "province"),
		sector,
		text("address", "Address"),
		text("referenceAddress", "Address reference"),
	}
}

// urbanSectorCheck rejects sectors that do not belong to the district.
func urbanSectorCheck(v url.Values) map[string]string {
	sector := v.Get("urbanSector")
	if sector == "" || core.UrbanSectorVisible(sector, v.Get("district"), nil) {
		return nil
	}
	return map[string]string{"urbanSector": "Select a sector of the chosen district"}
}

func memberFields() []Field {
	fields := []Field{
		text("firstNames", "First names"),
		text("lastNames", "Last names"),
		sel("gender", "Gender", core.OptionsOf(core.Genders())),
		text("originCountry", "Country of origin"),
		date("birthDate", "Birth date"),
		sel("maritalStatus", "Marital status", core.OptionsOf(core.MaritalStatuses())),
		{Name: "numberChildren", Label: "Number of children", Type: InputNumber},
		date("conversionDate", "Conversion date"),
		{Name: "email", Label: "Email", Type: InputEmail},
		text("phoneNumber", "Phone number"),
		multi("roles", "Roles", core.OptionsOf(core.MemberRoles())),
	}
	return append(fields, residenceFields()...)
}

func withStatus(mode Mode, fields []Field) []Field {
	if mode == Update {
		return append(fields, statusField())
	}
	return fields
}

func churchSchema(mode Mode) *Schema {
	fields := []Field{
		text("churchName", "Church name"),
		text("abbreviatedChurchName", "Abbreviated name"),
		date("foundingDate", "Founding date"),
		multi("serviceTimes", "Service times", core.OptionsOf(core.ServiceTimes())),
		{Name: "email", Label: "Email", Type: InputEmail},
		text("phoneNumber", "Phone number"),
		{Name: "isAnexe", Label: "Is an annex", Type: InputCheckbox},
		{
			Name: "theirMainChurch", Label: "Main church", Type: InputRelation,
			Relation:    &Relation{Kind: core.KindChurch},
			DependsOn:   []string{"isAnexe"},
			VisibleWhen: is("isAnexe", "true"),
		},
	}
	fields = append(fields, residenceFields()...)
	return &Schema{
		Kind: core.KindChurch, Purpose: PurposeRecord,
		Fields: withStatus(mode, fields),
		New:    func() any { return new(core.ChurchForm) },
		Checks: []Check{urbanSectorCheck},
	}
}

func ministrySchema(mode Mode) *Schema {
	fields := []Field{
		text("customMinistryName", "Ministry name"),
		sel("ministryType", "Ministry type", core.OptionsOf(core.MinistryTypes())),
		date("foundingDate", "Founding date"),
		multi("serviceTimes", "Service times", core.OptionsOf(core.ServiceTimes())),
		{Name: "email", Label: "Email", Type: InputEmail},
		text("phoneNumber", "Phone number"),
		relation("theirChurch", "Church", core.KindChurch),
	}
	fields = append(fields, residenceFields()...)
	return &Schema{
		Kind: core.KindMinistry, Purpose: PurposeRecord,
		Fields: withStatus(mode, fields),
		New:    func() any { return new(core.MinistryForm) },
		Checks: []Check{urbanSectorCheck},
	}
}

func memberSchema(kind core.Kind, mode Mode, newDTO func() any, extra ...Field) *Schema {
	fields := append(memberFields(), extra...)
	if mode == Update {
		fields = append(fields, statusField())
	}
	return &Schema{
		Kind: kind, Purpose: PurposeRecord,
		Fields: fields,
		New:    newDTO,
		Checks: []Check{urbanSectorCheck},
	}
}

func supervisorSchema(mode Mode) *Schema {
	return memberSchema(core.KindSupervisor, mode, func() any { return new(core.SupervisorForm) },
		Field{Name: "isDirectRelationToPastor", Label: "Reports directly to a pastor", Type: InputCheckbox},
		Field{
			Name: "theirPastor", Label: "Pastor", Type: InputRelation,
			Relation:    &Relation{Kind: core.KindPastor},
			DependsOn:   []string{"isDirectRelationToPastor"},
			VisibleWhen: is("isDirectRelationToPastor", "true"),
		},
		Field{
			Name: "theirCopastor", Label: "Copastor", Type: InputRelation,
			Relation:    &Relation{Kind: core.KindCopastor},
			DependsOn:   []string{"isDirectRelationToPastor"},
			VisibleWhen: isNot("isDirectRelationToPastor", "true"),
		},
	)
}

func zoneSchema(mode Mode) *Schema {
	fields := []Field{
		text("zoneName", "Zone name"),
		geo("department", "Department", core.GeoDepartment, ""),
		geo("province", "Province", core.GeoProvince, "department"),
		geo("district", "District", core.GeoDistrict, "province"),
		relation("theirSupervisor", "Supervisor", core.KindSupervisor),
	}
	// zones always sit in Peru
	fields[1].OptionsFunc = func(url.Values) []core.Option {
		return core.GeoOptions(core.GeoDepartment, "peru")
	}
	return &Schema{
		Kind: core.KindZone, Purpose: PurposeRecord,
		Fields: withStatus(mode, fields),
		New:    func() any { return new(core.ZoneForm) },
	}
}

func familyGroupSchema(mode Mode) *Schema {
	fields := []Field{
		text("familyGroupName", "Family group name"),
		sel("serviceTime", "Service time", core.OptionsOf(core.ServiceTimes())),
		relation("theirZone", "Zone", core.KindZone),
		{
			Name: "theirPreacher", Label: "Preacher", Type: InputRelation,
			Relation:  &Relation{Kind: core.KindPreacher, ParentField: "theirZone"},
			DependsOn: []string{"theirZone"},
		},
	}
	fields = append(fields, residenceFields()...)
	return &Schema{
		Kind: core.KindFamilyGroup, Purpose: PurposeRecord,
		Fields: withStatus(mode, fields),
		New:    func() any { return new(core.FamilyGroupForm) },
		Checks: []Check{urbanSectorCheck},
	}
}

var memberTypeOptions = []core.Option{
	{Value: string(core.KindPastor), Label: core.KindPastor.Label()},
	{Value: string(core.KindCopastor), Label: core.KindCopastor.Label()},
	{Value: string(core.KindSupervisor), Label: core.KindSupervisor.Label()},
	{Value: string(core.KindPreacher), Label: core.KindPreacher.Label()},
}

func offeringIncomeSchema(mode Mode) *Schema {
	sub := func(s ...core.OfferingIncomeSubType) func(url.Values) bool {
		values := make([]string, len(s))
		for i, v := range s {
			values[i] = string(v)
		}
		return oneOf("subType", values...)
	}
	fields := []Field{
		sel("type", "Type", core.OptionsOf(core.OfferingIncomeTypes())),
		{
			Name: "subType", Label: "Sub-type", Type: InputSelect,
			Options:     core.OptionsOf(core.OfferingIncomeSubTypes()),
			DependsOn:   []string{"type"},
			VisibleWhen: is("type", string(core.IncomeOffering)),
		},
		{
			Name: "shift", Label: "Shift", Type: InputSelect,
			Options:     core.OptionsOf(core.Shifts()),
			DependsOn:   []string{"subType"},
			VisibleWhen: sub(core.SubTypeSundayService, core.SubTypeSundaySchool),
		},
		{
			Name: "theirFamilyGroup", Label: "Family group", Type: InputRelation,
			Relation:    &Relation{Kind: core.KindFamilyGroup},
			DependsOn:   []string{"subType"},
			VisibleWhen: sub(core.SubTypeFamilyGroup),
		},
		{
			Name: "theirZone", Label: "Zone", Type: InputRelation,
			Relation:    &Relation{Kind: core.KindZone},
			DependsOn:   []string{"subType"},
			VisibleWhen: sub(core.SubTypeZonalFast, core.SubTypeZonalVigil),
		},
		{
			Name: "memberType", Label: "Member type", Type: InputSelect,
			Options:     memberTypeOptions,
			DependsOn:   []string{"subType"},
			VisibleWhen: sub(core.SubTypeSpecial, core.SubTypeChurchGround),
		},
		{
			Name: "theirMember", Label: "Member", Type: InputRelation,
			Relation:     &Relation{KindField: "memberType"},
			DependsOn:    []string{"memberType"},
			VisibleWhen:  func(v url.Values) bool { return v.Get("memberType") != "" },
			RequiredWhen: func(v url.Values) bool { return v.Get("memberType") != "" },
		},
		{Name: "amount", Label: "Amount", Type: InputNumber},
		sel("currency", "Currency", core.OptionsOf(core.Currencies())),
		date("date", "Date"),
		relation("theirChurch", "Church", core.KindChurch),
		{Name: "comments", Label: "Comments", Type: InputTextarea},
	}
	return &Schema{
		Kind: core.KindOfferingIncome, Purpose: PurposeRecord,
		Fields: withStatus(mode, fields),
		New:    func() any { return new(core.OfferingIncomeForm) },
	}
}

func offeringExpenseSchema(mode Mode) *Schema {
	fields := []Field{
		sel("type", "Type", core.OptionsOf(core.OfferingExpenseTypes())),
		{
			Name: "subType", Label: "Sub-type", Type: InputSelect,
			Options:     core.OptionsOf(core.OfferingExpenseSubTypes()),
			DependsOn:   []string{"type"},
			VisibleWhen: isNot("type", string(core.ExpenseAdjustment)),
		},
		{Name: "amount", Label: "Amount", Type: InputNumber},
		sel("currency", "Currency", core.OptionsOf(core.Currencies())),
		date("date", "Date"),
		relation("theirChurch", "Church", core.KindChurch),
		{Name: "comments", Label: "Comments", Type: InputTextarea},
	}
	return &Schema{
		Kind: core.KindOfferingExpense, Purpose: PurposeRecord,
		Fields: withStatus(mode, fields),
		New:    func() any { return new(core.OfferingExpenseForm) },
	}
}

func userSchema(mode Mode) *Schema {
	fields := []Field{
		text("firstNames", "First names"),
		text("lastNames", "Last names"),
		sel("gender", "Gender", core.OptionsOf(core.Genders())),
		{Name: "email", Label: "Email", Type: InputEmail},
	}
	if mode == Create {
		fields = append(fields,
			Field{Name: "password", Label: "Password", Type: InputPassword},
			Field{Name: "passwordConfirm", Label: "Confirm password", Type: InputPassword},
		)
	}
	fields = append(fields, multi("roles", "Roles", core.OptionsOf(core.UserRoles())))
	s := &Schema{Kind: core.KindUser, Purpose: PurposeRecord, Fields: withStatus(mode, fields)}
	if mode == Create {
		s.New = func() any { return new(core.UserCreateForm) }
	} else {
		s.New = func() any { return new(core.UserUpdateForm) }
	}
	return s
}

func inactivationSchema(kind core.Kind) *Schema {
	if kind.IsOffering() {
		return &Schema{
			Kind: kind, Purpose: PurposeInactivate,
			Fields: []Field{
				sel("offeringInactivationReason", "Reason", core.OptionsOf(core.OfferingInactivationReasons())),
				{Name: "offeringInactivationDescription", Label: "Description", Type: InputTextarea},
			},
			New: func() any { return new(core.OfferingInactivationForm) },
		}
	}
	return &Schema{
		Kind: kind, Purpose: PurposeInactivate,
		Fields: []Field{
			sel("inactivationCategory", "Category", core.OptionsOf(core.InactivationCategories())),
			{Name: "inactivationReason", Label: "Reason", Type: InputTextarea},
		},
		New: func() any { return new(core.InactivationForm) },
	}
}

// SchemaFor returns the schema of kind for the given purpose and mode.
func SchemaFor(kind core.Kind, purpose Purpose, mode Mode) (*Schema, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	var s *Schema
	if purpose == PurposeInactivate {
		s = inactivationSchema(kind)
		s.Title = "Inactivate " + kind.Label()
		return s, nil
	}
	switch kind {
	case core.KindChurch:
		s = churchSchema(mode)
	case core.KindMinistry:
		s = ministrySchema(mode)
	case core.KindPastor:
		s = memberSchema(kind, mode, func() any { return new(core.PastorForm) },
			relation("theirChurch", "Church", core.KindChurch))
	case core.KindCopastor:
		s = memberSchema(kind, mode, func() any { return new(core.CopastorForm) },
			relation("theirPastor", "Pastor", core.KindPastor))
	case core.KindSupervisor:
		s = supervisorSchema(mode)
	case core.KindZone:
		s = zoneSchema(mode)
	case core.KindPreacher:
		s = memberSchema(kind, mode, func() any { return new(core.PreacherForm) },
			relation("theirZone", "Zone", core.KindZone),
			relation("theirSupervisor", "Supervisor", core.KindSupervisor))
	case core.KindFamilyGroup:
		s = familyGroupSchema(mode)
	case core.KindOfferingIncome:
		s = offeringIncomeSchema(mode)
	case core.KindOfferingExpense:
		s = offeringExpenseSchema(mode)
	case core.KindUser:
		s = userSchema(mode)
	}
	if mode == Create {
		s.Title = "New " + kind.Label()
	} else {
		s.Title = "Edit " + kind.Label()
	}
	return s, nil
}
