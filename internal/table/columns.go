package table

import (
	"strings"

	"churchadmin/internal/core"
)

func textCol(key, header string) Column {
	return Column{Key: key, Header: header, Sortable: true, Filter: FilterText}
}

func dateCol(key, header string) Column {
	return Column{Key: key, Header: header, Sortable: true, Filter: FilterText}
}

func relationCol(key, header string) Column {
	return Column{Key: key, Header: header, Sortable: true, Filter: FilterText, Relation: true}
}

// enumCol shows enum labels and filters on the raw value.
func enumCol[E core.Enum](key, header string, values []E) Column {
	return Column{
		Key:      key,
		Header:   header,
		Sortable: true,
		Filter:   FilterSelect,
		Options:  core.OptionsOf(values),
		Format: func(r core.Record) string {
			raw := r.Field(key)
			if l, ok := core.LabelOf[E](raw); ok {
				return l
			}
			return raw
		},
	}
}

// enumListCol renders multi-select values such as roles.
func enumListCol[E core.Enum](key, header string) Column {
	return Column{
		Key:    key,
		Header: header,
		Filter: FilterText,
		Format: func(r core.Record) string {
			parts := strings.Split(r.Field(key), ", ")
			out := parts[:0]
			for _, p := range parts {
				if p == "" {
					continue
				}
				if l, ok := core.LabelOf[E](p); ok {
					p = l
				}
				out = append(out, p)
			}
			return strings.Join(out, ", ")
		},
	}
}

func nameCol() Column {
	return Column{
		Key:      "fullName",
		Header:   "Name",
		Sortable: true,
		Filter:   FilterText,
		Format: func(r core.Record) string {
			return strings.TrimSpace(r.Field("firstNames") + " " + r.Field("lastNames"))
		},
	}
}

func amountCol() Column {
	return Column{
		Key:      "amount",
		Header:   "Amount",
		Sortable: true,
		Numeric:  true,
		Format: func(r core.Record) string {
			return core.FormatAmount(r.Field("amount"), core.Currency(r.Field("currency")))
		},
	}
}

func districtCol() Column {
	return Column{
		Key:      "district",
		Header:   "District",
		Sortable: true,
		Filter:   FilterSelect,
		Options:  core.GeoOptions(core.GeoDistrict, "lima"),
		Format: func(r core.Record) string {
			if l, ok := core.GeoLabel(core.GeoDistrict, r.Field("district")); ok {
				return l
			}
			return r.Field("district")
		},
	}
}

func statusCol() Column {
	return enumCol("recordStatus", "Status", core.RecordStatuses())
}

// ColumnsFor returns the list columns of kind.
func ColumnsFor(kind core.Kind) []Column {
	switch kind {
	case core.KindChurch:
		return []Column{
			textCol("abbreviatedChurchName", "Name"),
			dateCol("foundingDate", "Founded"),
			districtCol(),
			textCol("phoneNumber", "Phone"),
			relationCol("theirMainChurch", "Main church"),
			statusCol(),
		}
	case core.KindMinistry:
		return []Column{
			textCol("customMinistryName", "Name"),
			enumCol("ministryType", "Type", core.MinistryTypes()),
			relationCol("theirChurch", "Church"),
			statusCol(),
		}
	case core.KindPastor:
		return memberColumns(relationCol("theirChurch", "Church"))
	case core.KindCopastor:
		return memberColumns(relationCol("theirPastor", "Pastor"))
	case core.KindSupervisor:
		return memberColumns(relationCol("theirCopastor", "Copastor"), relationCol("theirPastor", "Pastor"))
	case core.KindPreacher:
		return memberColumns(relationCol("theirZone", "Zone"), relationCol("theirSupervisor", "Supervisor"))
	case core.KindZone:
		return []Column{
			textCol("zoneName", "Name"),
			districtCol(),
			relationCol("theirSupervisor", "Supervisor"),
			statusCol(),
		}
	case core.KindFamilyGroup:
		return []Column{
			textCol("familyGroupName", "Name"),
			enumCol("serviceTime", "Service time", core.ServiceTimes()),
			relationCol("theirZone", "Zone"),
			relationCol("theirPreacher", "Preacher"),
			districtCol(),
			statusCol(),
		}
	case core.KindOfferingIncome:
		return []Column{
			dateCol("date", "Date"),
			enumCol("type", "Type", core.OfferingIncomeTypes()),
			enumCol("subType", "Sub-type", core.OfferingIncomeSubTypes()),
			amountCol(),
			enumCol("currency", "Currency", core.Currencies()),
			relationCol("theirChurch", "Church"),
			statusCol(),
		}
	case core.KindOfferingExpense:
		return []Column{
			dateCol("date", "Date"),
			enumCol("type", "Type", core.OfferingExpenseTypes()),
			enumCol("subType", "Sub-type", core.OfferingExpenseSubTypes()),
			amountCol(),
			enumCol("currency", "Currency", core.Currencies()),
			relationCol("theirChurch", "Church"),
			statusCol(),
		}
	case core.KindUser:
		return []Column{
			nameCol(),
			textCol("email", "Email"),
			enumListCol[core.UserRole]("roles", "Roles"),
			statusCol(),
		}
	}
	return nil
}

func memberColumns(relations ...Column) []Column {
	cols := []Column{
		nameCol(),
		enumCol("gender", "Gender", core.Genders()),
		dateCol("birthDate", "Birth date"),
		districtCol(),
	}
	cols = append(cols, relations...)
	return append(cols, statusCol())
}

// RelationKinds maps the relation columns of kind to the kinds whose names
// they show, so the caller can resolve display names.
func RelationKinds(kind core.Kind) map[string]core.Kind {
	out := map[string]core.Kind{}
	for _, c := range ColumnsFor(kind) {
		if !c.Relation {
			continue
		}
		switch c.Key {
		case "theirMainChurch", "theirChurch":
			out[c.Key] = core.KindChurch
		case "theirPastor":
			out[c.Key] = core.KindPastor
		case "theirCopastor":
			out[c.Key] = core.KindCopastor
		case "theirSupervisor":
			out[c.Key] = core.KindSupervisor
		case "theirZone":
			out[c.Key] = core.KindZone
		case "theirPreacher":
			out[c.Key] = core.KindPreacher
		}
	}
	return out
}
