package core

import "fmt"

// Kind identifies a backend-owned entity managed by the console.
type Kind string

const (
	KindChurch          Kind = "church"
	KindMinistry        Kind = "ministry"
	KindPastor          Kind = "pastor"
	KindCopastor        Kind = "copastor"
	KindSupervisor      Kind = "supervisor"
	KindZone            Kind = "zone"
	KindPreacher        Kind = "preacher"
	KindFamilyGroup     Kind = "family-group"
	KindOfferingIncome  Kind = "offering-income"
	KindOfferingExpense Kind = "offering-expense"
	KindUser            Kind = "user"
)

// Kinds returns every entity kind in navigation order.
func Kinds() []Kind {
	return []Kind{
		KindChurch, KindMinistry, KindPastor, KindCopastor, KindSupervisor,
		KindZone, KindPreacher, KindFamilyGroup, KindOfferingIncome,
		KindOfferingExpense, KindUser,
	}
}

// ParseKind accepts either the singular kind or its URL slug.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s || k.Slug() == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// Label is the singular display name.
func (k Kind) Label() string {
	switch k {
	case KindChurch:
		return "Church"
	case KindMinistry:
		return "Ministry"
	case KindPastor:
		return "Pastor"
	case KindCopastor:
		return "Copastor"
	case KindSupervisor:
		return "Supervisor"
	case KindZone:
		return "Zone"
	case KindPreacher:
		return "Preacher"
	case KindFamilyGroup:
		return "Family group"
	case KindOfferingIncome:
		return "Offering income"
	case KindOfferingExpense:
		return "Offering expense"
	case KindUser:
		return "User"
	}
	return ""
}

// Plural is the display name used on list pages.
func (k Kind) Plural() string {
	switch k {
	case KindChurch:
		return "Churches"
	case KindMinistry:
		return "Ministries"
	case KindPastor:
		return "Pastors"
	case KindCopastor:
		return "Copastors"
	case KindSupervisor:
		return "Supervisors"
	case KindZone:
		return "Zones"
	case KindPreacher:
		return "Preachers"
	case KindFamilyGroup:
		return "Family groups"
	case KindOfferingIncome:
		return "Offering income"
	case KindOfferingExpense:
		return "Offering expenses"
	case KindUser:
		return "Users"
	}
	return ""
}

// Slug is the URL path segment of the kind, shared by the console routes
// and the REST backend resources.
func (k Kind) Slug() string {
	switch k {
	case KindChurch:
		return "churches"
	case KindMinistry:
		return "ministries"
	case KindPastor:
		return "pastors"
	case KindCopastor:
		return "copastors"
	case KindSupervisor:
		return "supervisors"
	case KindZone:
		return "zones"
	case KindPreacher:
		return "preachers"
	case KindFamilyGroup:
		return "family-groups"
	case KindOfferingIncome:
		return "offerings-income"
	case KindOfferingExpense:
		return "offerings-expenses"
	case KindUser:
		return "users"
	}
	return ""
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k.Slug() != ""
}

// IsOffering reports whether records of this kind carry money and receipts.
func (k Kind) IsOffering() bool {
	return k == KindOfferingIncome || k == KindOfferingExpense
}

// DisplayField is the record field used as an option label in relation selects.
func (k Kind) DisplayField() string {
	switch k {
	case KindChurch:
		return "abbreviatedChurchName"
	case KindMinistry:
		return "customMinistryName"
	case KindZone:
		return "zoneName"
	case KindFamilyGroup:
		return "familyGroupName"
	case KindPastor, KindCopastor, KindSupervisor, KindPreacher, KindUser:
		return "fullName"
	case KindOfferingIncome, KindOfferingExpense:
		return "date"
	}
	return "id"
}
