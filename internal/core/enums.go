package core

import "fmt"

// Enum is implemented by every closed set of codes the console displays.
// Label returns "" for a value outside the set.
type Enum interface {
	~string
	Label() string
}

// Option is a select option rendered by forms and table filters.
type Option struct {
	Value string
	Label string
}

// OptionsOf builds select options from the values of an enum.
func OptionsOf[E Enum](values []E) []Option {
	out := make([]Option, 0, len(values))
	for _, v := range values {
		out = append(out, Option{Value: string(v), Label: v.Label()})
	}
	return out
}

// ParseEnum returns the enum value matching raw, or an error when raw is not
// part of the set.
func ParseEnum[E Enum](values []E, raw string) (E, error) {
	for _, v := range values {
		if string(v) == raw {
			return v, nil
		}
	}
	var zero E
	return zero, fmt.Errorf("invalid value %q", raw)
}

// LabelOf resolves the label of a raw code. ok is false for unknown codes so
// callers decide how to render them instead of getting a placeholder.
func LabelOf[E Enum](raw string) (string, bool) {
	l := E(raw).Label()
	return l, l != ""
}

type RecordStatus string

const (
	StatusActive   RecordStatus = "active"
	StatusInactive RecordStatus = "inactive"
)

func RecordStatuses() []RecordStatus { return []RecordStatus{StatusActive, StatusInactive} }

func (s RecordStatus) Label() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusInactive:
		return "Inactive"
	}
	return ""
}

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

func Genders() []Gender { return []Gender{GenderMale, GenderFemale} }

func (g Gender) Label() string {
	switch g {
	case GenderMale:
		return "Male"
	case GenderFemale:
		return "Female"
	}
	return ""
}

type MaritalStatus string

const (
	MaritalSingle   MaritalStatus = "single"
	MaritalMarried  MaritalStatus = "married"
	MaritalWidowed  MaritalStatus = "widowed"
	MaritalDivorced MaritalStatus = "divorced"
	MaritalOther    MaritalStatus = "other"
)

func MaritalStatuses() []MaritalStatus {
	return []MaritalStatus{MaritalSingle, MaritalMarried, MaritalWidowed, MaritalDivorced, MaritalOther}
}

func (m MaritalStatus) Label() string {
	switch m {
	case MaritalSingle:
		return "Single"
	case MaritalMarried:
		return "Married"
	case MaritalWidowed:
		return "Widowed"
	case MaritalDivorced:
		return "Divorced"
	case MaritalOther:
		return "Other"
	}
	return ""
}

type MinistryType string

const (
	MinistryKids         MinistryType = "kids-ministry"
	MinistryYouth        MinistryType = "youth-ministry"
	MinistryIntercession MinistryType = "intercession-ministry"
	MinistryEvangelism   MinistryType = "evangelism-ministry"
	MinistryWorship      MinistryType = "worship-ministry"
	MinistryDiscipleship MinistryType = "discipleship-ministry"
	MinistryFamily       MinistryType = "family-ministry"
	MinistryTechnology   MinistryType = "technology-ministry"
	MinistryTeaching     MinistryType = "biblical-teaching-ministry"
)

func MinistryTypes() []MinistryType {
	return []MinistryType{
		MinistryKids, MinistryYouth, MinistryIntercession, MinistryEvangelism,
		MinistryWorship, MinistryDiscipleship, MinistryFamily, MinistryTechnology,
		MinistryTeaching,
	}
}

func (m MinistryType) Label() string {
	switch m {
	case MinistryKids:
		return "Kids ministry"
	case MinistryYouth:
		return "Youth ministry"
	case MinistryIntercession:
		return "Intercession ministry"
	case MinistryEvangelism:
		return "Evangelism ministry"
	case MinistryWorship:
		return "Worship ministry"
	case MinistryDiscipleship:
		return "Discipleship ministry"
	case MinistryFamily:
		return "Family ministry"
	case MinistryTechnology:
		return "Technology ministry"
	case MinistryTeaching:
		return "Biblical teaching ministry"
	}
	return ""
}

type MemberRole string

const (
	RolePastor     MemberRole = "pastor"
	RoleCopastor   MemberRole = "copastor"
	RoleSupervisor MemberRole = "supervisor"
	RolePreacher   MemberRole = "preacher"
	RoleDisciple   MemberRole = "disciple"
)

func MemberRoles() []MemberRole {
	return []MemberRole{RolePastor, RoleCopastor, RoleSupervisor, RolePreacher, RoleDisciple}
}

func (r MemberRole) Label() string {
	switch r {
	case RolePastor:
		return "Pastor"
	case RoleCopastor:
		return "Copastor"
	case RoleSupervisor:
		return "Supervisor"
	case RolePreacher:
		return "Preacher"
	case RoleDisciple:
		return "Disciple"
	}
	return ""
}

type UserRole string

const (
	UserRoleSuper     UserRole = "super-user"
	UserRoleAdmin     UserRole = "admin-user"
	UserRoleTreasurer UserRole = "treasurer-user"
	UserRoleUser      UserRole = "user"
)

func UserRoles() []UserRole {
	return []UserRole{UserRoleSuper, UserRoleAdmin, UserRoleTreasurer, UserRoleUser}
}

func (r UserRole) Label() string {
	switch r {
	case UserRoleSuper:
		return "Super user"
	case UserRoleAdmin:
		return "Administrator"
	case UserRoleTreasurer:
		return "Treasurer"
	case UserRoleUser:
		return "User"
	}
	return ""
}

type OfferingIncomeType string

const (
	IncomeOffering   OfferingIncomeType = "offering"
	IncomeAdjustment OfferingIncomeType = "income-adjustment"
)

func OfferingIncomeTypes() []OfferingIncomeType {
	return []OfferingIncomeType{IncomeOffering, IncomeAdjustment}
}

func (t OfferingIncomeType) Label() string {
	switch t {
	case IncomeOffering:
		return "Offering"
	case IncomeAdjustment:
		return "Income adjustment"
	}
	return ""
}

type OfferingIncomeSubType string

const (
	SubTypeSundayService OfferingIncomeSubType = "sunday-service"
	SubTypeFamilyGroup   OfferingIncomeSubType = "family-group"
	SubTypeGeneralFast   OfferingIncomeSubType = "general-fasting"
	SubTypeGeneralVigil  OfferingIncomeSubType = "general-vigil"
	SubTypeZonalFast     OfferingIncomeSubType = "zonal-fasting"
	SubTypeZonalVigil    OfferingIncomeSubType = "zonal-vigil"
	SubTypeSundaySchool  OfferingIncomeSubType = "sunday-school"
	SubTypeYouthService  OfferingIncomeSubType = "youth-service"
	SubTypeUnitedService OfferingIncomeSubType = "united-service"
	SubTypeActivities    OfferingIncomeSubType = "activities"
	SubTypeChurchGround  OfferingIncomeSubType = "church-ground"
	SubTypeSpecial       OfferingIncomeSubType = "special"
)

func OfferingIncomeSubTypes() []OfferingIncomeSubType {
	return []OfferingIncomeSubType{
		SubTypeSundayService, SubTypeFamilyGroup, SubTypeGeneralFast, SubTypeGeneralVigil,
		SubTypeZonalFast, SubTypeZonalVigil, SubTypeSundaySchool, SubTypeYouthService,
		SubTypeUnitedService, SubTypeActivities, SubTypeChurchGround, SubTypeSpecial,
	}
}

func (s OfferingIncomeSubType) Label() string {
	switch s {
	case SubTypeSundayService:
		return "Sunday service"
	case SubTypeFamilyGroup:
		return "Family group"
	case SubTypeGeneralFast:
		return "General fasting"
	case SubTypeGeneralVigil:
		return "General vigil"
	case SubTypeZonalFast:
		return "Zonal fasting"
	case SubTypeZonalVigil:
		return "Zonal vigil"
	case SubTypeSundaySchool:
		return "Sunday school"
	case SubTypeYouthService:
		return "Youth service"
	case SubTypeUnitedService:
		return "United service"
	case SubTypeActivities:
		return "Activities"
	case SubTypeChurchGround:
		return "Church ground"
	case SubTypeSpecial:
		return "Special"
	}
	return ""
}

// RequiresShift reports whether offerings of this subtype are recorded per shift.
func (s OfferingIncomeSubType) RequiresShift() bool {
	return s == SubTypeSundayService || s == SubTypeSundaySchool
}

// RequiresZone reports whether offerings of this subtype belong to a zone.
func (s OfferingIncomeSubType) RequiresZone() bool {
	return s == SubTypeZonalFast || s == SubTypeZonalVigil
}

type OfferingExpenseType string

const (
	ExpenseOperational OfferingExpenseType = "operational-expenses"
	ExpenseMaintenance OfferingExpenseType = "maintenance-and-repair-expenses"
	ExpenseDecoration  OfferingExpenseType = "decoration-expenses"
	ExpenseEquipment   OfferingExpenseType = "equipment-and-technology-expenses"
	ExpenseSupplies    OfferingExpenseType = "supplies-expenses"
	ExpenseEvents      OfferingExpenseType = "planing-events-expenses"
	ExpenseOther       OfferingExpenseType = "other-expenses"
	ExpenseAdjustment  OfferingExpenseType = "expense-adjustment"
)

func OfferingExpenseTypes() []OfferingExpenseType {
	return []OfferingExpenseType{
		ExpenseOperational, ExpenseMaintenance, ExpenseDecoration, ExpenseEquipment,
		ExpenseSupplies, ExpenseEvents, ExpenseOther, ExpenseAdjustment,
	}
}

func (t OfferingExpenseType) Label() string {
	switch t {
	case ExpenseOperational:
		return "Operational expenses"
	case ExpenseMaintenance:
		return "Maintenance and repair"
	case ExpenseDecoration:
		return "Decoration"
	case ExpenseEquipment:
		return "Equipment and technology"
	case ExpenseSupplies:
		return "Supplies"
	case ExpenseEvents:
		return "Event planning"
	case ExpenseOther:
		return "Other expenses"
	case ExpenseAdjustment:
		return "Expense adjustment"
	}
	return ""
}

type OfferingExpenseSubType string

const (
	ExpenseSubUtilities   OfferingExpenseSubType = "utilities"
	ExpenseSubRent        OfferingExpenseSubType = "rent"
	ExpenseSubCleaning    OfferingExpenseSubType = "cleaning"
	ExpenseSubRepairs     OfferingExpenseSubType = "repairs"
	ExpenseSubFlowers     OfferingExpenseSubType = "flowers"
	ExpenseSubSound       OfferingExpenseSubType = "sound-equipment"
	ExpenseSubStationery  OfferingExpenseSubType = "stationery"
	ExpenseSubCatering    OfferingExpenseSubType = "catering"
	ExpenseSubMiscellanea OfferingExpenseSubType = "miscellanea"
)

func OfferingExpenseSubTypes() []OfferingExpenseSubType {
	return []OfferingExpenseSubType{
		ExpenseSubUtilities, ExpenseSubRent, ExpenseSubCleaning, ExpenseSubRepairs,
		ExpenseSubFlowers, ExpenseSubSound, ExpenseSubStationery, ExpenseSubCatering,
		ExpenseSubMiscellanea,
	}
}

func (s OfferingExpenseSubType) Label() string {
	switch s {
	case ExpenseSubUtilities:
		return "Utilities"
	case ExpenseSubRent:
		return "Rent"
	case ExpenseSubCleaning:
		return "Cleaning"
	case ExpenseSubRepairs:
		return "Repairs"
	case ExpenseSubFlowers:
		return "Flowers"
	case ExpenseSubSound:
		return "Sound equipment"
	case ExpenseSubStationery:
		return "Stationery"
	case ExpenseSubCatering:
		return "Catering"
	case ExpenseSubMiscellanea:
		return "Miscellanea"
	}
	return ""
}

type Shift string

const (
	ShiftDay       Shift = "day"
	ShiftAfternoon Shift = "afternoon"
)

func Shifts() []Shift { return []Shift{ShiftDay, ShiftAfternoon} }

func (s Shift) Label() string {
	switch s {
	case ShiftDay:
		return "Day"
	case ShiftAfternoon:
		return "Afternoon"
	}
	return ""
}

type ServiceTime string

const (
	Service0900 ServiceTime = "09:00"
	Service1000 ServiceTime = "10:00"
	Service1100 ServiceTime = "11:00"
	Service1600 ServiceTime = "16:00"
	Service1700 ServiceTime = "17:00"
	Service1800 ServiceTime = "18:00"
	Service1900 ServiceTime = "19:00"
)

func ServiceTimes() []ServiceTime {
	return []ServiceTime{Service0900, Service1000, Service1100, Service1600, Service1700, Service1800, Service1900}
}

func (s ServiceTime) Label() string {
	switch s {
	case Service0900:
		return "9:00 AM"
	case Service1000:
		return "10:00 AM"
	case Service1100:
		return "11:00 AM"
	case Service1600:
		return "4:00 PM"
	case Service1700:
		return "5:00 PM"
	case Service1800:
		return "6:00 PM"
	case Service1900:
		return "7:00 PM"
	}
	return ""
}

type InactivationCategory string

const (
	InactivationAdministrative InactivationCategory = "administrative"
	InactivationNatural        InactivationCategory = "natural-circumstances"
	InactivationMemberRequest  InactivationCategory = "member-request"
	InactivationDiscipline     InactivationCategory = "discipline"
	InactivationUnavoidable    InactivationCategory = "unavoidable-circumstances"
)

func InactivationCategories() []InactivationCategory {
	return []InactivationCategory{
		InactivationAdministrative, InactivationNatural, InactivationMemberRequest,
		InactivationDiscipline, InactivationUnavoidable,
	}
}

func (c InactivationCategory) Label() string {
	switch c {
	case InactivationAdministrative:
		return "Administrative"
	case InactivationNatural:
		return "Natural circumstances"
	case InactivationMemberRequest:
		return "Member request"
	case InactivationDiscipline:
		return "Discipline"
	case InactivationUnavoidable:
		return "Unavoidable circumstances"
	}
	return ""
}

type OfferingInactivationReason string

const (
	ReasonTypeError     OfferingInactivationReason = "type-selection-error"
	ReasonSubTypeError  OfferingInactivationReason = "sub-type-selection-error"
	ReasonCurrencyError OfferingInactivationReason = "currency-selection-error"
	ReasonAmountError   OfferingInactivationReason = "amount-error"
	ReasonDateError     OfferingInactivationReason = "date-error"
	ReasonChurchError   OfferingInactivationReason = "church-selection-error"
	ReasonDuplicate     OfferingInactivationReason = "duplicate-record"
)

func OfferingInactivationReasons() []OfferingInactivationReason {
	return []OfferingInactivationReason{
		ReasonTypeError, ReasonSubTypeError, ReasonCurrencyError, ReasonAmountError,
		ReasonDateError, ReasonChurchError, ReasonDuplicate,
	}
}

func (r OfferingInactivationReason) Label() string {
	switch r {
	case ReasonTypeError:
		return "Wrong type selected"
	case ReasonSubTypeError:
		return "Wrong sub-type selected"
	case ReasonCurrencyError:
		return "Wrong currency selected"
	case ReasonAmountError:
		return "Wrong amount"
	case ReasonDateError:
		return "Wrong date"
	case ReasonChurchError:
		return "Wrong church selected"
	case ReasonDuplicate:
		return "Duplicate record"
	}
	return ""
}
