package core

// Residence holds the address block shared by churches, ministries, members
// and family groups.
type Residence struct {
	Country          string `form:"country" json:"country" validate:"required"`
	Department       string `form:"department" json:"department" validate:"required"`
	Province         string `form:"province" json:"province" validate:"required"`
	District         string `form:"district" json:"district" validate:"required"`
	UrbanSector      string `form:"urbanSector" json:"urbanSector" validate:"required"`
	Address          string `form:"address" json:"address" validate:"required,max=150"`
	ReferenceAddress string `form:"referenceAddress" json:"referenceAddress" validate:"required,max=150"`
}

// Member holds the personal data shared by pastors, copastors, supervisors
// and preachers.
type Member struct {
	FirstNames     string   `form:"firstNames" json:"firstNames" validate:"required,max=40"`
	LastNames      string   `form:"lastNames" json:"lastNames" validate:"required,max=40"`
	Gender         string   `form:"gender" json:"gender" validate:"required,gender"`
	OriginCountry  string   `form:"originCountry" json:"originCountry" validate:"required"`
	BirthDate      string   `form:"birthDate" json:"birthDate" validate:"required,datetime=2006-01-02"`
	MaritalStatus  string   `form:"maritalStatus" json:"maritalStatus" validate:"required,marital"`
	NumberChildren int      `form:"numberChildren" json:"numberChildren" validate:"min=0,max=30"`
	ConversionDate string   `form:"conversionDate" json:"conversionDate" validate:"omitempty,datetime=2006-01-02"`
	Email          string   `form:"email" json:"email" validate:"omitempty,email"`
	PhoneNumber    string   `form:"phoneNumber" json:"phoneNumber" validate:"omitempty,min=6,max=20"`
	Roles          []string `form:"roles" json:"roles" validate:"required,min=1,dive,memberrole"`
	RecordStatus   string   `form:"recordStatus" json:"recordStatus,omitempty" validate:"omitempty,recordstatus"`
	Residence
}

type ChurchForm struct {
	ChurchName            string   `form:"churchName" json:"churchName" validate:"required,max=100"`
	AbbreviatedChurchName string   `form:"abbreviatedChurchName" json:"abbreviatedChurchName" validate:"required,max=40"`
	FoundingDate          string   `form:"foundingDate" json:"foundingDate" validate:"required,datetime=2006-01-02"`
	ServiceTimes          []string `form:"serviceTimes" json:"serviceTimes" validate:"required,min=1,dive,servicetime"`
	Email                 string   `form:"email" json:"email" validate:"required,email"`
	PhoneNumber           string   `form:"phoneNumber" json:"phoneNumber" validate:"required,min=6,max=20"`
	IsAnexe               bool     `form:"isAnexe" json:"isAnexe"`
	TheirMainChurch       string   `form:"theirMainChurch" json:"theirMainChurch,omitempty" validate:"required_if=IsAnexe true"`
	RecordStatus          string   `form:"recordStatus" json:"recordStatus,omitempty" validate:"omitempty,recordstatus"`
	Residence
}

type MinistryForm struct {
	CustomMinistryName string   `form:"customMinistryName" json:"customMinistryName" validate:"required,max=60"`
	MinistryType       string   `form:"ministryType" json:"ministryType" validate:"required,ministrytype"`
	FoundingDate       string   `form:"foundingDate" json:"foundingDate" validate:"required,datetime=2006-01-02"`
	ServiceTimes       []string `form:"serviceTimes" json:"serviceTimes" validate:"required,min=1,dive,servicetime"`
	Email              string   `form:"email" json:"email" validate:"omitempty,email"`
	PhoneNumber        string   `form:"phoneNumber" json:"phoneNumber" validate:"omitempty,min=6,max=20"`
	TheirChurch        string   `form:"theirChurch" json:"theirChurch" validate:"required"`
	RecordStatus       string   `form:"recordStatus" json:"recordStatus,omitempty" validate:"omitempty,recordstatus"`
	Residence
}

type PastorForm struct {
	Member
	TheirChurch string `form:"theirChurch" json:"theirChurch" validate:"required"`
}

type CopastorForm struct {
	Member
	TheirPastor string `form:"theirPastor" json:"theirPastor" validate:"required"`
}

// SupervisorForm relates a supervisor to exactly one of a pastor or a
// copastor, chosen by IsDirectRelationToPastor.
type SupervisorForm struct {
	Member
	IsDirectRelationToPastor bool   `form:"isDirectRelationToPastor" json:"isDirectRelationToPastor"`
	TheirPastor              string `form:"theirPastor" json:"theirPastor,omitempty" validate:"required_if=IsDirectRelationToPastor true,excluded_if=IsDirectRelationToPastor false"`
	TheirCopastor            string `form:"theirCopastor" json:"theirCopastor,omitempty" validate:"required_if=IsDirectRelationToPastor false,excluded_if=IsDirectRelationToPastor true"`
}

type ZoneForm struct {
	ZoneName        string `form:"zoneName" json:"zoneName" validate:"required,max=40"`
	Department      string `form:"department" json:"department" validate:"required"`
	Province        string `form:"province" json:"province" validate:"required"`
	District        string `form:"district" json:"district" validate:"required"`
	TheirSupervisor string `form:"theirSupervisor" json:"theirSupervisor" validate:"required"`
	RecordStatus    string `form:"recordStatus" json:"recordStatus,omitempty" validate:"omitempty,recordstatus"`
}

type PreacherForm struct {
	Member
	TheirZone       string `form:"theirZone" json:"theirZone" validate:"required"`
	TheirSupervisor string `form:"theirSupervisor" json:"theirSupervisor" validate:"required"`
}

type FamilyGroupForm struct {
	FamilyGroupName string `form:"familyGroupName" json:"familyGroupName" validate:"required,max=60"`
	ServiceTime     string `form:"serviceTime" json:"serviceTime" validate:"required,servicetime"`
	TheirZone       string `form:"theirZone" json:"theirZone" validate:"required"`
	TheirPreacher   string `form:"theirPreacher" json:"theirPreacher" validate:"required"`
	RecordStatus    string `form:"recordStatus" json:"recordStatus,omitempty" validate:"omitempty,recordstatus"`
	Residence
}

// OfferingIncomeForm requires its relation fields according to SubType.
type OfferingIncomeForm struct {
	Type             string   `form:"type" json:"type" validate:"required,incometype"`
	SubType          string   `form:"subType" json:"subType,omitempty" validate:"required_if=Type offering,omitempty,incomesubtype"`
	Shift            string   `form:"shift" json:"shift,omitempty" validate:"required_if=SubType sunday-service,required_if=SubType sunday-school,omitempty,shift"`
	TheirFamilyGroup string   `form:"theirFamilyGroup" json:"theirFamilyGroup,omitempty" validate:"required_if=SubType family-group"`
	TheirZone        string   `form:"theirZone" json:"theirZone,omitempty" validate:"required_if=SubType zonal-fasting,required_if=SubType zonal-vigil"`
	MemberType       string   `form:"memberType" json:"memberType,omitempty" validate:"required_if=SubType special,required_if=SubType church-ground,omitempty,oneof=pastor copastor supervisor preacher"`
	TheirMember      string   `form:"theirMember" json:"theirMember,omitempty"`
	Amount           string   `form:"amount" json:"amount" validate:"required,amount"`
	Currency         string   `form:"currency" json:"currency" validate:"required,currency"`
	Date             string   `form:"date" json:"date" validate:"required,datetime=2006-01-02"`
	Comments         string   `form:"comments" json:"comments,omitempty" validate:"required_if=Type income-adjustment,max=500"`
	TheirChurch      string   `form:"theirChurch" json:"theirChurch" validate:"required"`
	ImageURLs        []string `form:"imageUrls" json:"imageUrls,omitempty"`
	RecordStatus     string   `form:"recordStatus" json:"recordStatus,omitempty" validate:"omitempty,recordstatus"`
}

type OfferingExpenseForm struct {
	Type         string   `form:"type" json:"type" validate:"required,expensetype"`
	SubType      string   `form:"subType" json:"subType,omitempty" validate:"required_unless=Type expense-adjustment,omitempty,expensesubtype"`
	Amount       string   `form:"amount" json:"amount" validate:"required,amount"`
	Currency     string   `form:"currency" json:"currency" validate:"required,currency"`
	Date         string   `form:"date" json:"date" validate:"required,datetime=2006-01-02"`
	Comments     string   `form:"comments" json:"comments,omitempty" validate:"required_if=Type expense-adjustment,max=500"`
	TheirChurch  string   `form:"theirChurch" json:"theirChurch" validate:"required"`
	ImageURLs    []string `form:"imageUrls" json:"imageUrls,omitempty"`
	RecordStatus string   `form:"recordStatus" json:"recordStatus,omitempty" validate:"omitempty,recordstatus"`
}

type UserCreateForm struct {
	FirstNames      string   `form:"firstNames" json:"firstNames" validate:"required,max=40"`
	LastNames       string   `form:"lastNames" json:"lastNames" validate:"required,max=40"`
	Gender          string   `form:"gender" json:"gender" validate:"required,gender"`
	Email           string   `form:"email" json:"email" validate:"required,email"`
	Password        string   `form:"password" json:"password" validate:"required,min=8,max=64"`
	PasswordConfirm string   `form:"passwordConfirm" json:"-" validate:"required,eqfield=Password"`
	Roles           []string `form:"roles" json:"roles" validate:"required,min=1,dive,userrole"`
}

type UserUpdateForm struct {
	FirstNames   string   `form:"firstNames" json:"firstNames" validate:"required,max=40"`
	LastNames    string   `form:"lastNames" json:"lastNames" validate:"required,max=40"`
	Gender       string   `form:"gender" json:"gender" validate:"required,gender"`
	Email        string   `form:"email" json:"email" validate:"required,email"`
	Roles        []string `form:"roles" json:"roles" validate:"required,min=1,dive,userrole"`
	RecordStatus string   `form:"recordStatus" json:"recordStatus,omitempty" validate:"omitempty,recordstatus"`
}

// InactivationForm is used to inactivate every non-offering record.
type InactivationForm struct {
	Category string `form:"inactivationCategory" json:"inactivationCategory" validate:"required,inactivationcategory"`
	Reason   string `form:"inactivationReason" json:"inactivationReason" validate:"required,max=200"`
}

type OfferingInactivationForm struct {
	Reason      string `form:"offeringInactivationReason" json:"offeringInactivationReason" validate:"required,offeringreason"`
	Description string `form:"offeringInactivationDescription" json:"offeringInactivationDescription" validate:"required,min=5,max=200"`
}
