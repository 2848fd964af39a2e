package core

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// enumRule builds a validator.Func accepting only the codes of E.
func enumRule[E Enum]() validator.Func {
	return func(fl validator.FieldLevel) bool {
		return E(fl.Field().String()).Label() != ""
	}
}

// RegisterValidations installs the custom tags used by the form DTOs.
func RegisterValidations(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"gender":               enumRule[Gender](),
		"marital":              enumRule[MaritalStatus](),
		"ministrytype":         enumRule[MinistryType](),
		"memberrole":           enumRule[MemberRole](),
		"userrole":             enumRule[UserRole](),
		"incometype":           enumRule[OfferingIncomeType](),
		"incomesubtype":        enumRule[OfferingIncomeSubType](),
		"expensetype":          enumRule[OfferingExpenseType](),
		"expensesubtype":       enumRule[OfferingExpenseSubType](),
		"currency":             enumRule[Currency](),
		"shift":                enumRule[Shift](),
		"servicetime":          enumRule[ServiceTime](),
		"inactivationcategory": enumRule[InactivationCategory](),
		"offeringreason":       enumRule[OfferingInactivationReason](),
		"recordstatus":         enumRule[RecordStatus](),
		"amount": func(fl validator.FieldLevel) bool {
			_, err := ParseAmount(fl.Field().String(), CurrencyPEN)
			return err == nil
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}
