package form

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/form"
	"github.com/go-playground/validator/v10"

	"churchadmin/internal/core"
)

// Validator decodes submitted values into schema DTOs and checks them.
type Validator struct {
	decoder  *form.Decoder
	validate *validator.Validate
}

func NewValidator() (*Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
	})
	if err := core.RegisterValidations(v); err != nil {
		return nil, err
	}
	return &Validator{decoder: form.NewDecoder(), validate: v}, nil
}

var defaultValidator = sync.OnceValues(NewValidator)

// DefaultValidator returns the shared validator.
func DefaultValidator() *Validator {
	v, err := defaultValidator()
	if err != nil {
		panic(err)
	}
	return v
}

var indexSuffix = regexp.MustCompile(`\[\d+\]$`)

// Validate decodes values into a fresh DTO and returns it with the failures
// keyed by form field name. Hidden fields never report errors.
func (v *Validator) Validate(s *Schema, values url.Values) (any, map[string]string) {
	values = visibleValues(s, values)
	errs := map[string]string{}
	dto := s.New()

	if err := v.decoder.Decode(dto, values); err != nil {
		var decErrs form.DecodeErrors
		if !errors.As(err, &decErrs) {
			errs["_form"] = "The form could not be read"
			return dto, errs
		}
		for name := range decErrs {
			errs[indexSuffix.ReplaceAllString(name, "")] = "Invalid value"
		}
	}

	if err := v.validate.Struct(dto); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			errs["_form"] = err.Error()
			return dto, errs
		}
		for _, fe := range verrs {
			name := indexSuffix.ReplaceAllString(fe.Field(), "")
			if _, seen := errs[name]; !seen {
				errs[name] = message(fe)
			}
		}
	}

	for _, f := range s.Fields {
		if f.RequiredWhen == nil || !f.Visible(values) {
			continue
		}
		if f.RequiredWhen(values) && strings.TrimSpace(values.Get(f.Name)) == "" {
			if _, seen := errs[f.Name]; !seen {
				errs[f.Name] = "This field is required"
			}
		}
	}

	for _, check := range s.Checks {
		for name, msg := range check(values) {
			if _, seen := errs[name]; !seen {
				errs[name] = msg
			}
		}
	}

	for name := range errs {
		if f, ok := s.Field(name); ok && !f.Visible(values) {
			delete(errs, name)
		}
	}
	return dto, errs
}

// visibleValues drops the values of hidden fields so they are neither
// validated nor sent. Fields are evaluated in schema order against the
// already filtered values.
func visibleValues(s *Schema, values url.Values) url.Values {
	out := cloneValues(values)
	for _, f := range s.Fields {
		if !f.Visible(out) {
			delete(out, f.Name)
		}
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_unless", "required_with":
		return "This field is required"
	case "excluded_if":
		return "This field must be empty"
	case "email":
		return "Enter a valid email address"
	case "datetime":
		return "Enter a valid date"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Enter at least %s characters", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Select at least %s option(s)", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Enter at most %s characters", fe.Param())
		}
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "eqfield":
		return "Values do not match"
	case "amount":
		return "Enter a positive amount with up to two decimals"
	}
	return "Select a valid option"
}
