// Package form implements the server-side lifecycle of console forms: schema
// driven validation, dependent-field resets and the guarded submit sequence.
package form

import (
	"net/url"
	"slices"

	"churchadmin/internal/core"
)

type InputType string

const (
	InputText     InputType = "text"
	InputTextarea InputType = "textarea"
	InputEmail    InputType = "email"
	InputPassword InputType = "password"
	InputDate     InputType = "date"
	InputNumber   InputType = "number"
	InputSelect   InputType = "select"
	InputMulti    InputType = "multiselect"
	InputCheckbox InputType = "checkbox"
	InputRelation InputType = "relation"
)

// Purpose distinguishes record forms from inactivation dialogs.
type Purpose string

const (
	PurposeRecord     Purpose = "record"
	PurposeInactivate Purpose = "inactivate"
)

// Relation describes a select whose options are records of another kind.
// When ParentField is set the options are filtered by the parent's value and
// no lookup happens until the parent is chosen. KindField resolves the kind
// from another field's value instead of Kind.
type Relation struct {
	Kind        core.Kind
	KindField   string
	ParentField string
	// FilterKey is the record data key compared with the parent value.
	// Defaults to ParentField.
	FilterKey string
}

// Field is one input of a schema.
type Field struct {
	Name    string
	Label   string
	Type    InputType
	Options []core.Option
	// OptionsFunc computes options from the current values, used by cascades.
	OptionsFunc func(url.Values) []core.Option
	Relation    *Relation
	// DependsOn lists parent fields. A change of any parent clears this field.
	DependsOn    []string
	VisibleWhen  func(url.Values) bool
	RequiredWhen func(url.Values) bool
	Placeholder  string
}

// Visible reports whether the field is shown for values.
func (f Field) Visible(v url.Values) bool {
	return f.VisibleWhen == nil || f.VisibleWhen(v)
}

// ResolveKind returns the relation kind for the current values.
func (f Field) ResolveKind(v url.Values) (core.Kind, bool) {
	if f.Relation == nil {
		return "", false
	}
	if f.Relation.KindField == "" {
		return f.Relation.Kind, true
	}
	k, err := core.ParseKind(v.Get(f.Relation.KindField))
	return k, err == nil
}

// FieldOptions returns the static or computed options of a select.
func (f Field) FieldOptions(v url.Values) []core.Option {
	if f.OptionsFunc != nil {
		return f.OptionsFunc(v)
	}
	return f.Options
}

// Check is a cross-field rule returning field name to message for failures.
type Check func(url.Values) map[string]string

// Schema is the ordered description of a form.
type Schema struct {
	Kind    core.Kind
	Purpose Purpose
	Title   string
	Fields  []Field
	// New returns a pointer to the DTO the values decode into.
	New    func() any
	Checks []Check
}

// Field looks a field up by name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Dependents returns every field reset by a change of name, following
// DependsOn transitively, in schema order.
func (s *Schema) Dependents(name string) []string {
	reset := map[string]bool{}
	queue := []string{name}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for _, f := range s.Fields {
			if reset[f.Name] || f.Name == name || !slices.Contains(f.DependsOn, parent) {
				continue
			}
			reset[f.Name] = true
			queue = append(queue, f.Name)
		}
	}
	var out []string
	for _, f := range s.Fields {
		if reset[f.Name] {
			out = append(out, f.Name)
		}
	}
	return out
}
