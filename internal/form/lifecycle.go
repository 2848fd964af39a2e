package form

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"churchadmin/internal/core"
)

var (
	ErrLocked         = errors.New("form is locked")
	ErrSubmitInFlight = errors.New("submission already in progress")
	ErrInvalid        = errors.New("form has validation errors")
)

// State is the lifecycle stage of a form instance.
type State int

const (
	Editable State = iota
	ValidatingIncomplete
	ReadyToSubmit
	Submitting
	SubmitFailed
	SubmitFailedAuth
	SubmitSucceeded
)

func (s State) String() string {
	switch s {
	case Editable:
		return "editable"
	case ValidatingIncomplete:
		return "validating_incomplete"
	case ReadyToSubmit:
		return "ready_to_submit"
	case Submitting:
		return "submitting"
	case SubmitFailed:
		return "submit_failed"
	case SubmitFailedAuth:
		return "submit_failed_auth"
	case SubmitSucceeded:
		return "submit_succeeded"
	}
	return "unknown"
}

func (s State) editable() bool {
	return s == Editable || s == ValidatingIncomplete || s == ReadyToSubmit
}

type Mode int

const (
	Create Mode = iota
	Update
)

func (m Mode) String() string {
	if m == Update {
		return "update"
	}
	return "create"
}

// Message is the inline status line under the form.
type Message string

const (
	MessageNone       Message = ""
	MessageIncomplete Message = "incomplete"
	MessageComplete   Message = "complete"
)

// Timings configures the delays of the post-submit sequences.
type Timings struct {
	ReenableAfter     time.Duration
	AuthRedirectAfter time.Duration
	ResetAfter        time.Duration
	NavigateAfter     time.Duration
	CloseDialogAfter  time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		ReenableAfter:     1500 * time.Millisecond,
		AuthRedirectAfter: 3 * time.Second,
		ResetAfter:        1200 * time.Millisecond,
		NavigateAfter:     2300 * time.Millisecond,
		CloseDialogAfter:  time.Second,
	}
}

// Effect is a timed side effect of a finished submission.
type Effect string

const (
	EffectReenable      Effect = "reenable"
	EffectRedirectLogin Effect = "redirect_login"
	EffectResetForm     Effect = "reset_form"
	EffectNavigateList  Effect = "navigate_list"
	EffectCloseDialog   Effect = "close_dialog"
	EffectScrollTop     Effect = "scroll_top"
)

// Step runs After its predecessor.
type Step struct {
	Effect Effect
	After  time.Duration
	URL    string
}

// Sequence is an ordered list of steps with relative delays.
type Sequence []Step

// Offsets returns the delay of each step measured from the sequence start.
func (s Sequence) Offsets() []time.Duration {
	out := make([]time.Duration, len(s))
	var total time.Duration
	for i, st := range s {
		total += st.After
		out[i] = total
	}
	return out
}

// LoginURL is where an unauthorized submission sends the user.
const LoginURL = "/"

// MutateFunc performs the backend write for a validated DTO.
type MutateFunc func(ctx context.Context, dto any) error

// Outcome describes a finished submission.
type Outcome struct {
	State    State
	Err      error
	Sequence Sequence
}

// View is the derived rendering state of a machine.
type View struct {
	State          State
	Mode           Mode
	Values         url.Values
	Errors         map[string]string
	InputsDisabled bool
	SubmitDisabled bool
	Message        Message
	// Remaining holds the steps of the active sequence not yet due.
	Remaining Sequence
	Err       error
}

type MachineOption func(*Machine)

// WithClock injects the time source used to resolve timed transitions.
func WithClock(now func() time.Time) MachineOption {
	return func(m *Machine) { m.now = now }
}

// WithValidator replaces the shared validator.
func WithValidator(v *Validator) MachineOption {
	return func(m *Machine) { m.validator = v }
}

// WithListURL sets the navigation target after a successful create.
func WithListURL(u string) MachineOption {
	return func(m *Machine) { m.listURL = u }
}

// Machine is the lifecycle of one form instance. It is safe for concurrent
// use; at most one mutation runs per machine.
type Machine struct {
	mu        sync.Mutex
	schema    *Schema
	validator *Validator
	mode      Mode
	timings   Timings
	now       func() time.Time
	listURL   string

	state   State
	initial url.Values
	values  url.Values
	errors  map[string]string
	lastErr error

	seq      Sequence
	seqStart time.Time
	seqDone  int
}

func NewMachine(schema *Schema, mode Mode, initial url.Values, timings Timings, opts ...MachineOption) *Machine {
	m := &Machine{
		schema:  schema,
		mode:    mode,
		timings: timings,
		now:     time.Now,
		state:   Editable,
		errors:  map[string]string{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.validator == nil {
		m.validator = DefaultValidator()
	}
	if m.listURL == "" {
		m.listURL = "/" + schema.Kind.Slug()
	}
	if initial == nil {
		initial = url.Values{}
	}
	m.initial = cloneValues(initial)
	m.values = cloneValues(initial)
	return m
}

func (m *Machine) Schema() *Schema { return m.schema }
func (m *Machine) Mode() Mode      { return m.mode }

// Values returns a copy of the current values. During a submission they are
// the values that were validated.
func (m *Machine) Values() url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneValues(m.values)
}

// Change applies the browser's current values after field changed. Fields
// depending on field are cleared when its value differs from the stored
// one. It returns the names of the cleared fields.
func (m *Machine) Change(field string, values url.Values) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolve()
	if !m.state.editable() {
		return nil, ErrLocked
	}

	next := cloneValues(values)
	var reset []string
	if field != "" && !sameValue(m.values, next, field) {
		for _, dep := range m.schema.Dependents(field) {
			if len(next[dep]) > 0 || len(m.values[dep]) > 0 {
				reset = append(reset, dep)
			}
			delete(next, dep)
		}
	}
	m.values = next
	m.validateLocked()
	return reset, nil
}

func (m *Machine) validateLocked() any {
	dto, errs := m.validator.Validate(m.schema, m.values)
	m.errors = errs
	if len(errs) > 0 {
		m.state = ValidatingIncomplete
	} else {
		m.state = ReadyToSubmit
	}
	return dto
}

// Submit validates values and, when they pass, runs mutate exactly once.
// The machine enters Submitting before mutate is called, so a concurrent
// Submit fails with ErrSubmitInFlight instead of reaching the backend.
func (m *Machine) Submit(ctx context.Context, values url.Values, mutate MutateFunc) (Outcome, error) {
	m.mu.Lock()
	m.resolve()
	switch {
	case m.state == Submitting:
		m.mu.Unlock()
		return Outcome{State: Submitting}, ErrSubmitInFlight
	case !m.state.editable():
		st := m.state
		m.mu.Unlock()
		return Outcome{State: st}, ErrLocked
	}

	if values != nil {
		m.values = m.dropStaleDependents(cloneValues(values))
	}
	dto := m.validateLocked()
	if m.state != ReadyToSubmit {
		m.mu.Unlock()
		return Outcome{State: ValidatingIncomplete}, ErrInvalid
	}
	m.state = Submitting
	m.lastErr = nil
	m.mu.Unlock()

	err := runMutate(ctx, mutate, dto)

	m.mu.Lock()
	defer m.mu.Unlock()
	var seq Sequence
	switch {
	case err == nil:
		m.state = SubmitSucceeded
		if m.mode == Create {
			seq = Sequence{
				{Effect: EffectResetForm, After: m.timings.ResetAfter},
				{Effect: EffectNavigateList, After: m.timings.NavigateAfter, URL: m.listURL},
			}
		} else {
			seq = Sequence{
				{Effect: EffectCloseDialog, After: m.timings.CloseDialogAfter},
				{Effect: EffectScrollTop},
			}
		}
	case core.IsUnauthorized(err):
		m.state = SubmitFailedAuth
		seq = Sequence{{Effect: EffectRedirectLogin, After: m.timings.AuthRedirectAfter, URL: LoginURL}}
	default:
		m.state = SubmitFailed
		seq = Sequence{{Effect: EffectReenable, After: m.timings.ReenableAfter}}
	}
	m.lastErr = err
	m.seq = seq
	m.seqStart = m.now()
	m.seqDone = 0
	return Outcome{State: m.state, Err: err, Sequence: seq}, nil
}

// dropStaleDependents clears the dependents of every field whose posted
// value differs from the current one, unless the dependent changed too. A
// submit that overtakes its last change request would otherwise send a
// selection made for the previous parent.
func (m *Machine) dropStaleDependents(next url.Values) url.Values {
	var stale []string
	for _, f := range m.schema.Fields {
		if sameValue(m.values, next, f.Name) {
			continue
		}
		for _, dep := range m.schema.Dependents(f.Name) {
			if len(next[dep]) > 0 && sameValue(m.values, next, dep) {
				stale = append(stale, dep)
			}
		}
	}
	for _, dep := range stale {
		delete(next, dep)
	}
	return next
}

// runMutate turns a panic in mutate into an error so the machine leaves
// Submitting.
func runMutate(ctx context.Context, mutate MutateFunc, dto any) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("submit panicked: %v", p)
		}
	}()
	return mutate(ctx, dto)
}

// resolve applies every step of the active sequence that is already due.
func (m *Machine) resolve() {
	if m.seqDone >= len(m.seq) {
		return
	}
	elapsed := m.now().Sub(m.seqStart)
	offsets := m.seq.Offsets()
	for m.seqDone < len(m.seq) && offsets[m.seqDone] <= elapsed {
		m.apply(m.seq[m.seqDone])
		m.seqDone++
	}
}

func (m *Machine) apply(st Step) {
	switch st.Effect {
	case EffectReenable:
		// values are kept so the user can retry
		m.validateLocked()
	case EffectResetForm:
		m.values = cloneValues(m.initial)
		m.errors = map[string]string{}
		m.lastErr = nil
		m.state = Editable
	case EffectRedirectLogin, EffectNavigateList, EffectCloseDialog, EffectScrollTop:
		// client side only
	}
}

// View resolves due transitions and returns the derived rendering state.
func (m *Machine) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolve()

	v := View{
		State:  m.state,
		Mode:   m.mode,
		Values: cloneValues(m.values),
		Errors: make(map[string]string, len(m.errors)),
		Err:    m.lastErr,
	}
	for k, e := range m.errors {
		v.Errors[k] = e
	}
	v.InputsDisabled = m.state == Submitting || m.state == SubmitFailed ||
		m.state == SubmitFailedAuth || m.state == SubmitSucceeded
	v.SubmitDisabled = m.state != ReadyToSubmit || len(m.errors) > 0
	switch m.state {
	case ValidatingIncomplete:
		v.Message = MessageIncomplete
	case ReadyToSubmit:
		v.Message = MessageComplete
	}
	if m.seqDone < len(m.seq) {
		v.Remaining = append(Sequence(nil), m.seq[m.seqDone:]...)
	}
	return v
}
