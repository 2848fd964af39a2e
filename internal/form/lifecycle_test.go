package form

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churchadmin/internal/core"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func validChurch() url.Values {
	return url.Values{
		"churchName":            {"Iglesia Central"},
		"abbreviatedChurchName": {"IC"},
		"foundingDate":          {"2010-05-01"},
		"serviceTimes":          {"09:00", "18:00"},
		"email":                 {"central@example.org"},
		"phoneNumber":           {"987654321"},
		"country":               {"peru"},
		"department":            {"lima"},
		"province":              {"lima"},
		"district":              {"independencia"},
		"urbanSector":           {"payet"},
		"address":               {"Av. Principal 123"},
		"referenceAddress":      {"Near the park"},
	}
}

func with(v url.Values, kv ...string) url.Values {
	out := cloneValues(v)
	for i := 0; i+1 < len(kv); i += 2 {
		out.Set(kv[i], kv[i+1])
	}
	return out
}

func newChurchMachine(t *testing.T, mode Mode, clock *testClock) *Machine {
	t.Helper()
	s, err := SchemaFor(core.KindChurch, PurposeRecord, mode)
	require.NoError(t, err)
	return NewMachine(s, mode, nil, DefaultTimings(), WithClock(clock.Now))
}

func noop(context.Context, any) error { return nil }

func TestMachineStartsEditableWithSubmitDisabled(t *testing.T) {
	m := newChurchMachine(t, Create, newTestClock())
	v := m.View()
	assert.Equal(t, Editable, v.State)
	assert.True(t, v.SubmitDisabled)
	assert.False(t, v.InputsDisabled)
	assert.Equal(t, MessageNone, v.Message)
}

func TestAnnexWithoutMainChurchKeepsSubmitDisabled(t *testing.T) {
	m := newChurchMachine(t, Create, newTestClock())

	_, err := m.Change("isAnexe", with(validChurch(), "isAnexe", "true"))
	require.NoError(t, err)
	v := m.View()
	assert.Equal(t, ValidatingIncomplete, v.State)
	assert.True(t, v.SubmitDisabled)
	assert.Equal(t, MessageIncomplete, v.Message)
	assert.Contains(t, v.Errors, "theirMainChurch")

	_, err = m.Change("theirMainChurch", with(validChurch(), "isAnexe", "true", "theirMainChurch", "c-1"))
	require.NoError(t, err)
	v = m.View()
	assert.Equal(t, ReadyToSubmit, v.State)
	assert.False(t, v.SubmitDisabled)
	assert.Equal(t, MessageComplete, v.Message)
	assert.Empty(t, v.Errors)
}

func TestSubmitDisabledWheneverErrorsExist(t *testing.T) {
	m := newChurchMachine(t, Create, newTestClock())
	for _, field := range []string{"churchName", "email", "foundingDate", "urbanSector"} {
		values := validChurch()
		values.Set(field, "")
		_, err := m.Change(field, values)
		require.NoError(t, err)
		v := m.View()
		assert.NotEmpty(t, v.Errors, field)
		assert.True(t, v.SubmitDisabled, field)
	}
}

func TestParentChangeClearsDependents(t *testing.T) {
	clock := newTestClock()
	t.Run("isAnexe clears main church", func(t *testing.T) {
		m := newChurchMachine(t, Create, clock)
		_, err := m.Change("theirMainChurch", with(validChurch(), "isAnexe", "true", "theirMainChurch", "c-1"))
		require.NoError(t, err)

		values := with(validChurch(), "theirMainChurch", "c-1")
		reset, err := m.Change("isAnexe", values)
		require.NoError(t, err)
		assert.Equal(t, []string{"theirMainChurch"}, reset)
		assert.Empty(t, m.View().Values.Get("theirMainChurch"))
	})

	t.Run("district clears urban sector", func(t *testing.T) {
		m := newChurchMachine(t, Create, clock)
		_, err := m.Change("urbanSector", validChurch())
		require.NoError(t, err)

		reset, err := m.Change("district", with(validChurch(), "district", "comas"))
		require.NoError(t, err)
		assert.Equal(t, []string{"urbanSector"}, reset)
		v := m.View()
		assert.Empty(t, v.Values.Get("urbanSector"))
		assert.Equal(t, ValidatingIncomplete, v.State)
	})

	t.Run("zone clears preacher", func(t *testing.T) {
		s, err := SchemaFor(core.KindFamilyGroup, PurposeRecord, Create)
		require.NoError(t, err)
		m := NewMachine(s, Create, nil, DefaultTimings(), WithClock(clock.Now))
		_, err = m.Change("theirPreacher", url.Values{"theirZone": {"z-1"}, "theirPreacher": {"p-1"}})
		require.NoError(t, err)

		reset, err := m.Change("theirZone", url.Values{"theirZone": {"z-2"}, "theirPreacher": {"p-1"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"theirPreacher"}, reset)
		assert.Empty(t, m.View().Values.Get("theirPreacher"))
	})

	t.Run("unchanged parent keeps dependents", func(t *testing.T) {
		m := newChurchMachine(t, Create, clock)
		_, err := m.Change("urbanSector", validChurch())
		require.NoError(t, err)
		reset, err := m.Change("district", validChurch())
		require.NoError(t, err)
		assert.Empty(t, reset)
		assert.Equal(t, "payet", m.View().Values.Get("urbanSector"))
	})
}

func TestCountryChangeResetsWholeCascade(t *testing.T) {
	s, err := SchemaFor(core.KindChurch, PurposeRecord, Create)
	require.NoError(t, err)
	assert.Equal(t, []string{"department", "province", "district", "urbanSector"}, s.Dependents("country"))
}

func TestSubmitSuccessCreateSequence(t *testing.T) {
	clock := newTestClock()
	m := newChurchMachine(t, Create, clock)

	out, err := m.Submit(context.Background(), validChurch(), noop)
	require.NoError(t, err)
	assert.Equal(t, SubmitSucceeded, out.State)
	require.Len(t, out.Sequence, 2)
	assert.Equal(t, EffectResetForm, out.Sequence[0].Effect)
	assert.Equal(t, EffectNavigateList, out.Sequence[1].Effect)
	assert.Equal(t, "/churches", out.Sequence[1].URL)
	assert.Equal(t, []time.Duration{1200 * time.Millisecond, 3500 * time.Millisecond}, out.Sequence.Offsets())

	v := m.View()
	assert.True(t, v.InputsDisabled)
	assert.True(t, v.SubmitDisabled)

	clock.Advance(1200 * time.Millisecond)
	v = m.View()
	assert.Equal(t, Editable, v.State)
	assert.Empty(t, v.Values)
	require.Len(t, v.Remaining, 1)
	assert.Equal(t, EffectNavigateList, v.Remaining[0].Effect)

	clock.Advance(2300 * time.Millisecond)
	assert.Empty(t, m.View().Remaining)
}

func TestSubmitSuccessUpdateSequence(t *testing.T) {
	clock := newTestClock()
	m := newChurchMachine(t, Update, clock)

	out, err := m.Submit(context.Background(), with(validChurch(), "recordStatus", "active"), noop)
	require.NoError(t, err)
	assert.Equal(t, SubmitSucceeded, out.State)
	require.Len(t, out.Sequence, 2)
	assert.Equal(t, EffectCloseDialog, out.Sequence[0].Effect)
	assert.Equal(t, EffectScrollTop, out.Sequence[1].Effect)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, out.Sequence.Offsets())

	clock.Advance(time.Minute)
	v := m.View()
	assert.Equal(t, SubmitSucceeded, v.State)
	assert.True(t, v.InputsDisabled)
}

func TestSubmitFailureReenablesAndKeepsValues(t *testing.T) {
	clock := newTestClock()
	m := newChurchMachine(t, Create, clock)

	boom := &core.APIError{Status: 400, Message: "Church already exists"}
	out, err := m.Submit(context.Background(), validChurch(), func(context.Context, any) error { return boom })
	require.NoError(t, err)
	assert.Equal(t, SubmitFailed, out.State)
	assert.ErrorIs(t, out.Err, boom)
	require.Len(t, out.Sequence, 1)
	assert.Equal(t, EffectReenable, out.Sequence[0].Effect)

	clock.Advance(1499 * time.Millisecond)
	v := m.View()
	assert.True(t, v.InputsDisabled)
	assert.Equal(t, SubmitFailed, v.State)

	clock.Advance(time.Millisecond)
	v = m.View()
	assert.Equal(t, ReadyToSubmit, v.State)
	assert.False(t, v.InputsDisabled)
	assert.False(t, v.SubmitDisabled)
	assert.Equal(t, "Iglesia Central", v.Values.Get("churchName"))
}

func TestUnauthorizedRedirectsAndStaysLocked(t *testing.T) {
	clock := newTestClock()
	m := newChurchMachine(t, Create, clock)

	out, err := m.Submit(context.Background(), validChurch(), func(context.Context, any) error {
		return &core.APIError{Status: 401, Message: "Unauthorized"}
	})
	require.NoError(t, err)
	assert.Equal(t, SubmitFailedAuth, out.State)
	require.Len(t, out.Sequence, 1)
	assert.Equal(t, EffectRedirectLogin, out.Sequence[0].Effect)
	assert.Equal(t, "/", out.Sequence[0].URL)
	assert.Equal(t, 3*time.Second, out.Sequence[0].After)

	clock.Advance(time.Hour)
	v := m.View()
	assert.Equal(t, SubmitFailedAuth, v.State)
	assert.True(t, v.InputsDisabled)

	_, err = m.Change("churchName", validChurch())
	assert.ErrorIs(t, err, ErrLocked)
	_, err = m.Submit(context.Background(), validChurch(), noop)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestInvalidSubmitNeverCallsMutate(t *testing.T) {
	m := newChurchMachine(t, Create, newTestClock())
	called := false
	out, err := m.Submit(context.Background(), with(validChurch(), "email", "nope"), func(context.Context, any) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrInvalid)
	assert.False(t, called)
	assert.Equal(t, ValidatingIncomplete, out.State)
	assert.Contains(t, m.View().Errors, "email")
}

func TestDoubleSubmitRunsOneMutation(t *testing.T) {
	m := newChurchMachine(t, Create, newTestClock())

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	mutate := func(context.Context, any) error {
		calls.Add(1)
		close(started)
		<-release
		return nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := m.Submit(context.Background(), validChurch(), mutate)
		done <- err
	}()
	<-started

	assert.True(t, m.View().InputsDisabled)
	_, err := m.Submit(context.Background(), validChurch(), mutate)
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMutateReceivesDecodedDTO(t *testing.T) {
	m := newChurchMachine(t, Create, newTestClock())
	var got *core.ChurchForm
	_, err := m.Submit(context.Background(), validChurch(), func(_ context.Context, dto any) error {
		got = dto.(*core.ChurchForm)
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Iglesia Central", got.ChurchName)
	assert.Equal(t, []string{"09:00", "18:00"}, got.ServiceTimes)
	assert.Equal(t, "payet", got.UrbanSector)
}

func TestSubmitDropsDependentsOfChangedParent(t *testing.T) {
	t.Run("stale dependent is cleared", func(t *testing.T) {
		m := newChurchMachine(t, Create, newTestClock())
		_, err := m.Change("urbanSector", validChurch())
		require.NoError(t, err)

		called := false
		_, err = m.Submit(context.Background(), with(validChurch(), "district", "comas"), func(context.Context, any) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, ErrInvalid)
		assert.False(t, called)
		v := m.View()
		assert.Empty(t, v.Values.Get("urbanSector"))
		assert.Contains(t, v.Errors, "urbanSector")
	})

	t.Run("dependent chosen with the new parent is kept", func(t *testing.T) {
		m := newChurchMachine(t, Create, newTestClock())
		_, err := m.Change("urbanSector", validChurch())
		require.NoError(t, err)

		var got *core.ChurchForm
		_, err = m.Submit(context.Background(), with(validChurch(), "district", "comas", "urbanSector", "collique"),
			func(_ context.Context, dto any) error {
				got = dto.(*core.ChurchForm)
				return nil
			})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "collique", got.UrbanSector)
	})
}

func TestPanickingMutateFailsSubmission(t *testing.T) {
	clock := newTestClock()
	m := newChurchMachine(t, Create, clock)

	out, err := m.Submit(context.Background(), validChurch(), func(context.Context, any) error {
		panic("backend client bug")
	})
	require.NoError(t, err)
	assert.Equal(t, SubmitFailed, out.State)
	require.Error(t, out.Err)
	assert.Contains(t, out.Err.Error(), "backend client bug")

	clock.Advance(1500 * time.Millisecond)
	assert.Equal(t, ReadyToSubmit, m.View().State)
	out, err = m.Submit(context.Background(), validChurch(), noop)
	require.NoError(t, err)
	assert.Equal(t, SubmitSucceeded, out.State)
}

func TestStateStrings(t *testing.T) {
	for s := Editable; s <= SubmitSucceeded; s++ {
		assert.NotEqual(t, "unknown", s.String())
	}
	assert.Equal(t, "update", Update.String())
	assert.True(t, errors.Is(ErrLocked, ErrLocked))
}
