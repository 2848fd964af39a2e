package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"churchadmin/internal/form"
	"churchadmin/internal/mutation"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusAccepted).
		BodyString("test").
		Write(w)

	if w.Code != http.StatusAccepted {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusAccepted)
	}
	if w.Body.String() != "test" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "test")
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Error("HX-Trigger set without triggers")
	}
}

func decodeTriggers(t *testing.T, w *httptest.ResponseRecorder) map[string]map[string]any {
	t.Helper()
	raw := w.Header().Get("HX-Trigger")
	if raw == "" {
		t.Fatal("HX-Trigger header not set")
	}
	var out map[string]map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("decode HX-Trigger %q: %v", raw, err)
	}
	return out
}

func TestHTMXResponseBuilder_CreateSequence(t *testing.T) {
	w := httptest.NewRecorder()
	seq := form.Sequence{
		{Effect: form.EffectResetForm, After: 1200 * time.Millisecond},
		{Effect: form.EffectNavigateList, After: 2300 * time.Millisecond, URL: "/churches"},
	}

	NewHTMXResponse().TriggerSequence("f-1", seq).Write(w)

	tr := decodeTriggers(t, w)
	if got := tr[EventFormReset]["delay"]; got != float64(1200) {
		t.Errorf("form:reset delay = %v, want 1200", got)
	}
	if got := tr[EventFormReset]["formId"]; got != "f-1" {
		t.Errorf("form:reset formId = %v", got)
	}
	// navigate runs after the reset, so its delay is cumulative
	if got := tr[EventNavigate]["delay"]; got != float64(3500) {
		t.Errorf("navigate delay = %v, want 3500", got)
	}
	if got := tr[EventNavigate]["url"]; got != "/churches" {
		t.Errorf("navigate url = %v", got)
	}
}

func TestHTMXResponseBuilder_FailureSequences(t *testing.T) {
	tests := []struct {
		name  string
		seq   form.Sequence
		event string
		want  map[string]any
	}{
		{
			name:  "reenable",
			seq:   form.Sequence{{Effect: form.EffectReenable, After: 1500 * time.Millisecond}},
			event: EventReenable,
			want:  map[string]any{"formId": "f-2", "delay": float64(1500)},
		},
		{
			name:  "auth redirect",
			seq:   form.Sequence{{Effect: form.EffectRedirectLogin, After: 3 * time.Second, URL: "/"}},
			event: EventAuthRedirect,
			want:  map[string]any{"url": "/", "delay": float64(3000)},
		},
		{
			name: "dialog close then scroll",
			seq: form.Sequence{
				{Effect: form.EffectCloseDialog, After: time.Second},
				{Effect: form.EffectScrollTop},
			},
			event: EventScrollTop,
			want:  map[string]any{"delay": float64(1000)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewHTMXResponse().TriggerSequence("f-2", tt.seq).Write(w)
			got := decodeTriggers(t, w)[tt.event]
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s[%s] = %v, want %v", tt.event, k, got[k], v)
				}
			}
		})
	}
}

func TestHTMXResponseBuilder_MutationNotification(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().
		TriggerMutationNotification(mutation.Notification{Level: mutation.LevelWarning, Title: "Upload failed", Message: "Refresh"}).
		Write(w)

	n := decodeTriggers(t, w)[EventNotification]
	if n["type"] != "warning" || n["title"] != "Upload failed" || n["duration"] != float64(errorDuration) {
		t.Errorf("notification = %v", n)
	}

	w = httptest.NewRecorder()
	NewHTMXResponse().
		TriggerMutationNotification(mutation.Notification{Level: mutation.LevelSuccess, Title: "Saved"}).
		Write(w)
	if d := decodeTriggers(t, w)[EventNotification]["duration"]; d != float64(successDuration) {
		t.Errorf("success duration = %v", d)
	}
}

func TestHTMXResponseBuilder_CustomHeader(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Header("X-Custom", "value").
		NoSwap().
		Write(w)

	if got := w.Header().Get("X-Custom"); got != "value" {
		t.Errorf("X-Custom = %q, want %q", got, "value")
	}
	if got := w.Header().Get("HX-Reswap"); got != "none" {
		t.Errorf("HX-Reswap = %q, want none", got)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *HTMXResponseBuilder
		status  int
	}{
		{"bad request", BadRequestError("bad <input>"), http.StatusBadRequest},
		{"not found", NotFoundError("missing"), http.StatusNotFound},
		{"internal", InternalServerError("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if !strings.HasPrefix(w.Body.String(), `<div class="error">`) {
				t.Errorf("body = %q", w.Body.String())
			}
			if strings.Contains(w.Body.String(), "<input>") {
				t.Error("message not escaped")
			}
			if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}

	w := httptest.NewRecorder()
	ConflictError("busy").Write(w)
	if w.Code != http.StatusConflict || w.Header().Get("HX-Reswap") != "none" || w.Body.Len() != 0 {
		t.Errorf("conflict response = %d %q %q", w.Code, w.Header().Get("HX-Reswap"), w.Body.String())
	}
}
