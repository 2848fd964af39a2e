// Package http serves the church administration console: server-rendered
// pages and HTMX partials over the entity backend.
//
// This file implements the builder for HTMX responses. Client-side effects
// travel as HX-Trigger events that static/app.js schedules.
package http

import (
	"encoding/json"
	"html/template"
	"net/http"

	"churchadmin/internal/form"
	"churchadmin/internal/mutation"
)

// Client events understood by app.js.
const (
	EventNotification = "show-notification"
	EventReenable     = "form:reenable"
	EventAuthRedirect = "auth:redirect"
	EventFormReset    = "form:reset"
	EventNavigate     = "navigate"
	EventDialogClose  = "dialog:close"
	EventScrollTop    = "scroll:top"
	EventListRefresh  = "list:refresh"
)

// HTMXResponseBuilder provides a fluent API for building HTMX responses.
type HTMXResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       []byte
	headers    map[string]string
}

func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named event with optional data to the HX-Trigger header.
func (b *HTMXResponseBuilder) Trigger(name string, data any) *HTMXResponseBuilder {
	b.triggers[name] = data
	return b
}

type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

// Toast durations in milliseconds.
const (
	successDuration = 3000
	errorDuration   = 5000
)

// TriggerNotification adds a show-notification event.
func (b *HTMXResponseBuilder) TriggerNotification(notifType NotificationType, title, message string, durationMs int) *HTMXResponseBuilder {
	return b.Trigger(EventNotification, map[string]any{
		"type":     string(notifType),
		"title":    title,
		"message":  message,
		"duration": durationMs,
	})
}

func (b *HTMXResponseBuilder) TriggerSuccessNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationSuccess, "", message, successDuration)
}

func (b *HTMXResponseBuilder) TriggerErrorNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationError, "", message, errorDuration)
}

func (b *HTMXResponseBuilder) TriggerWarningNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationWarning, "", message, errorDuration)
}

// TriggerMutationNotification shows the toast of a finished mutation.
func (b *HTMXResponseBuilder) TriggerMutationNotification(n mutation.Notification) *HTMXResponseBuilder {
	d := errorDuration
	if n.Level == mutation.LevelSuccess {
		d = successDuration
	}
	return b.TriggerNotification(NotificationType(n.Level), n.Title, n.Message, d)
}

// TriggerSequence schedules the steps of a submit sequence. Each event
// carries its delay from now in milliseconds, so the browser runs the steps
// in the order the form lifecycle defined them.
func (b *HTMXResponseBuilder) TriggerSequence(formID string, seq form.Sequence) *HTMXResponseBuilder {
	offsets := seq.Offsets()
	for i, st := range seq {
		delay := offsets[i].Milliseconds()
		switch st.Effect {
		case form.EffectReenable:
			b.Trigger(EventReenable, map[string]any{"formId": formID, "delay": delay})
		case form.EffectRedirectLogin:
			b.Trigger(EventAuthRedirect, map[string]any{"url": st.URL, "delay": delay})
		case form.EffectResetForm:
			b.Trigger(EventFormReset, map[string]any{"formId": formID, "delay": delay})
		case form.EffectNavigateList:
			b.Trigger(EventNavigate, map[string]any{"url": st.URL, "delay": delay})
		case form.EffectCloseDialog:
			b.Trigger(EventDialogClose, map[string]any{"formId": formID, "delay": delay})
		case form.EffectScrollTop:
			b.Trigger(EventScrollTop, map[string]any{"delay": delay})
		}
	}
	return b
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *HTMXResponseBuilder) Body(content []byte) *HTMXResponseBuilder {
	b.body = content
	return b
}

func (b *HTMXResponseBuilder) BodyString(content string) *HTMXResponseBuilder {
	b.body = []byte(content)
	return b
}

func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

// NoSwap tells htmx to leave the target untouched.
func (b *HTMXResponseBuilder) NoSwap() *HTMXResponseBuilder {
	return b.Header("HX-Reswap", "none")
}

// Write sends the built response to the http.ResponseWriter.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if len(b.triggers) > 0 {
		triggerJSON, err := json.Marshal(b.triggers)
		if err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse is an HTML error fragment with an error toast. The message
// is HTML-escaped.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		TriggerErrorNotification(message).
		BodyHTML(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`)
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// ConflictError answers requests that raced a submission; the page keeps
// its current content.
func ConflictError(message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(http.StatusConflict).
		TriggerWarningNotification(message).
		NoSwap()
}
