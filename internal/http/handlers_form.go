package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"

	"github.com/go-chi/chi/v5"

	"churchadmin/internal/auth"
	"churchadmin/internal/core"
	"churchadmin/internal/form"
	"churchadmin/internal/log"
	"churchadmin/internal/metrics"
	"churchadmin/internal/mutation"
	"churchadmin/internal/upload"
)

type fieldView struct {
	FormID      string
	Name        string
	Label       string
	Type        form.InputType
	Value       string
	Values      []string
	Checked     bool
	Options     []optionView
	Error       string
	Disabled    bool
	Placeholder string
	// OptionsURL reloads a relation select after records change.
	OptionsURL string
	// Waiting marks a dependent select whose parent is still empty.
	Waiting bool
}

type previewsView struct {
	FormID   string
	Items    []upload.Preview
	Disabled bool
	Max      int
}

type formView struct {
	ID       string
	Kind     core.Kind
	Slug     string
	Title    string
	Subtitle string
	Purpose  form.Purpose
	Update   bool
	Dialog   bool
	View     form.View
	State    string
	Message  string
	Fields   []fieldView

	AcceptsFiles bool
	Previews     previewsView
}

func acceptsFiles(inst *form.Instance) bool {
	return inst.Purpose == form.PurposeRecord && inst.Kind.IsOffering()
}

// openForm starts a form instance for the session. rec seeds update forms
// and is the target of inactivation dialogs.
func (s *Server) openForm(r *http.Request, kind core.Kind, purpose form.Purpose, mode form.Mode, rec *core.Record) (*form.Instance, error) {
	schema, err := form.SchemaFor(kind, purpose, mode)
	if err != nil {
		return nil, err
	}
	inst := &form.Instance{
		Kind:      kind,
		Purpose:   purpose,
		SessionID: sessionFrom(r).ID,
	}
	var initial url.Values
	if rec != nil {
		inst.RecordID = rec.ID
		if purpose == form.PurposeRecord {
			initial = form.ValuesFromRecord(schema, *rec)
		}
	}
	inst.Machine = form.NewMachine(schema, mode, initial, s.opts.Timings, form.WithClock(s.opts.Clock))
	s.forms.Open(inst)
	metrics.SetOpenForms(s.forms.Len())
	log.FromContext(r.Context()).DebugContext(r.Context(), "Form opened",
		log.FieldFormID, inst.ID, "purpose", string(purpose), "mode", mode.String())
	return inst, nil
}

// formFrom resolves {formID} for the current session.
func (s *Server) formFrom(w http.ResponseWriter, r *http.Request) (*form.Instance, bool) {
	inst, ok := s.forms.Get(chi.URLParam(r, "formID"), sessionFrom(r).ID)
	if !ok {
		NotFoundError("This form is no longer open. Reload the page.").Write(w)
		return nil, false
	}
	return inst, true
}

// buildFormView derives the template view of inst. Offline views skip the
// relation lookups and show only the selected IDs.
func (s *Server) buildFormView(r *http.Request, inst *form.Instance, offline bool) (formView, error) {
	view := inst.Machine.View()
	schema := inst.Machine.Schema()
	fv := formView{
		ID:           inst.ID,
		Kind:         inst.Kind,
		Slug:         inst.Kind.Slug(),
		Title:        schema.Title,
		Purpose:      inst.Purpose,
		Update:       inst.Machine.Mode() == form.Update,
		Dialog:       inst.Machine.Mode() == form.Update,
		View:         view,
		State:        view.State.String(),
		Message:      messageText(view),
		AcceptsFiles: acceptsFiles(inst),
	}
	if fv.AcceptsFiles {
		fv.Previews = s.previewsFor(inst, view.InputsDisabled)
	}

	for _, f := range schema.Fields {
		if !f.Visible(view.Values) {
			continue
		}
		field := fieldView{
			FormID:      inst.ID,
			Name:        f.Name,
			Label:       f.Label,
			Type:        f.Type,
			Value:       view.Values.Get(f.Name),
			Values:      view.Values[f.Name],
			Error:       view.Errors[f.Name],
			Disabled:    view.InputsDisabled,
			Placeholder: f.Placeholder,
		}
		switch f.Type {
		case form.InputCheckbox:
			field.Checked = field.Value == "true" || field.Value == "on"
		case form.InputSelect, form.InputMulti:
			for _, o := range f.FieldOptions(view.Values) {
				field.Options = append(field.Options, optionView{
					Value:    o.Value,
					Label:    o.Label,
					Selected: slices.Contains(field.Values, o.Value),
				})
			}
		case form.InputRelation:
			kind, ok := f.ResolveKind(view.Values)
			if !ok {
				field.Waiting = true
				break
			}
			if offline {
				for _, id := range field.Values {
					field.Options = append(field.Options, optionView{Value: id, Label: id, Selected: true})
				}
				break
			}
			by, parent := "", ""
			if rel := f.Relation; rel.ParentField != "" {
				by = rel.FilterKey
				if by == "" {
					by = rel.ParentField
				}
				parent = view.Values.Get(rel.ParentField)
			}
			records, err := s.relationRecords(r, kind, by, parent)
			if err != nil {
				return formView{}, fmt.Errorf("load %s options: %w", kind, err)
			}
			exclude := ""
			if kind == inst.Kind {
				exclude = inst.RecordID
			}
			field.Options = optionsFrom(records, exclude, field.Values)
			field.Waiting = by != "" && parent == ""
			field.OptionsURL = optionsURL(kind, by, parent, exclude, field.Values)
		}
		fv.Fields = append(fv.Fields, field)
	}
	return fv, nil
}

func messageText(v form.View) string {
	switch {
	case v.State == form.Submitting:
		return "Saving..."
	case v.State == form.SubmitSucceeded:
		return "Saved."
	case v.State == form.SubmitFailedAuth:
		return "Your session expired. Redirecting to sign in..."
	case v.State == form.SubmitFailed:
		return "The form could not be saved."
	case v.Message == form.MessageIncomplete:
		return "Complete the required fields to continue."
	case v.Message == form.MessageComplete:
		return "The form is complete and can be saved."
	}
	return ""
}

func optionsURL(kind core.Kind, by, parent, exclude string, selected []string) string {
	v := url.Values{}
	if by != "" {
		v.Set("by", by)
		v.Set("parent", parent)
	}
	if exclude != "" {
		v.Set("exclude", exclude)
	}
	if len(selected) > 0 {
		v["selected"] = selected
	}
	u := "/options/" + kind.Slug()
	if q := v.Encode(); q != "" {
		u += "?" + q
	}
	return u
}

func (s *Server) previewsFor(inst *form.Instance, disabled bool) previewsView {
	return previewsView{
		FormID:   inst.ID,
		Items:    s.previews.Files(inst.ID),
		Disabled: disabled,
		Max:      s.opts.MaxFilesPerForm,
	}
}

func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, inst *form.Instance) {
	fv, err := s.buildFormView(r, inst, false)
	if err != nil {
		s.backendFailed(w, r, err, "form_options")
		return
	}
	s.respond(w, r, b, "form", fv)
}

func (s *Server) handleNewForm(w http.ResponseWriter, r *http.Request) {
	kind := kindFrom(r)
	if !auth.RequireManage(kind, w, r) {
		return
	}
	inst, err := s.openForm(r, kind, form.PurposeRecord, form.Create, nil)
	if err != nil {
		InternalServerError("The form could not be opened").Write(w)
		return
	}
	fv, err := s.buildFormView(r, inst, false)
	if err != nil {
		s.backendFailed(w, r, err, "form_options")
		return
	}
	s.render(w, r, http.StatusOK, "form_page.html", s.page(r, fv.Title, kind, fv))
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	s.openRecordForm(w, r, form.PurposeRecord)
}

func (s *Server) handleInactivateForm(w http.ResponseWriter, r *http.Request) {
	s.openRecordForm(w, r, form.PurposeInactivate)
}

// openRecordForm opens an update or inactivation form for {id}. Under HTMX
// it is a dialog over the list, and the list stays disabled until the
// dialog closes.
func (s *Server) openRecordForm(w http.ResponseWriter, r *http.Request, purpose form.Purpose) {
	kind := kindFrom(r)
	if !auth.RequireManage(kind, w, r) {
		return
	}
	rec, err := s.backend.Get(r.Context(), kind, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			NotFoundError(kind.Label() + " not found").Write(w)
			return
		}
		s.backendFailed(w, r, err, "get")
		return
	}
	if purpose == form.PurposeInactivate && !rec.Active() {
		ConflictError(kind.Label() + " is already inactive.").Write(w)
		return
	}

	inst, err := s.openForm(r, kind, purpose, form.Update, &rec)
	if err != nil {
		InternalServerError("The form could not be opened").Write(w)
		return
	}
	fv, err := s.buildFormView(r, inst, false)
	if err != nil {
		s.forms.Close(inst.ID)
		s.backendFailed(w, r, err, "form_options")
		return
	}
	fv.Subtitle = rec.DisplayName()

	if !isHTMX(r) {
		fv.Dialog = false
		s.render(w, r, http.StatusOK, "form_page.html", s.page(r, fv.Title, kind, fv))
		return
	}
	s.ui.DisableFilters(sessionFrom(r).ID, kind, true)
	b := NewHTMXResponse().Trigger(EventListRefresh, map[string]any{"kind": kind.Slug()})
	s.respond(w, r, b, "dialog", fv)
}

func (s *Server) handleFormView(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.formFrom(w, r)
	if !ok {
		return
	}
	s.renderForm(w, r, NewHTMXResponse(), inst)
}

// handleFormClose discards a form. Closing a dialog gives the list back.
func (s *Server) handleFormClose(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.formFrom(w, r)
	if !ok {
		return
	}
	s.forms.Close(inst.ID)
	metrics.SetOpenForms(s.forms.Len())

	b := NewHTMXResponse()
	if inst.Machine.Mode() == form.Update {
		s.ui.DisableFilters(sessionFrom(r).ID, inst.Kind, false)
		b.Trigger(EventListRefresh, map[string]any{"kind": inst.Kind.Slug()})
	}
	b.Write(w)
}

// handleFormChange applies the browser's values after one input changed.
// The changed input is named by HX-Trigger-Name.
func (s *Server) handleFormChange(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.formFrom(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	field := r.Header.Get("HX-Trigger-Name")
	reset, err := inst.Machine.Change(field, r.PostForm)
	if err != nil && !errors.Is(err, form.ErrLocked) {
		InternalServerError("The form could not be updated").Write(w)
		return
	}
	if len(reset) > 0 {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Dependent fields cleared",
			log.FieldFormID, inst.ID, "field", field, "reset", reset)
	}
	s.renderForm(w, r, NewHTMXResponse(), inst)
}

// handleFormSubmit runs the guarded submission. The response carries the
// toast and the timed effects; the browser schedules them.
func (s *Server) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.formFrom(w, r)
	if !ok {
		return
	}
	if !auth.RequireManage(inst.Kind, w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	logger := log.FromContext(r.Context()).WithComponent(log.ComponentForm)
	outcome, err := inst.Machine.Submit(r.Context(), r.PostForm, s.mutate(inst))
	switch {
	case errors.Is(err, form.ErrSubmitInFlight):
		ConflictError("This form is already being saved.").Write(w)
		return
	case errors.Is(err, form.ErrInvalid), errors.Is(err, form.ErrLocked):
		s.renderForm(w, r, NewHTMXResponse(), inst)
		return
	case err != nil:
		logger.ErrorContext(r.Context(), "Submit failed", log.FieldFormID, inst.ID, log.FieldError, err)
		InternalServerError("The form could not be submitted").Write(w)
		return
	}

	logger.InfoContext(r.Context(), "Form submitted",
		log.FieldFormID, inst.ID, log.FieldFormState, outcome.State.String())

	b := NewHTMXResponse().
		TriggerMutationNotification(mutation.NotificationFor(inst.Kind, operationOf(inst), outcome.Err)).
		TriggerSequence(inst.ID, outcome.Sequence)
	switch outcome.State {
	case form.SubmitSucceeded:
		b.Trigger(EventListRefresh, map[string]any{"kind": inst.Kind.Slug()})
	case form.SubmitFailedAuth:
		s.endSession(w, r)
		s.forms.Close(inst.ID)
		metrics.SetOpenForms(s.forms.Len())
		// the token is dead, so no relation lookups
		fv, _ := s.buildFormView(r, inst, true)
		s.respond(w, r, b, "form", fv)
		return
	}
	s.renderForm(w, r, b, inst)
}

func operationOf(inst *form.Instance) mutation.Operation {
	switch {
	case inst.Purpose == form.PurposeInactivate:
		return mutation.OpInactivate
	case inst.Machine.Mode() == form.Create:
		return mutation.OpCreate
	}
	return mutation.OpUpdate
}

// mutate sends a validated form to the backend. Pending receipts go up with
// record forms and their previews are released once the write succeeds.
func (s *Server) mutate(inst *form.Instance) form.MutateFunc {
	return func(ctx context.Context, dto any) error {
		data, err := form.Payload(dto)
		if err != nil {
			return err
		}
		var files []core.File
		if acceptsFiles(inst) {
			for _, pv := range s.previews.Files(inst.ID) {
				files = append(files, core.File{Name: pv.Filename, ContentType: pv.ContentType, Data: pv.Data})
			}
		}

		switch operationOf(inst) {
		case mutation.OpInactivate:
			err = s.mutations.Inactivate(ctx, inst.Kind, inst.RecordID, data)
		case mutation.OpCreate:
			_, err = s.mutations.Create(ctx, inst.Kind, data, files)
		default:
			form.ClearHidden(inst.Machine.Schema(), inst.Machine.Values(), data)
			if len(files) > 0 {
				// new receipts are appended to the stored ones
				rec, getErr := s.backend.Get(ctx, inst.Kind, inst.RecordID)
				if getErr != nil {
					return getErr
				}
				if urls, ok := rec.Data[mutation.ImageURLsField]; ok {
					data[mutation.ImageURLsField] = urls
				}
			}
			_, err = s.mutations.Update(ctx, inst.Kind, inst.RecordID, data, files)
		}
		if err == nil && len(files) > 0 {
			s.previews.ReleaseForm(inst.ID)
		}
		return err
	}
}

func (s *Server) handleFileAdd(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.formFrom(w, r)
	if !ok {
		return
	}
	if !acceptsFiles(inst) {
		BadRequestError("This form does not accept files").Write(w)
		return
	}
	if inst.Machine.View().InputsDisabled {
		ConflictError("Files cannot change while the form is being saved.").Write(w)
		return
	}

	maxBody := int64(s.opts.MaxFilesPerForm)*int64(s.opts.MaxFileBytes) + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseMultipartForm(int64(s.opts.MaxFileBytes)); err != nil {
		BadRequestError("The upload is too large or malformed").Write(w)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	b := NewHTMXResponse()
	for _, fh := range r.MultipartForm.File["files"] {
		f, err := fh.Open()
		if err != nil {
			b.TriggerWarningNotification(fh.Filename + ": the file could not be read")
			break
		}
		// one byte over the limit is enough for Add to reject it
		data, err := io.ReadAll(io.LimitReader(f, int64(s.opts.MaxFileBytes)+1))
		_ = f.Close()
		if err != nil {
			b.TriggerWarningNotification(fh.Filename + ": the file could not be read")
			break
		}
		if _, err := s.previews.Add(inst.ID, fh.Filename, data); err != nil {
			b.TriggerWarningNotification(uploadMessage(fh.Filename, err))
			break
		}
	}
	s.respond(w, r, b, "previews", s.previewsFor(inst, false))
}

func uploadMessage(filename string, err error) string {
	switch {
	case errors.Is(err, upload.ErrUnsupportedType):
		return filename + ": only images and PDF files are accepted."
	case errors.Is(err, upload.ErrTooLarge):
		return filename + ": the file is too large."
	case errors.Is(err, upload.ErrTooManyFiles):
		return "No more files can be attached to this form."
	case errors.Is(err, upload.ErrEmptyFile):
		return filename + ": the file is empty."
	}
	return filename + ": the file could not be attached."
}

func (s *Server) handleFileRemove(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.formFrom(w, r)
	if !ok {
		return
	}
	pv, ok := s.previews.Get(chi.URLParam(r, "handle"))
	if !ok || pv.FormID != inst.ID {
		NotFoundError("File not found").Write(w)
		return
	}
	if inst.Machine.View().InputsDisabled {
		ConflictError("Files cannot change while the form is being saved.").Write(w)
		return
	}
	s.previews.Release(pv.Handle)
	s.respond(w, r, NewHTMXResponse(), "previews", s.previewsFor(inst, false))
}

// handlePreview serves a held file to the session that owns its form.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	pv, ok := s.previews.Get(chi.URLParam(r, "handle"))
	if ok {
		_, ok = s.forms.Get(pv.FormID, sessionFrom(r).ID)
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", pv.ContentType)
	w.Header().Set("Content-Disposition", "inline")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pv.Data)
}
