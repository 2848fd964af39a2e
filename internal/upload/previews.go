// Package upload keeps receipt files attached to open forms until they are
// uploaded with the record or discarded.
package upload

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrUnsupportedType = errors.New("only images and PDF files are accepted")
	ErrTooManyFiles    = errors.New("too many files for this form")
	ErrTooLarge        = errors.New("file is too large")
	ErrEmptyFile       = errors.New("file is empty")
)

// Preview is a file held for an open form. Handle is the only way the
// browser refers to it.
type Preview struct {
	Handle      string
	FormID      string
	Filename    string
	ContentType string
	Data        []byte
}

// Size returns the file size in bytes.
func (p Preview) Size() int { return len(p.Data) }

// IsImage reports whether the preview can be shown inline as an image.
func (p Preview) IsImage() bool { return strings.HasPrefix(p.ContentType, "image/") }

// Previews owns preview handles. Each handle must be released when the file
// is removed, uploaded or its form closes.
type Previews struct {
	mu         sync.Mutex
	byHandle   map[string]*Preview
	byForm     map[string][]string
	maxPerForm int
	maxBytes   int
}

func NewPreviews(maxPerForm, maxBytes int) *Previews {
	return &Previews{
		byHandle:   make(map[string]*Preview),
		byForm:     make(map[string][]string),
		maxPerForm: maxPerForm,
		maxBytes:   maxBytes,
	}
}

// Add sniffs data and stores it for formID.
func (p *Previews) Add(formID, filename string, data []byte) (Preview, error) {
	if len(data) == 0 {
		return Preview{}, ErrEmptyFile
	}
	if p.maxBytes > 0 && len(data) > p.maxBytes {
		return Preview{}, fmt.Errorf("%s: %w", filename, ErrTooLarge)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") && !mt.Is("application/pdf") {
		return Preview{}, fmt.Errorf("%s (%s): %w", filename, mt.String(), ErrUnsupportedType)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.maxPerForm > 0 && len(p.byForm[formID]) >= p.maxPerForm {
		return Preview{}, ErrTooManyFiles
	}
	pv := &Preview{
		Handle:      uuid.NewString(),
		FormID:      formID,
		Filename:    filename,
		ContentType: mt.String(),
		Data:        data,
	}
	p.byHandle[pv.Handle] = pv
	p.byForm[formID] = append(p.byForm[formID], pv.Handle)
	return *pv, nil
}

func (p *Previews) Get(handle string) (Preview, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pv, ok := p.byHandle[handle]
	if !ok {
		return Preview{}, false
	}
	return *pv, true
}

// Files returns the previews of formID in the order they were added.
func (p *Previews) Files(formID string) []Preview {
	p.mu.Lock()
	defer p.mu.Unlock()
	handles := p.byForm[formID]
	out := make([]Preview, 0, len(handles))
	for _, h := range handles {
		out = append(out, *p.byHandle[h])
	}
	return out
}

// Release frees a single handle.
func (p *Previews) Release(handle string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	pv, ok := p.byHandle[handle]
	if !ok {
		return false
	}
	delete(p.byHandle, handle)
	handles := slices.DeleteFunc(p.byForm[pv.FormID], func(h string) bool { return h == handle })
	if len(handles) == 0 {
		delete(p.byForm, pv.FormID)
	} else {
		p.byForm[pv.FormID] = handles
	}
	return true
}

// ReleaseForm frees every handle of formID and returns how many were held.
func (p *Previews) ReleaseForm(formID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	handles := p.byForm[formID]
	for _, h := range handles {
		delete(p.byHandle, h)
	}
	delete(p.byForm, formID)
	return len(handles)
}

// Len is the number of live handles.
func (p *Previews) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byHandle)
}
