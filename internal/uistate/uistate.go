// Package uistate keeps small per-session view flags that survive page
// navigation, such as whether a list shows its filter row.
package uistate

import (
	"sync"

	"churchadmin/internal/core"
)

// Flags is the UI state of one entity list.
type Flags struct {
	FiltersVisible bool
	// FiltersDisabled hides the table while a dialog owns the page.
	FiltersDisabled bool
}

type key struct {
	session string
	kind    core.Kind
}

// Store holds flags per session and kind. The zero value is not usable;
// call New.
type Store struct {
	mu    sync.RWMutex
	flags map[key]Flags
}

func New() *Store {
	return &Store{flags: make(map[key]Flags)}
}

// Get returns the flags of kind for session. Unknown pairs start with
// filters visible.
func (s *Store) Get(session string, kind core.Kind) Flags {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.flags[key{session, kind}]
	if !ok {
		return Flags{FiltersVisible: true}
	}
	return f
}

// ToggleFilters flips filter visibility and returns the new value.
func (s *Store) ToggleFilters(session string, kind core.Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{session, kind}
	f, ok := s.flags[k]
	if !ok {
		f.FiltersVisible = true
	}
	f.FiltersVisible = !f.FiltersVisible
	s.flags[k] = f
	return f.FiltersVisible
}

// DisableFilters sets whether the list of kind is disabled for session.
func (s *Store) DisableFilters(session string, kind core.Kind, disabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{session, kind}
	f, ok := s.flags[k]
	if !ok {
		f.FiltersVisible = true
	}
	f.FiltersDisabled = disabled
	s.flags[k] = f
}

// Forget drops every flag of session, used on logout.
func (s *Store) Forget(session string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.flags {
		if k.session == session {
			delete(s.flags, k)
		}
	}
}
