// Package memory is an in-process entity backend for development and tests.
package memory

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"churchadmin/internal/core"
)

type credential struct {
	userID string
	hash   []byte
}

// Store keeps every record in maps guarded by one mutex.
type Store struct {
	mu          sync.RWMutex
	records     map[core.Kind]map[string]core.Record
	credentials map[string]credential // by lower-case email
	files       map[string]core.File
	now         func() time.Time
}

func New() *Store {
	return &Store{
		records:     make(map[core.Kind]map[string]core.Record),
		credentials: make(map[string]credential),
		files:       make(map[string]core.File),
		now:         time.Now,
	}
}

// SetClock replaces the time source used for record timestamps.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

func (s *Store) Ping(context.Context) error { return nil }

// EnsureAdmin creates a super user unless the email is already registered.
func (s *Store) EnsureAdmin(ctx context.Context, email, password string) error {
	s.mu.RLock()
	_, exists := s.credentials[strings.ToLower(email)]
	s.mu.RUnlock()
	if exists {
		return nil
	}
	_, err := s.Create(ctx, core.KindUser, map[string]any{
		"firstNames": "Console",
		"lastNames":  "Administrator",
		"email":      email,
		"password":   password,
		"roles":      []any{string(core.UserRoleSuper)},
	})
	return err
}

func (s *Store) Create(_ context.Context, kind core.Kind, data map[string]any) (core.Record, error) {
	if !kind.Valid() {
		return core.Record{}, fmt.Errorf("unknown kind %q", kind)
	}
	data = maps.Clone(data)
	status, ok := core.TakeStatus(data)
	if !ok {
		status = core.StatusActive
	}
	now := s.now().UTC()
	r := core.Record{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    status,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if kind == core.KindUser {
		if err := s.storeCredentialLocked(r.ID, data); err != nil {
			return core.Record{}, err
		}
	}
	if s.records[kind] == nil {
		s.records[kind] = make(map[string]core.Record)
	}
	s.records[kind][r.ID] = r
	return cloneRecord(r), nil
}

func (s *Store) storeCredentialLocked(userID string, data map[string]any) error {
	email, _ := data["email"].(string)
	password, _ := data["password"].(string)
	delete(data, "password")
	if email == "" {
		return &core.APIError{Status: http.StatusBadRequest, Message: "email is required"}
	}
	key := strings.ToLower(email)
	if c, ok := s.credentials[key]; ok && c.userID != userID {
		return &core.APIError{Status: http.StatusBadRequest, Message: "Email already in use"}
	}
	c := credential{userID: userID}
	for k, other := range s.credentials {
		if other.userID == userID {
			c.hash = other.hash
			delete(s.credentials, k)
		}
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		c.hash = hash
	}
	s.credentials[key] = c
	return nil
}

func (s *Store) Update(_ context.Context, kind core.Kind, id string, data map[string]any) (core.Record, error) {
	data = maps.Clone(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[kind][id]
	if !ok {
		return core.Record{}, fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	if kind == core.KindUser {
		if _, hasEmail := data["email"]; hasEmail {
			if err := s.storeCredentialLocked(id, data); err != nil {
				return core.Record{}, err
			}
		}
	}
	if st, ok := core.TakeStatus(data); ok {
		r.Status = st
		if st == core.StatusActive {
			r.InactivatedAt = nil
		}
	}
	merged := core.MergeData(maps.Clone(r.Data), data)
	r.Data = merged
	r.UpdatedAt = s.now().UTC()
	s.records[kind][id] = r
	return cloneRecord(r), nil
}

func (s *Store) Get(_ context.Context, kind core.Kind, id string) (core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[kind][id]
	if !ok {
		return core.Record{}, fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return cloneRecord(r), nil
}

func (s *Store) Search(_ context.Context, kind core.Kind, q core.SearchQuery) ([]core.Record, error) {
	s.mu.RLock()
	var out []core.Record
	for _, r := range s.records[kind] {
		if q.Status != "" && r.Status != q.Status {
			continue
		}
		if !matchesFilters(r, q.Filters) || !core.MatchesTerm(r, q.Term) {
			continue
		}
		out = append(out, cloneRecord(r))
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b core.Record) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return paginate(out, q.Limit, q.Offset), nil
}

func matchesFilters(r core.Record, filters map[string]string) bool {
	for k, v := range filters {
		if r.Field(k) != v {
			return false
		}
	}
	return true
}

func paginate(rs []core.Record, limit, offset int) []core.Record {
	if offset > 0 {
		if offset >= len(rs) {
			return nil
		}
		rs = rs[offset:]
	}
	if limit > 0 && limit < len(rs) {
		rs = rs[:limit]
	}
	return rs
}

func (s *Store) Inactivate(_ context.Context, kind core.Kind, id string, data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[kind][id]
	if !ok {
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	if r.Status == core.StatusInactive {
		return &core.APIError{Status: http.StatusBadRequest, Message: "Record is already inactive"}
	}
	now := s.now().UTC()
	merged := core.MergeData(maps.Clone(r.Data), data)
	r.Data = merged
	r.Status = core.StatusInactive
	r.InactivatedAt = &now
	r.UpdatedAt = now
	s.records[kind][id] = r
	return nil
}

func (s *Store) Upload(_ context.Context, kind core.Kind, files []core.File) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	urls := make([]string, 0, len(files))
	for _, f := range files {
		u := fmt.Sprintf("memory://%s/%s/%s", kind.Slug(), uuid.NewString(), f.Name)
		s.files[u] = f
		urls = append(urls, u)
	}
	return urls, nil
}

func (s *Store) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[url]; !ok {
		return fmt.Errorf("file %s: %w", url, core.ErrNotFound)
	}
	delete(s.files, url)
	return nil
}

// FileCount reports how many uploaded files are stored.
func (s *Store) FileCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

func (s *Store) Login(_ context.Context, email, password string) (core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credentials[strings.ToLower(strings.TrimSpace(email))]
	if !ok || bcrypt.CompareHashAndPassword(c.hash, []byte(password)) != nil {
		return core.Session{}, core.ErrUnauthorized
	}
	u, ok := s.records[core.KindUser][c.userID]
	if !ok || !u.Active() {
		return core.Session{}, core.ErrUnauthorized
	}
	return core.NewSession(u)
}

func cloneRecord(r core.Record) core.Record {
	r.Data = maps.Clone(r.Data)
	if r.InactivatedAt != nil {
		t := *r.InactivatedAt
		r.InactivatedAt = &t
	}
	return r
}
