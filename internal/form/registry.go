package form

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"churchadmin/internal/cache"
	"churchadmin/internal/core"
)

// Releaser frees resources owned by a form instance, such as upload
// previews.
type Releaser interface {
	ReleaseForm(formID string) int
}

// Instance is an open form bound to a browser session.
type Instance struct {
	ID        string
	Kind      core.Kind
	Purpose   Purpose
	RecordID  string
	SessionID string
	Machine   *Machine
}

// Registry keeps open form instances. Instances idle longer than the TTL,
// or pushed out by capacity, are closed and their resources released.
type Registry struct {
	forms    *cache.LRUCache[*Instance]
	releaser Releaser
	logger   *slog.Logger
}

func NewRegistry(size int, ttl time.Duration, releaser Releaser, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{releaser: releaser, logger: logger.With("component", "form_registry")}
	r.forms = cache.NewLRUCache(size, ttl, cache.WithEvict(r.onEvict))
	return r
}

func (r *Registry) onEvict(id string, inst *Instance) {
	n := 0
	if r.releaser != nil {
		n = r.releaser.ReleaseForm(id)
	}
	r.logger.Debug("Form closed", "form_id", id, "kind", inst.Kind, "released_previews", n)
}

// Open stores a new instance and returns its ID.
func (r *Registry) Open(inst *Instance) string {
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	r.forms.Set(inst.ID, inst)
	return inst.ID
}

// Get returns the instance owned by sessionID and extends its lifetime.
func (r *Registry) Get(id, sessionID string) (*Instance, bool) {
	inst, ok := r.forms.Get(id)
	if !ok || inst.SessionID != sessionID {
		return nil, false
	}
	r.forms.Touch(id)
	return inst, true
}

// Close discards the instance and releases what it owns.
func (r *Registry) Close(id string) {
	r.forms.Delete(id)
}

// CloseSession closes every instance opened by sessionID and returns how
// many there were.
func (r *Registry) CloseSession(sessionID string) int {
	return r.forms.DeleteFunc(func(_ string, inst *Instance) bool {
		return inst.SessionID == sessionID
	})
}

func (r *Registry) Len() int { return r.forms.Size() }

// CleanExpired lets a cache.Manager sweep idle instances.
func (r *Registry) CleanExpired() int { return r.forms.CleanExpired() }
