// Package auth keeps console sessions and guards pages that need one.
package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"churchadmin/internal/cache"
	"churchadmin/internal/core"
	"churchadmin/internal/metrics"
)

// CookieName carries the session ID. The backend token never leaves the
// server.
const CookieName = "churchadmin_session"

// Session is a logged-in browser.
type Session struct {
	ID string
	core.Session
	CreatedAt time.Time
}

type Option func(*Store)

// WithClock replaces time.Now for session timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithSecureCookies marks the session cookie Secure.
func WithSecureCookies(secure bool) Option {
	return func(s *Store) { s.secure = secure }
}

// WithOnEnd registers a callback for sessions removed by logout, expiry or
// capacity.
func WithOnEnd(fn func(id string)) Option {
	return func(s *Store) { s.onEnd = fn }
}

// Store holds sessions in an LRU with an idle TTL.
type Store struct {
	sessions *cache.LRUCache[*Session]
	ttl      time.Duration
	now      func() time.Time
	secure   bool
	onEnd    func(id string)
}

func NewStore(size int, ttl time.Duration, opts ...Option) *Store {
	s := &Store{ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.sessions = cache.NewLRUCache(size, ttl,
		cache.WithClock[*Session](s.now),
		cache.WithEvict(func(id string, _ *Session) {
			if s.onEnd != nil {
				s.onEnd(id)
			}
		}),
	)
	return s
}

// Create starts a session for an authenticated identity.
func (s *Store) Create(identity core.Session) *Session {
	sess := &Session{ID: uuid.NewString(), Session: identity, CreatedAt: s.now()}
	s.sessions.Set(sess.ID, sess)
	metrics.SetSessions(s.sessions.Size())
	return sess
}

// Get returns a live session and extends its idle lifetime.
func (s *Store) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, false
	}
	s.sessions.Touch(id)
	return sess, true
}

func (s *Store) Delete(id string) {
	s.sessions.Delete(id)
	metrics.SetSessions(s.sessions.Size())
}

func (s *Store) Len() int { return s.sessions.Size() }

// CleanExpired implements cache.Cleaner.
func (s *Store) CleanExpired() int {
	n := s.sessions.CleanExpired()
	metrics.SetSessions(s.sessions.Size())
	return n
}

// FromRequest resolves the session named by the request cookie.
func (s *Store) FromRequest(r *http.Request) (*Session, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil, false
	}
	return s.Get(c.Value)
}

func (s *Store) SetCookie(w http.ResponseWriter, sess *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.ID,
		Path:     "/",
		MaxAge:   int(s.ttl / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Store) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type sessionKey struct{}

// NewContext returns ctx carrying sess and its backend token.
func NewContext(ctx context.Context, sess *Session) context.Context {
	ctx = context.WithValue(ctx, sessionKey{}, sess)
	return core.WithToken(ctx, sess.Token)
}

// FromContext returns the session attached by Middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(*Session)
	return sess, ok
}
