package auth

import (
	"net/http"

	"churchadmin/internal/core"
	"churchadmin/internal/log"
)

// LoginPath is where requests without a session are sent.
const LoginPath = "/"

// Middleware rejects requests without a live session. Full page loads are
// redirected to the login page; HTMX requests get an HX-Redirect so the
// browser leaves the partial swap. The session and its backend token are
// attached to the request context.
func (s *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.FromRequest(r)
		if !ok {
			log.FromContext(r.Context()).DebugContext(r.Context(), "Request without session",
				log.FieldPath, r.URL.Path, log.FieldMethod, r.Method)
			Redirect(w, r)
			return
		}
		ctx := NewContext(r.Context(), sess)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUser, sess.Email))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Redirect sends the browser to the login page.
func Redirect(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", LoginPath)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

// RequireManage allows writes only to sessions that may manage kind.
func RequireManage(kind core.Kind, w http.ResponseWriter, r *http.Request) bool {
	sess, ok := FromContext(r.Context())
	if ok && sess.CanManage(kind) {
		return true
	}
	http.Error(w, "You are not allowed to change "+kind.Plural(), http.StatusForbidden)
	return false
}
