package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"churchadmin/internal/auth"
	"churchadmin/internal/backend"
	"churchadmin/internal/core"
	"churchadmin/internal/log"
	"churchadmin/internal/metrics"
	"churchadmin/internal/report"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.opts.Clock().Format(time.RFC3339),
		"uptime":    s.opts.Clock().Sub(s.started).String(),
	})
}

// handleReady checks templates and the entity backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if p, ok := s.backend.(backend.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			checks["backend"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	} else {
		checks["backend"] = "unchecked"
	}

	checks["reports"] = "not_configured"
	if s.reports != nil {
		checks["reports"] = "ok"
	}
	checks["sessions"] = s.sessions.Len()
	checks["open_forms"] = s.forms.Len()
	checks["cache_entries"] = s.queries.Len()
	checks["previews"] = s.previews.Len()
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"total_hits":     s.limiter.GetMetrics().TotalHits,
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": s.opts.Clock().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().
		Status(http.StatusTooManyRequests).
		TriggerWarningNotification("Too many requests. Wait a moment and try again.").
		NoSwap().
		Write(w)
}

type kindKey struct{}

// kindCtx resolves the {kind} URL segment. Unknown kinds are 404s, and the
// user list is visible to administrators only.
func kindCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind, err := core.ParseKind(chi.URLParam(r, "kind"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if sess, ok := auth.FromContext(r.Context()); kind == core.KindUser && (!ok || !sess.CanManage(kind)) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		ctx := context.WithValue(r.Context(), kindKey{}, kind)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldKind, string(kind)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func kindFrom(r *http.Request) core.Kind {
	k, _ := r.Context().Value(kindKey{}).(core.Kind)
	return k
}

// sessionFrom returns the session attached by the auth middleware. Routes
// behind it always have one.
func sessionFrom(r *http.Request) *auth.Session {
	sess, _ := auth.FromContext(r.Context())
	return sess
}

// cachedSearcher serves backend searches through the query cache.
type cachedSearcher struct{ s *Server }

func (c cachedSearcher) Search(ctx context.Context, kind core.Kind, q core.SearchQuery) ([]core.Record, error) {
	return c.s.queries.Search(ctx, c.s.backend, kind, q)
}

func (s *Server) searchAll(ctx context.Context, kind core.Kind, q core.SearchQuery) ([]core.Record, error) {
	return report.SearchAll(ctx, cachedSearcher{s}, kind, q, report.DefaultPageSize)
}

// backendFailed answers a failed backend read. A rejected token ends the
// session and sends the browser back to login.
func (s *Server) backendFailed(w http.ResponseWriter, r *http.Request, err error, op string) {
	logger := log.FromContext(r.Context())
	if core.IsUnauthorized(err) {
		logger.WarnContext(r.Context(), "Backend rejected session", log.FieldOperation, op)
		s.endSession(w, r)
		auth.Redirect(w, r)
		return
	}
	logger.ErrorContext(r.Context(), "Backend request failed", log.FieldOperation, op, log.FieldError, err)
	ErrorResponse(http.StatusBadGateway, "The backend could not be reached. Try again later.").Write(w)
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.sessions.FromRequest(r); ok {
		s.sessions.Delete(sess.ID)
	}
	s.sessions.ClearCookie(w)
}

// sessionEnded drops what a session owned once it is logged out or expires.
// Closing its forms releases their upload previews.
func (s *Server) sessionEnded(id string) {
	s.ui.Forget(id)
	if n := s.forms.CloseSession(id); n > 0 {
		metrics.SetOpenForms(s.forms.Len())
	}
}
