package http

import (
	"net/http"
	"strings"

	"churchadmin/internal/core"
	"churchadmin/internal/log"
)

type loginView struct {
	Email string
	Error string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessions.FromRequest(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", s.page(r, "Sign in", "", loginView{}))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentAuth)
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	password := r.PostForm.Get("password")
	view := loginView{Email: email}

	if email == "" || password == "" {
		view.Error = "Email and password are required."
		s.render(w, r, http.StatusUnprocessableEntity, "login.html", s.page(r, "Sign in", "", view))
		return
	}

	identity, err := s.backend.Login(r.Context(), email, password)
	if err != nil {
		status := http.StatusBadGateway
		view.Error = "The backend could not be reached. Try again later."
		if core.IsUnauthorized(err) {
			status = http.StatusUnauthorized
			view.Error = "Invalid email or password."
			logger.WarnContext(r.Context(), "Login rejected", log.FieldUser, email)
		} else {
			logger.ErrorContext(r.Context(), "Login failed", log.FieldUser, email, log.FieldError, err)
		}
		s.render(w, r, status, "login.html", s.page(r, "Sign in", "", view))
		return
	}

	sess := s.sessions.Create(identity)
	s.sessions.SetCookie(w, sess)
	logger.InfoContext(r.Context(), "User signed in", log.FieldUser, sess.Email)

	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/dashboard")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.endSession(w, r)
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
