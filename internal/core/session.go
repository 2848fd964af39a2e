package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"slices"
)

// File is an uploaded receipt or image on its way to the file store.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Session is the authenticated identity returned by the backend login.
type Session struct {
	Token  string     `json:"accessToken"`
	UserID string     `json:"id"`
	Email  string     `json:"email"`
	Name   string     `json:"fullName"`
	Roles  []UserRole `json:"roles"`
}

// NewSession builds a session with a fresh random token for a user record.
func NewSession(u Record) (Session, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return Session{}, fmt.Errorf("generate token: %w", err)
	}
	sess := Session{
		Token:  hex.EncodeToString(buf),
		UserID: u.ID,
		Email:  u.Field("email"),
		Name:   u.DisplayName(),
	}
	switch roles := u.Data["roles"].(type) {
	case []any:
		for _, r := range roles {
			sess.Roles = append(sess.Roles, UserRole(fmt.Sprint(r)))
		}
	case []string:
		for _, r := range roles {
			sess.Roles = append(sess.Roles, UserRole(r))
		}
	}
	return sess, nil
}

// HasRole reports whether the session carries any of roles.
func (s Session) HasRole(roles ...UserRole) bool {
	for _, r := range roles {
		if slices.Contains(s.Roles, r) {
			return true
		}
	}
	return false
}

// CanManage reports whether the session may write records of kind. Users
// are managed by administrators only; plain users are read-only.
func (s Session) CanManage(kind Kind) bool {
	if kind == KindUser {
		return s.HasRole(UserRoleSuper, UserRoleAdmin)
	}
	return s.HasRole(UserRoleSuper, UserRoleAdmin, UserRoleTreasurer)
}

type tokenKey struct{}

// WithToken attaches the backend bearer token to ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the bearer token carried by ctx.
func TokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey{}).(string)
	return t
}
