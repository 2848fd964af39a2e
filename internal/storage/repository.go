// Package storage is a SQLite entity backend. Records are stored as JSON
// documents keyed by kind so every entity shares one table.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"churchadmin/internal/core"

	_ "modernc.org/sqlite"
)

// timeLayout keeps a fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// filterKey guards the json_extract paths built from search filters.
var filterKey = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serialises writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SetClock replaces the time source used for record timestamps.
func (r *SQLiteRepository) SetClock(now func() time.Time) { r.now = now }

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// EnsureAdmin creates a super user unless the email is already registered.
func (r *SQLiteRepository) EnsureAdmin(ctx context.Context, email, password string) error {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM credentials WHERE email = ?`, email).Scan(&n)
	if err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if n > 0 {
		return nil
	}
	_, err = r.Create(ctx, core.KindUser, map[string]any{
		"firstNames": "Console",
		"lastNames":  "Administrator",
		"email":      email,
		"password":   password,
		"roles":      []any{string(core.UserRoleSuper)},
	})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	slog.InfoContext(ctx, "Bootstrap administrator created", "email", email)
	return nil
}

func (r *SQLiteRepository) Create(ctx context.Context, kind core.Kind, data map[string]any) (core.Record, error) {
	if !kind.Valid() {
		return core.Record{}, fmt.Errorf("unknown kind %q", kind)
	}
	data = maps.Clone(data)
	status, ok := core.TakeStatus(data)
	if !ok {
		status = core.StatusActive
	}
	now := r.now().UTC()
	rec := core.Record{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if kind == core.KindUser {
			if err := storeCredential(ctx, tx, rec.ID, data); err != nil {
				return err
			}
		}
		rec.Data = data
		return insertRecord(ctx, tx, rec)
	})
	if err != nil {
		return core.Record{}, err
	}

	slog.InfoContext(ctx, "Record saved to SQLite", "kind", kind, "id", rec.ID)
	return rec, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, kind core.Kind, id string, data map[string]any) (core.Record, error) {
	data = maps.Clone(data)
	var rec core.Record
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		rec, err = getRecord(ctx, tx, kind, id)
		if err != nil {
			return err
		}
		if kind == core.KindUser {
			if _, hasEmail := data["email"]; hasEmail {
				if err := storeCredential(ctx, tx, id, data); err != nil {
					return err
				}
			}
		}
		if st, ok := core.TakeStatus(data); ok {
			rec.Status = st
			if st == core.StatusActive {
				rec.InactivatedAt = nil
			}
		}
		rec.Data = core.MergeData(rec.Data, data)
		rec.UpdatedAt = r.now().UTC()
		return saveRecord(ctx, tx, rec)
	})
	if err != nil {
		return core.Record{}, err
	}
	return rec, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, kind core.Kind, id string) (core.Record, error) {
	return getRecord(ctx, r.db, kind, id)
}

func (r *SQLiteRepository) Search(ctx context.Context, kind core.Kind, q core.SearchQuery) ([]core.Record, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, kind, status, data, created_at, updated_at, inactivated_at FROM records WHERE kind = ?`)
	args := []any{string(kind)}
	if q.Status != "" {
		sb.WriteString(` AND status = ?`)
		args = append(args, string(q.Status))
	}
	for _, k := range slices.Sorted(maps.Keys(q.Filters)) {
		if !filterKey.MatchString(k) {
			return nil, fmt.Errorf("invalid filter key %q", k)
		}
		sb.WriteString(` AND CAST(json_extract(data, ?) AS TEXT) = ?`)
		args = append(args, "$."+k, q.Filters[k])
	}
	sb.WriteString(` ORDER BY created_at DESC, id ASC`)

	// Term matching runs in Go, so paging moves there too when a term is set.
	pageInSQL := q.Term == ""
	if pageInSQL && (q.Limit > 0 || q.Offset > 0) {
		limit := q.Limit
		if limit <= 0 {
			limit = -1
		}
		sb.WriteString(` LIMIT ? OFFSET ?`)
		args = append(args, limit, max(q.Offset, 0))
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", kind, err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		if !core.MatchesTerm(rec, q.Term) {
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", kind, err)
	}
	if !pageInSQL {
		out = paginate(out, q.Limit, q.Offset)
	}
	return out, nil
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

func (r *SQLiteRepository) Inactivate(ctx context.Context, kind core.Kind, id string, data map[string]any) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		rec, err := getRecord(ctx, tx, kind, id)
		if err != nil {
			return err
		}
		if !rec.Active() {
			return &core.APIError{Status: http.StatusBadRequest, Message: "Record is already inactive"}
		}
		now := r.now().UTC()
		rec.Data = core.MergeData(rec.Data, data)
		rec.Status = core.StatusInactive
		rec.InactivatedAt = &now
		rec.UpdatedAt = now
		return saveRecord(ctx, tx, rec)
	})
}

func (r *SQLiteRepository) Upload(ctx context.Context, kind core.Kind, files []core.File) ([]string, error) {
	urls := make([]string, 0, len(files))
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		now := r.now().UTC().Format(timeLayout)
		for _, f := range files {
			u := fmt.Sprintf("sqlite://%s/%s/%s", kind.Slug(), uuid.NewString(), f.Name)
			_, err := tx.ExecContext(ctx,
				`INSERT INTO files (url, kind, name, content_type, data, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
				u, string(kind), f.Name, f.ContentType, f.Data, now)
			if err != nil {
				return fmt.Errorf("store file %s: %w", f.Name, err)
			}
			urls = append(urls, u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return urls, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, url string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE url = ?`, url)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("file %s: %w", url, core.ErrNotFound)
	}
	return nil
}

// File returns a stored upload by URL.
func (r *SQLiteRepository) File(ctx context.Context, url string) (core.File, error) {
	var f core.File
	err := r.db.QueryRowContext(ctx,
		`SELECT name, content_type, data FROM files WHERE url = ?`, url,
	).Scan(&f.Name, &f.ContentType, &f.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return core.File{}, fmt.Errorf("file %s: %w", url, core.ErrNotFound)
	}
	if err != nil {
		return core.File{}, fmt.Errorf("get file: %w", err)
	}
	return f, nil
}

func (r *SQLiteRepository) Login(ctx context.Context, email, password string) (core.Session, error) {
	var (
		userID string
		hash   []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, password_hash FROM credentials WHERE email = ?`,
		strings.TrimSpace(email),
	).Scan(&userID, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Session{}, core.ErrUnauthorized
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("load credentials: %w", err)
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return core.Session{}, core.ErrUnauthorized
	}
	u, err := getRecord(ctx, r.db, core.KindUser, userID)
	if err != nil || !u.Active() {
		return core.Session{}, core.ErrUnauthorized
	}
	return core.NewSession(u)
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func getRecord(ctx context.Context, q querier, kind core.Kind, id string) (core.Record, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, kind, status, data, created_at, updated_at, inactivated_at FROM records WHERE kind = ? AND id = ?`,
		string(kind), id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	return rec, nil
}

func scanRecord(s scanner) (core.Record, error) {
	var (
		rec                core.Record
		kind, status, data string
		created, updated   string
		inactivated        sql.NullString
	)
	if err := s.Scan(&rec.ID, &kind, &status, &data, &created, &updated, &inactivated); err != nil {
		return core.Record{}, err
	}
	rec.Kind = core.Kind(kind)
	rec.Status = core.RecordStatus(status)
	if err := json.Unmarshal([]byte(data), &rec.Data); err != nil {
		return core.Record{}, fmt.Errorf("decode data: %w", err)
	}
	var err error
	if rec.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return core.Record{}, fmt.Errorf("parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return core.Record{}, fmt.Errorf("parse updated_at: %w", err)
	}
	if inactivated.Valid {
		t, err := time.Parse(timeLayout, inactivated.String)
		if err != nil {
			return core.Record{}, fmt.Errorf("parse inactivated_at: %w", err)
		}
		rec.InactivatedAt = &t
	}
	return rec, nil
}

func insertRecord(ctx context.Context, tx *sql.Tx, rec core.Record) error {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO records (id, kind, status, data, created_at, updated_at, inactivated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Kind), string(rec.Status), string(data),
		rec.CreatedAt.Format(timeLayout), rec.UpdatedAt.Format(timeLayout), formatOptional(rec.InactivatedAt))
	if err != nil {
		return fmt.Errorf("insert %s: %w", rec.Kind, err)
	}
	return nil
}

func saveRecord(ctx context.Context, tx *sql.Tx, rec core.Record) error {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE records SET status = ?, data = ?, updated_at = ?, inactivated_at = ? WHERE kind = ? AND id = ?`,
		string(rec.Status), string(data), rec.UpdatedAt.Format(timeLayout),
		formatOptional(rec.InactivatedAt), string(rec.Kind), rec.ID)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", rec.Kind, rec.ID, err)
	}
	return nil
}

func formatOptional(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(timeLayout)
}

// storeCredential upserts the login row for a user and strips the password
// from data so it never reaches the records table.
func storeCredential(ctx context.Context, tx *sql.Tx, userID string, data map[string]any) error {
	email, _ := data["email"].(string)
	password, _ := data["password"].(string)
	delete(data, "password")
	email = strings.TrimSpace(email)
	if email == "" {
		return &core.APIError{Status: http.StatusBadRequest, Message: "email is required"}
	}

	var owner string
	err := tx.QueryRowContext(ctx, `SELECT user_id FROM credentials WHERE email = ?`, email).Scan(&owner)
	switch {
	case err == nil && owner != userID:
		return &core.APIError{Status: http.StatusBadRequest, Message: "Email already in use"}
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check email: %w", err)
	}

	var hash []byte
	err = tx.QueryRowContext(ctx, `SELECT password_hash FROM credentials WHERE user_id = ?`, userID).Scan(&hash)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("load credentials: %w", err)
	}
	if password != "" {
		if hash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost); err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM credentials WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO credentials (email, user_id, password_hash) VALUES (?, ?, ?)`,
		email, userID, hash)
	if err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}
	return nil
}
