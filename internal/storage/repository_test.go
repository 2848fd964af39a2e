package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churchadmin/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "console.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	repo.SetClock(func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	})
	return repo
}

func TestRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	r, err := repo.Create(ctx, core.KindZone, map[string]any{"zoneName": "Norte", "theirSupervisor": "s-1"})
	require.NoError(t, err)
	assert.Equal(t, core.StatusActive, r.Status)

	got, err := repo.Get(ctx, core.KindZone, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Norte", got.Field("zoneName"))
	assert.True(t, got.CreatedAt.Equal(r.CreatedAt))

	upd, err := repo.Update(ctx, core.KindZone, r.ID, map[string]any{"zoneName": "Norte 2", "recordStatus": "inactive"})
	require.NoError(t, err)
	assert.Equal(t, "Norte 2", upd.Field("zoneName"))
	assert.Equal(t, "s-1", upd.Field("theirSupervisor"))
	assert.Equal(t, core.StatusInactive, upd.Status)
	assert.NotContains(t, upd.Data, "recordStatus")

	_, err = repo.Get(ctx, core.KindZone, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = repo.Get(ctx, core.KindChurch, r.ID)
	assert.ErrorIs(t, err, core.ErrNotFound, "kind is part of the key")
}

func TestRepositoryUpdateClearsNullFields(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	r, err := repo.Create(ctx, core.KindSupervisor, map[string]any{
		"firstNames": "Juan", "isDirectRelationToPastor": true, "theirPastor": "p-1",
	})
	require.NoError(t, err)

	upd, err := repo.Update(ctx, core.KindSupervisor, r.ID, map[string]any{
		"isDirectRelationToPastor": false, "theirPastor": nil, "theirCopastor": "cp-1",
	})
	require.NoError(t, err)
	assert.NotContains(t, upd.Data, "theirPastor")
	assert.Equal(t, "cp-1", upd.Field("theirCopastor"))
	assert.Equal(t, "Juan", upd.Field("firstNames"))

	got, err := repo.Get(ctx, core.KindSupervisor, r.ID)
	require.NoError(t, err)
	assert.NotContains(t, got.Data, "theirPastor")
}

func TestRepositorySearch(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	for _, p := range []struct{ first, last, zone string }{
		{"Juan", "Perez", "z-1"},
		{"Maria", "Lopez", "z-1"},
		{"Pedro", "Perez", "z-2"},
	} {
		_, err := repo.Create(ctx, core.KindPreacher, map[string]any{"firstNames": p.first, "lastNames": p.last, "theirZone": p.zone})
		require.NoError(t, err)
	}

	byZone, err := repo.Search(ctx, core.KindPreacher, core.SearchQuery{Filters: map[string]string{"theirZone": "z-1"}})
	require.NoError(t, err)
	require.Len(t, byZone, 2)
	assert.Equal(t, "Maria", byZone[0].Field("firstNames"), "newest first")

	byTerm, err := repo.Search(ctx, core.KindPreacher, core.SearchQuery{Term: "perez"})
	require.NoError(t, err)
	assert.Len(t, byTerm, 2)

	page, err := repo.Search(ctx, core.KindPreacher, core.SearchQuery{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Maria", page[0].Field("firstNames"))

	termPage, err := repo.Search(ctx, core.KindPreacher, core.SearchQuery{Term: "perez", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, termPage, 1)
	assert.Equal(t, "Juan", termPage[0].Field("firstNames"))

	_, err = repo.Search(ctx, core.KindPreacher, core.SearchQuery{Filters: map[string]string{"x') OR 1=1 --": "a"}})
	assert.Error(t, err)
}

func TestRepositoryInactivate(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	r, err := repo.Create(ctx, core.KindChurch, map[string]any{"abbreviatedChurchName": "Central"})
	require.NoError(t, err)

	reason := map[string]any{"inactivationCategory": "administrative", "inactivationReason": "merged"}
	require.NoError(t, repo.Inactivate(ctx, core.KindChurch, r.ID, reason))

	got, err := repo.Get(ctx, core.KindChurch, r.ID)
	require.NoError(t, err)
	assert.False(t, got.Active())
	require.NotNil(t, got.InactivatedAt)
	assert.Equal(t, "merged", got.Field("inactivationReason"))

	active, err := repo.Search(ctx, core.KindChurch, core.SearchQuery{Status: core.StatusActive})
	require.NoError(t, err)
	assert.Empty(t, active)

	err = repo.Inactivate(ctx, core.KindChurch, r.ID, reason)
	var apiErr *core.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)
}

func TestRepositoryLogin(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.EnsureAdmin(ctx, "admin@example.com", "s3cret!"))
	require.NoError(t, repo.EnsureAdmin(ctx, "admin@example.com", "other"), "second call is a no-op")

	sess, err := repo.Login(ctx, "Admin@Example.com", "s3cret!")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.True(t, sess.HasRole(core.UserRoleSuper))
	assert.Equal(t, "Console Administrator", sess.Name)

	_, err = repo.Login(ctx, "admin@example.com", "other")
	assert.True(t, core.IsUnauthorized(err))

	users, err := repo.Search(ctx, core.KindUser, core.SearchQuery{})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.NotContains(t, users[0].Data, "password")

	_, err = repo.Update(ctx, core.KindUser, users[0].ID, map[string]any{"email": "root@example.com"})
	require.NoError(t, err)
	_, err = repo.Login(ctx, "admin@example.com", "s3cret!")
	assert.True(t, core.IsUnauthorized(err))
	_, err = repo.Login(ctx, "root@example.com", "s3cret!")
	assert.NoError(t, err, "password survives an email change")

	_, err = repo.Create(ctx, core.KindUser, map[string]any{"email": "root@example.com", "password": "x"})
	var apiErr *core.APIError
	assert.ErrorAs(t, err, &apiErr)
}

func TestRepositoryFiles(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	urls, err := repo.Upload(ctx, core.KindOfferingIncome, []core.File{
		{Name: "a.png", ContentType: "image/png", Data: []byte{1, 2, 3}},
		{Name: "b.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
	})
	require.NoError(t, err)
	require.Len(t, urls, 2)

	f, err := repo.File(ctx, urls[0])
	require.NoError(t, err)
	assert.Equal(t, "a.png", f.Name)
	assert.Equal(t, []byte{1, 2, 3}, f.Data)

	require.NoError(t, repo.Delete(ctx, urls[0]))
	assert.ErrorIs(t, repo.Delete(ctx, urls[0]), core.ErrNotFound)
	_, err = repo.File(ctx, urls[0])
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMigrationVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	v, _, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(0), v)

	require.NoError(t, RunMigrations(path))
	v, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)

	require.NoError(t, RollbackMigrations(path, 1))
	v, _, err = MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(0), v)
}
