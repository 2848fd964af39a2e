package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"churchadmin/internal/core"
	"churchadmin/internal/report"
	"churchadmin/internal/storage"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "data", "console.db")

	out, err := run(t, "migrate", "up", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 1")

	out, err = run(t, "migrate", "version", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 1")

	out, err = run(t, "migrate", "down", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 0")

	_, err = run(t, "migrate", "down", "--db", db, "--steps", "0")
	assert.Error(t, err)
}

func TestUserAdd(t *testing.T) {
	db := filepath.Join(t.TempDir(), "console.db")

	out, err := run(t, "user", "add", "--db", db, "--email", "treasurer@example.org", "--password", "s3cret-pass", "--role", "treasurer-user")
	require.NoError(t, err)
	assert.Contains(t, out, "created user")

	repo, err := storage.NewSQLiteRepository(db)
	require.NoError(t, err)
	defer repo.Close()
	sess, err := repo.Login(context.Background(), "treasurer@example.org", "s3cret-pass")
	require.NoError(t, err)
	assert.True(t, sess.HasRole(core.UserRoleTreasurer))
}

func TestUserAdd_Invalid(t *testing.T) {
	db := filepath.Join(t.TempDir(), "console.db")

	_, err := run(t, "user", "add", "--db", db, "--email", "not-an-email", "--password", "short")
	require.Error(t, err)
	assert.ErrorContains(t, err, "email")
	assert.ErrorContains(t, err, "password")

	_, err = run(t, "user", "add", "--db", db, "--password", "s3cret-pass")
	assert.ErrorContains(t, err, "required flag", "email is required")
}

func TestReportXLSX(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "console.db")
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", db)
	t.Setenv("ADMIN_PASSWORD", "")

	repo, err := storage.NewSQLiteRepository(db)
	require.NoError(t, err)
	ctx := context.Background()
	sup, err := repo.Create(ctx, core.KindSupervisor, map[string]any{"firstNames": "Rosa", "lastNames": "Quispe"})
	require.NoError(t, err)
	for _, name := range []string{"Norte", "Sur"} {
		_, err := repo.Create(ctx, core.KindZone, map[string]any{"zoneName": name, "theirSupervisor": sup.ID})
		require.NoError(t, err)
	}
	require.NoError(t, repo.Close())

	path := filepath.Join(dir, "zones.xlsx")
	out, err := run(t, "report", "xlsx", "--kind", "zone", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 2")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(report.TabName(core.KindZone.Plural()))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Contains(t, rows[1], "Rosa Quispe", "supervisor IDs resolve to names")
}

func TestReportXLSX_UnknownKind(t *testing.T) {
	_, err := run(t, "report", "xlsx", "--kind", "expense")
	assert.ErrorContains(t, err, "unknown entity kind")
}
