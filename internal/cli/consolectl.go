package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"churchadmin/internal/backend"
	"churchadmin/internal/config"
	"churchadmin/internal/core"
	"churchadmin/internal/form"
	"churchadmin/internal/log"
	"churchadmin/internal/metrics"
	"churchadmin/internal/report"
	"churchadmin/internal/storage"
)

// NewRootCmd builds the consolectl command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "consolectl",
		Short:         "Church administration console maintenance tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newMigrateCmd(), newUserCmd(), newReportCmd())
	return cmd
}

// dbPath returns --db or SQLITE_DB_PATH.
func dbPath(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.SQLiteDBPath, nil
}

func newMigrateCmd() *cobra.Command {
	var db string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQLite schema",
	}
	cmd.PersistentFlags().StringVar(&db, "db", "", "SQLite database path (default SQLITE_DB_PATH)")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := dbPath(db)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("create db directory: %w", err)
			}
			if err := storage.RunMigrations(path); err != nil {
				return err
			}
			return printVersion(cmd, path)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := dbPath(db)
			if err != nil {
				return err
			}
			if err := storage.RollbackMigrations(path, steps); err != nil {
				return err
			}
			return printVersion(cmd, path)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to revert")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := dbPath(db)
			if err != nil {
				return err
			}
			return printVersion(cmd, path)
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

func printVersion(cmd *cobra.Command, path string) error {
	v, dirty, err := storage.MigrationVersion(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d", v)
	if dirty {
		fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage console accounts in the SQLite backend",
	}

	var (
		db, email, password           string
		firstNames, lastNames, gender string
		roles                         []string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a console account",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := form.SchemaFor(core.KindUser, form.PurposeRecord, form.Create)
			if err != nil {
				return err
			}
			values := url.Values{
				"firstNames":      {firstNames},
				"lastNames":       {lastNames},
				"gender":          {gender},
				"email":           {email},
				"password":        {password},
				"passwordConfirm": {password},
				"roles":           roles,
			}
			dto, errs := form.DefaultValidator().Validate(schema, values)
			if len(errs) > 0 {
				fields := make([]string, 0, len(errs))
				for name, msg := range errs {
					fields = append(fields, name+": "+msg)
				}
				slices.Sort(fields)
				return fmt.Errorf("invalid account: %s", strings.Join(fields, "; "))
			}
			payload, err := form.Payload(dto)
			if err != nil {
				return err
			}

			path, err := dbPath(db)
			if err != nil {
				return err
			}
			repo, err := storage.NewSQLiteRepository(path)
			if err != nil {
				return err
			}
			defer repo.Close()

			rec, err := repo.Create(cmd.Context(), core.KindUser, payload)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", rec.ID, email)
			return nil
		},
	}
	add.Flags().StringVar(&db, "db", "", "SQLite database path (default SQLITE_DB_PATH)")
	add.Flags().StringVar(&email, "email", "", "Login email (required)")
	add.Flags().StringVar(&password, "password", "", "Password, 8 to 64 characters (required)")
	add.Flags().StringVar(&firstNames, "first-names", "Console", "First names")
	add.Flags().StringVar(&lastNames, "last-names", "Administrator", "Last names")
	add.Flags().StringVar(&gender, "gender", string(core.GenderMale), "Gender code")
	add.Flags().StringSliceVar(&roles, "role", []string{string(core.UserRoleSuper)}, "Role codes")
	_ = add.MarkFlagRequired("email")
	_ = add.MarkFlagRequired("password")

	cmd.AddCommand(add)
	return cmd
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export entity reports",
	}

	var (
		kindName string
		out      string
		status   string
		term     string
	)
	xlsx := &cobra.Command{
		Use:   "xlsx",
		Short: "Write an XLSX report from the configured backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := core.ParseKind(kindName)
			if err != nil {
				return err
			}
			q := core.SearchQuery{Term: term}
			if status != "" {
				st := core.RecordStatus(status)
				if st.Label() == "" {
					return fmt.Errorf("unknown status %q", status)
				}
				q.Status = st
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			res, err := InitBackend(ctx, cfg, log.Discard())
			if err != nil {
				return err
			}
			if res.Cleanup != nil {
				defer res.Cleanup()
			}
			ctx, err = Authenticate(ctx, cfg, res.Backend)
			if err != nil {
				return err
			}

			sheet, err := report.Collect(ctx, res.Backend, kind, q, report.DefaultPageSize)
			if err != nil {
				metrics.RecordReportExport(string(kind), "xlsx", "error")
				return err
			}
			if out == "" {
				out = report.Filename(sheet)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := report.WriteSheetXLSX(f, sheet); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			metrics.RecordReportExport(string(kind), "xlsx", "success")
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d %s to %s\n", len(sheet.Rows), strings.ToLower(kind.Plural()), out)
			return nil
		},
	}
	xlsx.Flags().StringVar(&kindName, "kind", "", "Entity kind, e.g. zone or offering-income (required)")
	xlsx.Flags().StringVarP(&out, "out", "o", "", "Output file (default <kind>-<date>.xlsx)")
	xlsx.Flags().StringVar(&status, "status", "", "Only active or inactive records")
	xlsx.Flags().StringVar(&term, "term", "", "Search term")
	_ = xlsx.MarkFlagRequired("kind")

	cmd.AddCommand(xlsx)
	return cmd
}

// Authenticate logs in with the configured admin account when the backend
// needs a bearer token.
func Authenticate(ctx context.Context, cfg *config.Config, b backend.Backend) (context.Context, error) {
	if cfg.DataBackend != string(backend.APIBackend) {
		return ctx, nil
	}
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD are required to read from the api backend")
	}
	sess, err := b.Login(ctx, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return core.WithToken(ctx, sess.Token), nil
}
