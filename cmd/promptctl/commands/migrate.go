package commands

import (
	"fmt"
	"strconv"

	"promptmart/internal/database"

	"github.com/spf13/cobra"
)

type schemaStatusView struct {
	Mode      string      `json:"mode" yaml:"mode"`
	Env       string      `json:"env" yaml:"env"`
	RunSQL    bool        `json:"run_sql" yaml:"run_sql"`
	RunAuto   bool        `json:"run_auto" yaml:"run_auto"`
	Applied   []int       `json:"applied" yaml:"applied"`
	Pending   []string    `json:"pending" yaml:"pending"`
	Tables    []tableView `json:"tables" yaml:"tables"`
	Missing   []string    `json:"missing_tables,omitempty" yaml:"missing_tables,omitempty"`
	Completed bool        `json:"up_to_date" yaml:"up_to_date"`
}

type tableView struct {
	Name    string `json:"name" yaml:"name"`
	Present bool   `json:"present" yaml:"present"`
	Rows    int64  `json:"rows" yaml:"rows"`
}

type migrateResult struct {
	Action  string `json:"action" yaml:"action"`
	Version int    `json:"version,omitempty" yaml:"version,omitempty"`
}

func newMigrateCmd(open Opener, out func(*cobra.Command) printer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, inspect or roll back the schema",
		Long: `Manage the ledger schema.

Subcommands:
  up      - Apply pending SQL migrations
  auto    - Run GORM AutoMigrate for every persistent model
  status  - Show applied and pending migrations and each ledger table
  down    - Roll back one migration version (--force to drop tables with rows)`,
	}

	run := func(action string, fn func(cmd *cobra.Command, rt *Runtime) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			rt, err := open(cmd.Context(), RuntimeOptions{SkipSchema: true, SkipRedis: true})
			if err != nil {
				return err
			}
			defer rt.Close()
			if err := fn(cmd, rt); err != nil {
				return fmt.Errorf("%s failed: %w", action, err)
			}
			return nil
		}
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending SQL migrations",
		Args:  cobra.NoArgs,
		RunE: run("sql migrations", func(cmd *cobra.Command, rt *Runtime) error {
			if err := database.RunMigrations(cmd.Context(), rt.DB); err != nil {
				return err
			}
			return out(cmd).print(migrateResult{Action: "up"})
		}),
	}

	auto := &cobra.Command{
		Use:   "auto",
		Short: "Run GORM AutoMigrate",
		Args:  cobra.NoArgs,
		RunE: run("auto schema apply", func(cmd *cobra.Command, rt *Runtime) error {
			rt.Config.DBSchemaMode = database.SchemaModeAuto
			if err := database.ApplySchema(cmd.Context(), rt.DB, rt.Config); err != nil {
				return err
			}
			return out(cmd).print(migrateResult{Action: "auto"})
		}),
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations and ledger tables",
		Args:  cobra.NoArgs,
		RunE: run("schema status", func(cmd *cobra.Command, rt *Runtime) error {
			st, err := database.GetSchemaStatus(cmd.Context(), rt.DB, rt.Config)
			if err != nil {
				return err
			}
			view := schemaStatusView{
				Mode:    st.Mode,
				Env:     st.Environment,
				RunSQL:  st.WillRunSQL,
				RunAuto: st.WillRunAutoMigrate,
				Applied: st.AppliedVersions,
				Pending: []string{},
				Tables:  make([]tableView, 0, len(st.LedgerTables)),
				Missing: st.MissingTables(),
			}
			for i := range st.PendingMigrations {
				view.Pending = append(view.Pending, st.PendingMigrations[i].String())
			}
			for _, t := range st.LedgerTables {
				view.Tables = append(view.Tables, tableView{Name: t.Name, Present: t.Present, Rows: t.Rows})
			}
			view.Completed = st.Ready()
			return out(cmd).print(view)
		}),
	}

	var force bool
	down := &cobra.Command{
		Use:   "down <version>",
		Short: "Roll back one migration version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			return run("rollback", func(cmd *cobra.Command, rt *Runtime) error {
				if err := database.RollbackMigration(cmd.Context(), rt.DB, version, force); err != nil {
					return err
				}
				return out(cmd).print(migrateResult{Action: "down", Version: version})
			})(cmd, args)
		},
	}

	down.Flags().BoolVar(&force, "force", false, "drop tables even when they still hold rows")

	cmd.AddCommand(up, auto, status, down)
	return cmd
}
