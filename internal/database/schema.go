package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"promptmart/internal/config"
	"promptmart/internal/middleware"

	"gorm.io/gorm"
)

const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus describes what ApplySchema would do for the current config.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
	LedgerTables       []TableStatus
}

// TableStatus is one ledger table as the database currently sees it. Rows
// includes soft-deleted and tombstoned rows.
type TableStatus struct {
	Name    string
	Present bool
	Rows    int64
}

// Ready reports whether nothing is pending and every ledger table exists.
func (s *SchemaStatus) Ready() bool {
	return len(s.PendingMigrations) == 0 && len(s.MissingTables()) == 0
}

// MissingTables names the ledger tables that do not exist yet.
func (s *SchemaStatus) MissingTables() []string {
	var missing []string
	for _, t := range s.LedgerTables {
		if !t.Present {
			missing = append(missing, t.Name)
		}
	}
	return missing
}

func isProdLikeEnv(env string) bool {
	e := strings.ToLower(strings.TrimSpace(env))
	return e == "production" || e == "prod" || e == "staging" || e == "stage"
}

func normalizedSchemaMode(cfg *config.Config) string {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		return SchemaModeHybrid
	}
	return mode
}

// schemaPolicy: sql runs embedded migrations only, auto runs AutoMigrate only
// (never in prod-like envs), hybrid runs migrations and adds AutoMigrate outside prod.
func schemaPolicy(cfg *config.Config) (runSQL bool, runAuto bool, err error) {
	mode := normalizedSchemaMode(cfg)
	prodLike := isProdLikeEnv(cfg.Env)

	switch mode {
	case SchemaModeSQL:
		return true, false, nil
	case SchemaModeAuto:
		if prodLike {
			return false, false, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q", cfg.Env)
		}
		return false, true, nil
	case SchemaModeHybrid:
		return true, !prodLike, nil
	default:
		return false, false, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
}

// AutoMigrate creates or updates every persistent table from the GORM models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema brings the database schema up to date according to DB_SCHEMA_MODE.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return err
	}

	if runSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}

	if runAuto {
		middleware.Logger.Info("Running GORM AutoMigrate", slog.String("mode", normalizedSchemaMode(cfg)), slog.String("env", cfg.Env))
		if err := AutoMigrate(db.WithContext(ctx)); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	return nil
}

// GetSchemaStatus reports applied and pending migrations and the state of
// each ledger table without changing anything.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return nil, err
	}

	tables, err := ledgerTableStatus(ctx, db)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{
		Mode:               normalizedSchemaMode(cfg),
		Environment:        cfg.Env,
		WillRunSQL:         runSQL,
		WillRunAutoMigrate: runAuto,
		LedgerTables:       tables,
	}
	if !runSQL {
		return status, nil
	}

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	status.AppliedVersions = applied

	appliedSet := make(map[int]bool, len(applied))
	for _, version := range applied {
		appliedSet[version] = true
	}
	for _, m := range GetMigrations() {
		if !appliedSet[m.Version] {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}

	return status, nil
}

func ledgerTableStatus(ctx context.Context, db *gorm.DB) ([]TableStatus, error) {
	names, err := LedgerTableNames(db)
	if err != nil {
		return nil, err
	}
	migrator := db.WithContext(ctx).Migrator()
	out := make([]TableStatus, 0, len(names))
	for _, name := range names {
		st := TableStatus{Name: name, Present: migrator.HasTable(name)}
		if st.Present {
			if err := db.WithContext(ctx).Table(name).Count(&st.Rows).Error; err != nil {
				return nil, fmt.Errorf("count %s: %w", name, err)
			}
		}
		out = append(out, st)
	}
	return out, nil
}
