package database

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"promptmart/internal/middleware"
)

// Migration is one versioned pair of up/down SQL scripts.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

//go:embed migrations/*.sql
var migrationFS embed.FS

var migrations []Migration

var (
	createTableRe = regexp.MustCompile(`(?i)CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?"?(\w+)"?`)
	dropTableRe   = regexp.MustCompile(`(?i)DROP\s+TABLE\s+(?:IF\s+EXISTS\s+)?"?(\w+)"?`)
)

func init() {
	if err := RegisterMigrations(migrationFS); err != nil {
		panic(fmt.Sprintf("register embedded migrations: %v", err))
	}
}

// RegisterMigrations replaces the registered set with the
// NNNNNN_name.up.sql / .down.sql pairs under migrations/ in fsys.
func RegisterMigrations(fsys fs.FS) error {
	loaded, err := loadMigrations(fsys)
	if err != nil {
		return err
	}
	migrations = loaded
	return nil
}

func loadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var out []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}

		base := strings.TrimSuffix(name, ".up.sql")
		versionPart, label, ok := strings.Cut(base, "_")
		if !ok {
			middleware.Logger.Warn("Skipping migration with invalid naming", slog.String("file", name))
			continue
		}
		version, err := strconv.Atoi(versionPart)
		if err != nil {
			return nil, fmt.Errorf("invalid migration version in %s: %w", name, err)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migration version %06d used by both %s and %s", version, prev, base)
		}
		seen[version] = base

		up, err := fs.ReadFile(fsys, path.Join("migrations", name))
		if err != nil {
			return nil, fmt.Errorf("read up migration %s: %w", name, err)
		}
		down, err := fs.ReadFile(fsys, path.Join("migrations", base+".down.sql"))
		if err != nil {
			return nil, fmt.Errorf("migration %s has no down script: %w", base, err)
		}

		out = append(out, Migration{
			Version:    version,
			Name:       label,
			UpScript:   string(up),
			DownScript: string(down),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// GetMigrations returns registered migrations in version order.
func GetMigrations() []Migration {
	return migrations
}

func GetMigrationByVersion(version int) *Migration {
	for i := range migrations {
		if migrations[i].Version == version {
			m := migrations[i]
			return &m
		}
	}
	return nil
}

// CreatesTables lists the tables the up script creates.
func (m *Migration) CreatesTables() []string {
	return tableNames(createTableRe, m.UpScript)
}

// DropsTables lists the tables the down script drops.
func (m *Migration) DropsTables() []string {
	return tableNames(dropTableRe, m.DownScript)
}

func tableNames(re *regexp.Regexp, script string) []string {
	var names []string
	for _, match := range re.FindAllStringSubmatch(script, -1) {
		names = append(names, strings.ToLower(match[1]))
	}
	return names
}

// UncoveredTables returns the tables in want that no registered up script
// creates.
func UncoveredTables(registered []Migration, want []string) []string {
	created := make(map[string]struct{})
	for i := range registered {
		for _, name := range registered[i].CreatesTables() {
			created[name] = struct{}{}
		}
	}
	var missing []string
	for _, name := range want {
		if _, ok := created[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func (m *Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}
