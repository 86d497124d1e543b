package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	carbon "github.com/goliatone/go-carbon"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	DefaultSourceLabel = "go-carbon"
)

// RequiredTables must be created by the up migrations of every dialect.
var RequiredTables = []string{"carbon_events", "carbon_deposits"}

var migrationFilePattern = regexp.MustCompile(`^(\d+)_([a-z0-9_]+)\.(up|down)\.sql$`)

// Migration is one versioned schema step with both directions present.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

type FilesystemSpec struct {
	Dialect    string
	Path       string
	FS         fs.FS
	Migrations []Migration
}

// Versions lists the migration versions in apply order.
func (s FilesystemSpec) Versions() []int {
	out := make([]int, 0, len(s.Migrations))
	for _, migration := range s.Migrations {
		out = append(out, migration.Version)
	}
	return out
}

type Registration struct {
	SourceLabel string
	Dialects    []string
	Filesystems []FilesystemSpec
}

type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

func WithSourceLabel(label string) Option {
	return func(r *Registration) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			r.SourceLabel = trimmed
		}
	}
}

// WithDialects restricts registration to the named dialects.
func WithDialects(dialects ...string) Option {
	return func(r *Registration) {
		if next := normalizeDialects(dialects); len(next) > 0 {
			r.Dialects = next
		}
	}
}

// Filesystems resolves the postgres tree and its sqlite alternative and
// checks that both describe the same carbon schema.
func Filesystems(sources ...fs.FS) ([]FilesystemSpec, error) {
	root := carbon.GetCoreMigrationsFS()
	if len(sources) > 0 && sources[0] != nil {
		root = sources[0]
	}

	base, basePath, err := migrationsRoot(root)
	if err != nil {
		return nil, err
	}
	sqliteFS, err := fs.Sub(base, DialectSQLite)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite filesystem: %w", err)
	}

	filesystems := []FilesystemSpec{
		{Dialect: DialectPostgres, Path: basePath, FS: base},
		{Dialect: DialectSQLite, Path: pathJoin(basePath, DialectSQLite), FS: sqliteFS},
	}
	for i := range filesystems {
		loaded, err := loadMigrations(filesystems[i])
		if err != nil {
			return nil, err
		}
		filesystems[i].Migrations = loaded
	}

	if !slices.Equal(filesystems[0].Versions(), filesystems[1].Versions()) {
		return nil, fmt.Errorf("migrations: postgres versions %v differ from sqlite versions %v",
			filesystems[0].Versions(), filesystems[1].Versions())
	}
	return filesystems, nil
}

// Register hands every selected dialect filesystem to registerFn.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel: DefaultSourceLabel,
		Dialects:    []string{DialectPostgres, DialectSQLite},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}
	if registerFn == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}
	for _, dialect := range reg.Dialects {
		if dialect != DialectPostgres && dialect != DialectSQLite {
			return reg, fmt.Errorf("migrations: unsupported dialect %q", dialect)
		}
	}

	filesystems, err := Filesystems()
	if err != nil {
		return reg, err
	}
	reg.Filesystems = filesystems

	for _, fsys := range reg.Filesystems {
		if !slices.Contains(reg.Dialects, fsys.Dialect) {
			continue
		}
		if err := registerFn(ctx, fsys.Dialect, reg.SourceLabel, fsys.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s (%s): %w", fsys.Dialect, fsys.Path, err)
		}
	}
	return reg, nil
}

func loadMigrations(spec FilesystemSpec) ([]Migration, error) {
	entries, err := fs.ReadDir(spec.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("migrations: read %s %q: %w", spec.Dialect, spec.Path, err)
	}

	byVersion := map[int]*Migration{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		parts := migrationFilePattern.FindStringSubmatch(entry.Name())
		if parts == nil {
			continue
		}
		version, _ := strconv.Atoi(parts[1])
		migration, ok := byVersion[version]
		if !ok {
			migration = &Migration{Version: version, Name: parts[2]}
			byVersion[version] = migration
		}
		if migration.Name != parts[2] {
			return nil, fmt.Errorf("migrations: %s version %d has names %q and %q",
				spec.Dialect, version, migration.Name, parts[2])
		}
		content, err := fs.ReadFile(spec.FS, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("migrations: read %s: %w", entry.Name(), err)
		}
		if parts[3] == "up" {
			migration.Up = string(content)
		} else {
			migration.Down = string(content)
		}
	}
	if len(byVersion) == 0 {
		return nil, fmt.Errorf("migrations: %s filesystem %q has no *.up.sql files", spec.Dialect, spec.Path)
	}

	out := make([]Migration, 0, len(byVersion))
	for _, migration := range byVersion {
		if strings.TrimSpace(migration.Up) == "" || strings.TrimSpace(migration.Down) == "" {
			return nil, fmt.Errorf("migrations: %s %05d_%s needs non-empty up and down files",
				spec.Dialect, migration.Version, migration.Name)
		}
		out = append(out, *migration)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })

	for _, table := range RequiredTables {
		if !createsTable(out, table) {
			return nil, fmt.Errorf("migrations: %s migrations never create %s", spec.Dialect, table)
		}
	}
	return out, nil
}

func createsTable(migrations []Migration, table string) bool {
	for _, migration := range migrations {
		up := strings.ToLower(migration.Up)
		if strings.Contains(up, "create table "+table) || strings.Contains(up, "create table if not exists "+table) {
			return true
		}
	}
	return false
}

func migrationsRoot(root fs.FS) (fs.FS, string, error) {
	sub, err := fs.Sub(root, "data/sql/migrations")
	if err == nil {
		if _, statErr := fs.Stat(sub, "."); statErr == nil {
			return sub, "data/sql/migrations", nil
		}
	}
	if matches, globErr := fs.Glob(root, "*.up.sql"); globErr == nil && len(matches) > 0 {
		return root, ".", nil
	}
	return nil, "", fmt.Errorf("migrations: data/sql/migrations not found")
}

func normalizeDialects(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(strings.ToLower(value))
		if trimmed != "" && !slices.Contains(out, trimmed) {
			out = append(out, trimmed)
		}
	}
	return out
}

func pathJoin(base string, suffix string) string {
	if base == "." {
		return suffix
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(suffix, "/")
}
