package migration

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const (
	upSuffix     = ".up.sql"
	downSuffix   = ".down.sql"
	versionWidth = 6
)

const migrationUpTemplate = `-- {{.Name}}
-- Created: {{.Timestamp}}
{{- if .Description}}
-- {{.Description}}
{{- end}}

`

const migrationDownTemplate = `-- Rollback for {{.Name}}

`

// MigrationFile represents a migration file pair
type MigrationFile struct {
	Version     uint
	Name        string
	Description string
	Timestamp   string
	UpPath      string
	DownPath    string
}

// CreateMigration writes an empty up/down pair numbered one past the highest
// existing version in migrationsDir.
func CreateMigration(migrationsDir, name, description string, now time.Time) (*MigrationFile, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(migrationsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	existing, err := ListMigrations(migrationsDir)
	if err != nil {
		return nil, err
	}
	next := uint(1)
	if len(existing) > 0 {
		last, _ := migrationVersion(existing[len(existing)-1])
		next = last + 1
	}

	base := fmt.Sprintf("%0*d_%s", versionWidth, next, slug)
	mf := &MigrationFile{
		Version:     next,
		Name:        slug,
		Description: description,
		Timestamp:   now.UTC().Format(time.RFC3339),
		UpPath:      filepath.Join(migrationsDir, base+upSuffix),
		DownPath:    filepath.Join(migrationsDir, base+downSuffix),
	}

	if err := writeMigrationFile(mf.UpPath, migrationUpTemplate, mf); err != nil {
		return nil, fmt.Errorf("failed to create up migration: %w", err)
	}
	if err := writeMigrationFile(mf.DownPath, migrationDownTemplate, mf); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, fmt.Errorf("failed to create down migration: %w", err)
	}
	return mf, nil
}

func writeMigrationFile(path, tmplContent string, data *MigrationFile) error {
	tmpl, err := template.New("migration").Parse(tmplContent)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer f.Close()

	return tmpl.Execute(f, data)
}

// sanitizeName lowercases name and collapses separators into single underscores.
func sanitizeName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			pendingSep = true
		}
	}
	return b.String()
}

// ListMigrations returns the base names of the migrations in a directory, oldest first.
// A missing directory has no migrations.
func ListMigrations(migrationsDir string) ([]string, error) {
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		return []string{}, nil
	}
	return ListMigrationsFS(os.DirFS(migrationsDir))
}

// ListMigrationsFS returns the base names of the migrations in fsys, oldest first.
func ListMigrationsFS(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	migrations := make([]string, 0, len(entries)/2)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), upSuffix) {
			continue
		}
		base := strings.TrimSuffix(entry.Name(), upSuffix)
		if _, ok := migrationVersion(base); ok {
			migrations = append(migrations, base)
		}
	}
	sort.Slice(migrations, func(i, j int) bool {
		vi, _ := migrationVersion(migrations[i])
		vj, _ := migrationVersion(migrations[j])
		return vi < vj
	})
	return migrations, nil
}

// PendingMigrations returns the migrations numbered above the applied version.
func PendingMigrations(available []string, applied uint) []string {
	pending := make([]string, 0)
	for _, name := range available {
		if v, ok := migrationVersion(name); ok && v > applied {
			pending = append(pending, name)
		}
	}
	return pending
}

func migrationVersion(base string) (uint, bool) {
	prefix, _, found := strings.Cut(base, "_")
	if !found {
		prefix = base
	}
	v, err := strconv.ParseUint(prefix, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(v), true
}
