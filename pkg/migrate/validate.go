package migrate

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
)

var migrationName = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks the migrations in dir; see ValidateFS.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("migrate: dir is required")
	}
	return ValidateFS(os.DirFS(dir))
}

// ValidateFS enforces the naming scheme, unique versions, both goose
// sections, and balanced StatementBegin/StatementEnd markers.
func ValidateFS(migrations fs.FS) error {
	entries, err := fs.ReadDir(migrations, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	byVersion := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		match := migrationName.FindStringSubmatch(name)
		if match == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, dup := byVersion[match[1]]; dup {
			return fmt.Errorf("duplicate migration version %s in %q and %q", match[1], prev, name)
		}
		byVersion[match[1]] = name

		if err := checkAnnotations(migrations, name); err != nil {
			return err
		}
	}
	if len(byVersion) == 0 {
		return fmt.Errorf("no migrations found")
	}
	return nil
}

func checkAnnotations(migrations fs.FS, name string) error {
	f, err := migrations.Open(name)
	if err != nil {
		return fmt.Errorf("open %q: %w", name, err)
	}
	defer f.Close()

	var up, down bool
	open := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "-- +goose Up":
			up = true
		case "-- +goose Down":
			down = true
		case "-- +goose StatementBegin":
			open++
		case "-- +goose StatementEnd":
			open--
			if open < 0 {
				return fmt.Errorf("migration %q: StatementEnd without StatementBegin", name)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %q: %w", name, err)
	}
	switch {
	case !up:
		return fmt.Errorf("migration %q missing \"-- +goose Up\"", name)
	case !down:
		return fmt.Errorf("migration %q missing \"-- +goose Down\"", name)
	case open != 0:
		return fmt.Errorf("migration %q has an unterminated StatementBegin", name)
	}
	return nil
}
