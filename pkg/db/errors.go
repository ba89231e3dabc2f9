package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint failure from
// Postgres or SQLite. When constraintName is provided, the constraint (or, for
// SQLite, a column of it) must appear in the error.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return constraintName == "" || pgErr.ConstraintName == constraintName
	}

	msg := err.Error()
	unique := strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
	if !unique {
		return false
	}
	if constraintName == "" || strings.Contains(msg, constraintName) {
		return true
	}
	return sqliteColumnsMatch(msg, constraintName)
}

// sqliteColumnsMatch checks a "UNIQUE constraint failed: t.a, t.b" message
// against a "<table>_<a>_<b>_key" style constraint name.
func sqliteColumnsMatch(msg, constraintName string) bool {
	_, cols, ok := strings.Cut(msg, "UNIQUE constraint failed:")
	if !ok {
		return false
	}
	matched := false
	for _, qualified := range strings.Split(cols, ",") {
		table, column, ok := strings.Cut(strings.TrimSpace(qualified), ".")
		if !ok {
			return false
		}
		if !strings.HasPrefix(constraintName, table+"_") {
			return false
		}
		if !strings.Contains(strings.TrimPrefix(constraintName, table), strings.TrimSuffix(column, "_id")) {
			return false
		}
		matched = true
	}
	return matched
}

// IsNotFound hides the gorm sentinel from callers outside repositories.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}
