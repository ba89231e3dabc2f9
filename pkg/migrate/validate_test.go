package migrate

import (
	"os"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"
)

const okBody = "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose StatementEnd\n-- +goose Down\nSELECT 1;\n"

func TestEmbeddedMigrationsValidate(t *testing.T) {
	require.NoError(t, ValidateFS(Embedded()))
}

func TestValidateFSRejects(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"bad name": {"001_users.sql": {Data: []byte(okBody)}},
		"duplicate version": {
			"20260101000000_a.sql": {Data: []byte(okBody)},
			"20260101000000_b.sql": {Data: []byte(okBody)},
		},
		"no down":    {"20260101000000_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")}},
		"unbalanced": {"20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n")}},
		"stray end":  {"20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose StatementEnd\n-- +goose Down\n")}},
		"empty":      {"README.md": {Data: []byte("notes")}},
	}
	for name, fsys := range cases {
		require.Error(t, ValidateFS(fsys), name)
	}
}

func TestCreateAtRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 5, 9, 30, 0, 0, time.FixedZone("IST", 19800))

	path, err := createAt(dir, "  Add -- Expiry Index ", now)
	require.NoError(t, err)
	require.Equal(t, "20260305040000_add_expiry_index.sql", path[len(dir)+1:])

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(body), "-- rollback add_expiry_index")

	_, err = createAt(dir, "add expiry index", now)
	require.Error(t, err)

	_, err = createAt(dir, "!!!", now)
	require.Error(t, err)
}

func TestSourcePrefersEmbedded(t *testing.T) {
	require.Equal(t, Embedded(), Source(DefaultDir))
	require.Equal(t, Embedded(), Source(""))
}
