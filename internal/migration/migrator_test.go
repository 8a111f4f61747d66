package migration

import (
	"io/fs"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/invoicedesk/db/migrations"
)

func TestGooseDialect(t *testing.T) {
	tests := map[string]string{
		"postgres": "postgres",
		"pg":       "postgres",
		"mysql":    "mysql",
		"sqlite":   "sqlite3",
	}
	for driver, want := range tests {
		got, err := gooseDialect(driver)
		require.NoError(t, err, driver)
		assert.Equal(t, want, got)
	}

	_, err := gooseDialect("oracle")
	assert.Error(t, err)
}

func TestEmbeddedMigrationsAreCollectable(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	goose.SetBaseFS(migrations.FS)
	t.Cleanup(func() { goose.SetBaseFS(nil) })

	all, err := goose.CollectMigrations(migrationsDir, 0, goose.MaxVersion)
	require.NoError(t, err)
	require.NotEmpty(t, all)
	assert.Equal(t, int64(1), all[0].Version)
}

func TestIsNoMigrationErr(t *testing.T) {
	assert.False(t, isNoMigrationErr(nil))
	assert.True(t, isNoMigrationErr(goose.ErrNoNextVersion))
	assert.True(t, isNoMigrationErr(goose.ErrNoMigrationFiles))
	assert.False(t, isNoMigrationErr(assert.AnError))
}
