package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probe struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "probe.db")

	database, err := Open(Options{Driver: "sqlite", DSN: path, Environment: "test"})
	require.NoError(t, err)
	defer Close(database)

	require.NoError(t, AutoMigrate(database, &probe{}))
	require.NoError(t, database.Create(&probe{Name: "ok"}).Error)

	var got probe
	require.NoError(t, database.First(&got).Error)
	assert.Equal(t, "ok", got.Name)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(Options{Driver: "oracle"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestAutoMigrateNilDB(t *testing.T) {
	assert.Error(t, AutoMigrate(nil, &probe{}))
	assert.NoError(t, Close(nil))
}
