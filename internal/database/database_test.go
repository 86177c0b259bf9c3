package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *Database {
	dbPath := filepath.Join(t.TempDir(), "catalog.db")

	db, err := NewDatabase(dbPath, "https://www.dafont.com")
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDatabase_SeedsCategories(t *testing.T) {
	db := newTestDatabase(t)

	categories, err := db.GetAllCategories()
	require.NoError(t, err)
	require.Len(t, categories, 8)

	assert.Equal(t, "fantasia", categories[0].Key)
	assert.Equal(t, 1, categories[0].ThemeID)
	assert.Equal(t, "https://www.dafont.com/pt/mtheme.php?id=1", categories[0].ListingURL)
}

func TestNewDatabase_SeedIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalog.db")

	db, err := NewDatabase(dbPath, "https://www.dafont.com")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = NewDatabase(dbPath, "https://www.dafont.com")
	require.NoError(t, err)
	defer db.Close()

	categories, err := db.GetAllCategories()
	require.NoError(t, err)
	assert.Len(t, categories, 8)
}

func TestGetCategoryByKey(t *testing.T) {
	db := newTestDatabase(t)

	category, err := db.GetCategoryByKey("basica")
	require.NoError(t, err)
	assert.Equal(t, "Básica", category.DisplayName)
	assert.Equal(t, 5, category.ThemeID)

	_, err = db.GetCategoryByKey("nonexistent")
	assert.Error(t, err)
}
