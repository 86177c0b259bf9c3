package legacy

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fontpeek/fontpeek/internal/entities"
)

type fakeWriter struct {
	fonts []entities.Font
}

func (w *fakeWriter) UpsertFonts(fonts []entities.Font) (int, error) {
	w.fonts = append(w.fonts, fonts...)
	return len(fonts), nil
}

func createLegacyDB(t *testing.T, rows [][3]string) string {
	path := filepath.Join(t.TempDir(), "fontes.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("CREATE TABLE fontes (nome TEXT, link TEXT, link_download TEXT)")
	require.NoError(t, err)

	for _, r := range rows {
		_, err = db.Exec("INSERT INTO fontes VALUES (?, ?, ?)", r[0], r[1], r[2])
		require.NoError(t, err)
	}
	return path
}

func TestImporter_MapsLegacyRows(t *testing.T) {
	path := createLegacyDB(t, [][3]string{
		{"sakuna", "https://www.dafont.com/pt/sakuna.font", "https://dl.dafont.com/dl/?f=sakuna"},
		{"Academy FB", "https://www.dafont.com/pt/academy-fb.font?back=theme", "https://dl.dafont.com/dl/?f=academy_fb"},
	})

	writer := &fakeWriter{}
	imp := NewImporter(writer, "basica")

	result, err := imp.Run(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowsRead)
	assert.Equal(t, 2, result.Upserted)
	assert.Equal(t, 0, result.Skipped)

	require.Len(t, writer.fonts, 2)
	assert.Equal(t, "sakuna", writer.fonts[0].Slug)
	assert.Equal(t, "basica", writer.fonts[0].CategoryKey)
	assert.Equal(t, "academy-fb", writer.fonts[1].Slug)
	assert.Equal(t, "Academy FB", writer.fonts[1].Name)
}

func TestImporter_SkipsUnusableAndDuplicateRows(t *testing.T) {
	path := createLegacyDB(t, [][3]string{
		{"sakuna", "https://www.dafont.com/pt/sakuna.font", "https://dl.dafont.com/dl/?f=sakuna"},
		{"sakuna again", "https://www.dafont.com/pt/sakuna.font", "https://dl.dafont.com/dl/?f=sakuna"},
		{"!!!", "https://www.dafont.com/???", ""},
	})

	writer := &fakeWriter{}
	imp := NewImporter(writer, "basica")

	result, err := imp.Run(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.RowsRead)
	assert.Equal(t, 1, result.Upserted)
	assert.Equal(t, 2, result.Skipped)
}

func TestImporter_FallsBackToNameSlug(t *testing.T) {
	path := createLegacyDB(t, [][3]string{
		{"Plain Name", "", ""},
	})

	writer := &fakeWriter{}
	imp := NewImporter(writer, "basica")

	result, err := imp.Run(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Upserted)
	assert.Equal(t, "plainname", writer.fonts[0].Slug)
}

func TestSlugFromLink(t *testing.T) {
	assert.Equal(t, "sakuna", slugFromLink("https://www.dafont.com/pt/sakuna.font"))
	assert.Equal(t, "my-font", slugFromLink("https://www.dafont.com/pt/My-Font.font?back=1"))
	assert.Equal(t, "trailing", slugFromLink("https://example.com/trailing/"))
	assert.Equal(t, "", slugFromLink(""))
}
