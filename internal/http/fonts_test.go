package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fontpeek/fontpeek/internal/dafont"
	"github.com/fontpeek/fontpeek/internal/database"
	"github.com/fontpeek/fontpeek/internal/database/fonts"
	"github.com/fontpeek/fontpeek/internal/entities"
	"github.com/fontpeek/fontpeek/internal/tasks"
)

func setupFontsTest(t *testing.T, baseURL string) (*fonts.Repository, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "catalog.db"), baseURL)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := fonts.NewRepository(db.DB)
	client := dafont.NewClient(dafont.Options{
		BaseURL:     baseURL,
		DownloadURL: "https://dl.dafont.com/dl/",
	})

	executor := tasks.NewExecutor(1)
	t.Cleanup(executor.Shutdown)

	controller := NewFontsController(repo, client, executor)
	router := gin.New()
	router.GET("/api/fonts", controller.SearchFonts)
	router.GET("/api/fonts/:slug", controller.GetFont)
	router.GET("/api/fonts/:slug/details", controller.GetFontDetails)
	router.POST("/api/fonts/resolve", controller.ResolveLink)

	return repo, router
}

func seedFonts(t *testing.T, repo *fonts.Repository, names ...string) {
	t.Helper()
	var batch []entities.Font
	for _, name := range names {
		slug := entities.NormalizeSlug(strings.ReplaceAll(name, " ", "_"))
		batch = append(batch, entities.Font{
			Slug:        slug,
			Name:        name,
			CategoryKey: "basica",
			PageURL:     "https://www.dafont.com/pt/" + slug + ".font",
			DownloadURL: "https://dl.dafont.com/dl/?f=" + slug,
		})
	}
	_, err := repo.UpsertFonts(batch)
	require.NoError(t, err)
}

func TestSearchFonts(t *testing.T) {
	t.Run("returns empty list on empty catalog", func(t *testing.T) {
		_, router := setupFontsTest(t, "https://www.dafont.com")

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/fonts", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, float64(0), response["total"])
		assert.Empty(t, response["fonts"])
	})

	t.Run("filters by letter bucket", func(t *testing.T) {
		repo, router := setupFontsTest(t, "https://www.dafont.com")
		seedFonts(t, repo, "3D Font", "Abstract", "123 Sans")

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/fonts?letter=%23", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Fonts []entities.Font `json:"fonts"`
			Total int64           `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Equal(t, int64(2), response.Total)

		var names []string
		for _, f := range response.Fonts {
			names = append(names, f.Name)
		}
		assert.ElementsMatch(t, []string{"3D Font", "123 Sans"}, names)
	})

	t.Run("paginates results", func(t *testing.T) {
		repo, router := setupFontsTest(t, "https://www.dafont.com")
		seedFonts(t, repo, "Alpha", "Beta", "Gamma")

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/fonts?limit=2&offset=2", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Fonts []entities.Font `json:"fonts"`
			Total int64           `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, int64(3), response.Total)
		require.Len(t, response.Fonts, 1)
		assert.Equal(t, "Gamma", response.Fonts[0].Name)
	})
}

func TestGetFont(t *testing.T) {
	repo, router := setupFontsTest(t, "https://www.dafont.com")
	seedFonts(t, repo, "My Font")

	t.Run("returns entry", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/fonts/my_font", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var font entities.Font
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &font))
		assert.Equal(t, "My Font", font.Name)
	})

	t.Run("404 when absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/fonts/no-such-font", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestGetFontDetails(t *testing.T) {
	detailHTML := `<html><body>
		<h1>My Font</h1>
		<div class="preview" style="background-image:url(/img/preview/abc/myfont1.png)"></div>
		<div class="preview" style="background-image:url(/img/preview/abc/myfont2.png)"></div>
	</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".font") {
			w.Write([]byte(detailHTML))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	repo, router := setupFontsTest(t, server.URL)

	// Seed with a page URL pointing at the test server.
	_, err := repo.UpsertFonts([]entities.Font{{
		Slug:        "my_font",
		Name:        "My Font",
		CategoryKey: "basica",
		PageURL:     server.URL + "/pt/my_font.font",
		DownloadURL: "https://dl.dafont.com/dl/?f=my_font",
	}})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/fonts/my_font/details", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Slug          string   `json:"slug"`
		Name          string   `json:"name"`
		PreviewTokens []string `json:"preview_tokens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "My Font", response.Name)
	assert.Equal(t, []string{"myfont1", "myfont2"}, response.PreviewTokens)

	// The first discovered token is stored on the entry.
	font, err := repo.GetFont("my_font")
	require.NoError(t, err)
	assert.Equal(t, "myfont1", font.PreviewToken)
}

func TestResolveLink(t *testing.T) {
	_, router := setupFontsTest(t, "https://www.dafont.com")

	t.Run("resolves a page link", func(t *testing.T) {
		body := `{"link": "https://www.dafont.com/pt/my-font.font"}`
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/fonts/resolve", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var ref dafont.FontRef
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ref))
		assert.Equal(t, "my-font", ref.Slug)
		assert.NotEmpty(t, ref.DownloadURL)
	})

	t.Run("rejects an unrecognized link", func(t *testing.T) {
		body := `{"link": "https://example.com/whatever"}`
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/fonts/resolve", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects a missing link field", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/fonts/resolve", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
