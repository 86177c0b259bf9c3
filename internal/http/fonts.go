package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fontpeek/fontpeek/internal/dafont"
	"github.com/fontpeek/fontpeek/internal/tasks"
)

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 200
)

type FontsController struct {
	fonts    FontReader
	remote   RemoteClient
	executor *tasks.Executor
}

func NewFontsController(fonts FontReader, remote RemoteClient, executor *tasks.Executor) *FontsController {
	return &FontsController{
		fonts:    fonts,
		remote:   remote,
		executor: executor,
	}
}

// SearchFonts lists catalog entries matching the query filters.
// GET /api/fonts?q=&letter=&category=&limit=&offset=
func (controller *FontsController) SearchFonts(c *gin.Context) {
	limit := intQuery(c, "limit", defaultSearchLimit)
	if limit <= 0 || limit > maxSearchLimit {
		limit = defaultSearchLimit
	}
	offset := intQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	rows, total, err := controller.fonts.SearchFonts(
		c.Query("q"), c.Query("letter"), c.Query("category"), limit, offset)
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{
		"fonts":  rows,
		"count":  len(rows),
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetFont returns one catalog entry.
// GET /api/fonts/:slug
func (controller *FontsController) GetFont(c *gin.Context) {
	font, err := controller.fonts.GetFont(c.Param("slug"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.IndentedJSON(http.StatusNotFound, gin.H{"error": "font not found"})
			return
		}
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, font)
}

// GetFontDetails fetches the remote detail page for a catalog entry and
// returns its display name and preview tokens. The first discovered token is
// stored on the entry when it has none yet.
// GET /api/fonts/:slug/details
func (controller *FontsController) GetFontDetails(c *gin.Context) {
	slug := c.Param("slug")

	font, err := controller.fonts.GetFont(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.IndentedJSON(http.StatusNotFound, gin.H{"error": "font not found"})
			return
		}
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	pageURL := font.PageURL
	if pageURL == "" {
		pageURL = controller.remote.PageURL(slug)
	}

	handle := controller.executor.Submit("font-details", func(ctx context.Context, _ func(string)) (any, error) {
		return controller.remote.FetchFontDetails(ctx, pageURL)
	})

	outcome, ok := <-handle.Done
	if !ok {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": "detail fetch did not complete"})
		return
	}
	if outcome.Err != nil {
		fetchErrorResponse(c, outcome.Err)
		return
	}

	details := outcome.Value.(*dafont.FontDetails)
	if font.PreviewToken == "" && len(details.PreviewTokens) > 0 {
		if err := controller.fonts.SetPreviewToken(slug, details.PreviewTokens[0]); err != nil {
			c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	c.IndentedJSON(http.StatusOK, gin.H{
		"slug":           slug,
		"name":           details.Name,
		"preview_tokens": details.PreviewTokens,
	})
}

type resolveRequest struct {
	Link string `json:"link" binding:"required"`
}

// ResolveLink normalizes a pasted page or download link into a font
// reference. Invalid input is rejected before any I/O.
// POST /api/fonts/resolve
func (controller *FontsController) ResolveLink(c *gin.Context) {
	var body resolveRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "link field is required"})
		return
	}

	ref, err := controller.remote.NormalizeLink(body.Link)
	if err != nil {
		if errors.Is(err, dafont.ErrInvalidLink) {
			c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, ref)
}

// fetchErrorResponse maps remote fetch failures onto response codes, keeping
// 404 distinguishable from transport errors.
func fetchErrorResponse(c *gin.Context, err error) {
	var fetchErr *dafont.FetchError
	switch {
	case errors.As(err, &fetchErr) && fetchErr.NotFound():
		c.IndentedJSON(http.StatusNotFound, gin.H{"error": "resource not found on remote"})
	case errors.As(err, &fetchErr):
		c.IndentedJSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
