package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fontpeek/fontpeek/internal/entities"
	"github.com/fontpeek/fontpeek/internal/preview"
	"github.com/fontpeek/fontpeek/internal/tasks"
)

// PreviewController renders and serves preview images and their derived
// token sets.
type PreviewController struct {
	fonts    FontReader
	remote   RemoteClient
	pipeline PreviewPipeline
	executor *tasks.Executor
}

func NewPreviewController(fonts FontReader, remote RemoteClient, pipeline PreviewPipeline, executor *tasks.Executor) *PreviewController {
	return &PreviewController{
		fonts:    fonts,
		remote:   remote,
		pipeline: pipeline,
		executor: executor,
	}
}

// GetPreview serves the preview PNG for a font, rendering it first when not
// cached. Renders run on the worker pool keyed by slug, so a newer request
// for the same font supersedes a still-running older one.
// GET /api/fonts/:slug/preview?text=&size=
func (controller *PreviewController) GetPreview(c *gin.Context) {
	font, ok := controller.lookup(c)
	if !ok {
		return
	}

	req := preview.RenderRequest{
		Slug:        font.Slug,
		DownloadURL: controller.downloadURL(font),
		Text:        c.Query("text"),
		Size:        intQuery(c, "size", 0),
	}

	handle := controller.executor.SubmitKeyed("preview:"+font.Slug, "render-preview", func(ctx context.Context, progress func(string)) (any, error) {
		return controller.pipeline.RenderPreview(ctx, req, progress)
	})

	outcome, delivered := <-handle.Done
	if !delivered {
		// Superseded by a newer request for the same font.
		c.IndentedJSON(http.StatusConflict, gin.H{"error": "preview request superseded"})
		return
	}
	if outcome.Err != nil {
		controller.pipelineError(c, outcome.Err)
		return
	}

	result := outcome.Value.(*preview.RenderResult)
	c.Header("X-Preview-Cache", cacheHeader(result.CacheHit))
	c.File(result.ImagePath)
}

// GetTokens returns the preview tokens derived from a font's archive.
// GET /api/fonts/:slug/tokens
func (controller *PreviewController) GetTokens(c *gin.Context) {
	font, ok := controller.lookup(c)
	if !ok {
		return
	}

	downloadURL := controller.downloadURL(font)
	handle := controller.executor.Submit("preview-tokens", func(ctx context.Context, progress func(string)) (any, error) {
		return controller.pipeline.Tokens(ctx, font.Slug, downloadURL, progress)
	})

	outcome, delivered := <-handle.Done
	if !delivered {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": "token derivation did not complete"})
		return
	}
	if outcome.Err != nil {
		controller.pipelineError(c, outcome.Err)
		return
	}

	result := outcome.Value.(*preview.TokensResult)
	c.IndentedJSON(http.StatusOK, gin.H{
		"slug":   font.Slug,
		"tokens": result.Tokens,
		"source": result.Source,
	})
}

func (controller *PreviewController) lookup(c *gin.Context) (*entities.Font, bool) {
	font, err := controller.fonts.GetFont(c.Param("slug"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.IndentedJSON(http.StatusNotFound, gin.H{"error": "font not found"})
			return nil, false
		}
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return font, true
}

func (controller *PreviewController) downloadURL(font *entities.Font) string {
	if font.DownloadURL != "" {
		return font.DownloadURL
	}
	return controller.remote.DownloadURLFor(font.Slug)
}

func (controller *PreviewController) pipelineError(c *gin.Context, err error) {
	var malformed *preview.MalformedArchiveError

	switch {
	case errors.Is(err, preview.ErrNoFontInArchive):
		c.IndentedJSON(http.StatusUnprocessableEntity, gin.H{"error": "archive contains no usable font"})
	case errors.As(err, &malformed):
		c.IndentedJSON(http.StatusUnprocessableEntity, gin.H{"error": "archive could not be read"})
	default:
		fetchErrorResponse(c, err)
	}
}

func cacheHeader(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
