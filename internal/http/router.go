// Package http exposes the catalog, preview and maintenance operations over
// a local JSON API.
package http

import (
	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.Fonts, cfg.SyncMeta, cfg.Version)
	fontsController := NewFontsController(cfg.Fonts, cfg.Remote, cfg.Executor)
	previewController := NewPreviewController(cfg.Fonts, cfg.Remote, cfg.Pipeline, cfg.Executor)
	catalogController := NewCatalogController(cfg.Executor, cfg.SyncCatalog, cfg.EnqueueRefresh)

	router.GET("/api/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	router.GET("/api/fonts", fontsController.SearchFonts)
	router.GET("/api/fonts/:slug", fontsController.GetFont)
	router.GET("/api/fonts/:slug/details", fontsController.GetFontDetails)
	router.POST("/api/fonts/resolve", fontsController.ResolveLink)

	router.GET("/api/fonts/:slug/preview", previewController.GetPreview)
	router.GET("/api/fonts/:slug/tokens", previewController.GetTokens)

	if cfg.SyncCatalog != nil {
		router.POST("/api/catalog/sync", catalogController.Sync)
	}
	if cfg.EnqueueRefresh != nil {
		router.POST("/api/catalog/refresh", catalogController.Refresh)
	}

	return router
}
