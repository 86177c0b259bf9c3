package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fontpeek/fontpeek/internal/database"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

type HealthController struct {
	db      *database.Database
	fonts   FontReader
	meta    SyncMetaReader
	version string
}

func NewHealthController(db *database.Database, fonts FontReader, meta SyncMetaReader, version string) *HealthController {
	return &HealthController{
		db:      db,
		fonts:   fonts,
		meta:    meta,
		version: version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	// Check database connectivity
	if h.db != nil {
		sqlDB, err := h.db.DB.DB()
		if err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else if err := sqlDB.Ping(); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	// Check catalog contents
	if h.fonts != nil {
		count, err := h.fonts.CountFonts()
		switch {
		case err != nil:
			checks["catalog"] = "error: " + err.Error()
			status = "unhealthy"
		case count == 0:
			checks["catalog"] = "empty"
		default:
			checks["catalog"] = fmt.Sprintf("%d fonts", count)
		}
	} else {
		checks["catalog"] = "not configured"
	}

	// Report the last successful catalog sync
	if h.meta != nil {
		meta, err := h.meta.GetSyncMeta()
		switch {
		case err != nil:
			checks["last_sync"] = "error: " + err.Error()
			status = "unhealthy"
		case meta == nil:
			checks["last_sync"] = "never"
		default:
			checks["last_sync"] = meta.UpdatedAt.Format(time.RFC3339)
		}
	} else {
		checks["last_sync"] = "not configured"
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
