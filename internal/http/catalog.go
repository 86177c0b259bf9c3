package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fontpeek/fontpeek/internal/syncer"
	"github.com/fontpeek/fontpeek/internal/tasks"
)

// CatalogController triggers catalog maintenance operations.
type CatalogController struct {
	executor       *tasks.Executor
	syncCatalog    tasks.Func
	enqueueRefresh func(trigger string) error
}

func NewCatalogController(executor *tasks.Executor, syncCatalog tasks.Func, enqueueRefresh func(trigger string) error) *CatalogController {
	return &CatalogController{
		executor:       executor,
		syncCatalog:    syncCatalog,
		enqueueRefresh: enqueueRefresh,
	}
}

// Sync runs the conditional catalog database sync on the worker pool and
// waits for its outcome. A sync already in flight is rejected, not queued.
// POST /api/catalog/sync
func (controller *CatalogController) Sync(c *gin.Context) {
	handle := controller.executor.Submit("sync-catalog", controller.syncCatalog)

	outcome, ok := <-handle.Done
	if !ok {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": "sync did not complete"})
		return
	}
	if outcome.Err != nil {
		if errors.Is(outcome.Err, syncer.ErrSyncInProgress) {
			c.IndentedJSON(http.StatusConflict, gin.H{"error": "catalog sync already in progress"})
			return
		}
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": outcome.Err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, outcome.Value)
}

// Refresh enqueues a full catalog refresh on the job queue and returns
// immediately.
// POST /api/catalog/refresh
func (controller *CatalogController) Refresh(c *gin.Context) {
	if err := controller.enqueueRefresh("manual"); err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusAccepted, gin.H{"status": "refresh enqueued"})
}
