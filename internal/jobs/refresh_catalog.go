package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// CatalogRefresher performs one full catalog refresh: conditional database
// sync, legacy import and the listing crawl.
type CatalogRefresher interface {
	RefreshCatalog(ctx context.Context, progress func(string)) error
}

// RefreshCatalogTask triggers a full catalog refresh.
type RefreshCatalogTask struct {
	Trigger string `json:"trigger"` // "manual" or "scheduled"
}

// Config returns the queue configuration for catalog refresh tasks.
func (t RefreshCatalogTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "refresh_catalog",
		MaxAttempts: 2,
		Backoff:     5 * time.Minute,
		Timeout:     45 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// RefreshCatalogProcessor creates a processor function for RefreshCatalogTask.
func RefreshCatalogProcessor(refresher CatalogRefresher) backlite.QueueProcessor[RefreshCatalogTask] {
	return func(ctx context.Context, task RefreshCatalogTask) error {
		if refresher == nil {
			return fmt.Errorf("refresher not configured")
		}

		log.Printf("[JOB] Catalog refresh started (trigger=%s)", task.Trigger)
		err := refresher.RefreshCatalog(ctx, func(msg string) {
			log.Printf("[JOB] %s", msg)
		})
		if err != nil {
			return fmt.Errorf("refresh catalog: %w", err)
		}

		log.Printf("[JOB] Catalog refresh finished (trigger=%s)", task.Trigger)
		return nil
	}
}

// NewRefreshCatalogQueue creates a backlite queue for catalog refresh tasks.
func NewRefreshCatalogQueue(refresher CatalogRefresher) backlite.Queue {
	return backlite.NewQueue(RefreshCatalogProcessor(refresher))
}
