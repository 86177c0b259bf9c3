package entrypoint

import (
	"context"
	"fmt"

	"github.com/fontpeek/fontpeek/internal/database/fonts"
	"github.com/fontpeek/fontpeek/internal/database/legacy"
	"github.com/fontpeek/fontpeek/internal/syncer"
	"github.com/fontpeek/fontpeek/internal/updater"
)

// Refresher orchestrates catalog maintenance: the conditional database sync,
// the legacy import that follows a changed download, and the full listing
// crawl.
type Refresher struct {
	syncer      *syncer.Service
	importer    *legacy.Importer
	updater     *updater.Service
	repo        *fonts.Repository
	catalogPath string
}

func NewRefresher(sync *syncer.Service, importer *legacy.Importer, upd *updater.Service, repo *fonts.Repository, catalogPath string) *Refresher {
	return &Refresher{
		syncer:      sync,
		importer:    importer,
		updater:     upd,
		repo:        repo,
		catalogPath: catalogPath,
	}
}

// SyncCatalog runs the conditional sync against the remote catalog database
// and, when the local copy changed or the live store is still empty, imports
// its rows into the live store.
func (r *Refresher) SyncCatalog(ctx context.Context, progress func(string)) (*syncer.Result, error) {
	result, err := r.syncer.SyncIfNeeded(ctx, r.catalogPath, progress)
	if err != nil {
		return nil, err
	}

	count, err := r.repo.CountFonts()
	if err != nil {
		return nil, fmt.Errorf("count catalog entries: %w", err)
	}

	if result.Updated || count == 0 {
		imported, err := r.importer.Run(r.catalogPath, progress)
		if err != nil {
			return nil, fmt.Errorf("import synced catalog: %w", err)
		}
		if progress != nil {
			progress(fmt.Sprintf("Imported %d of %d legacy rows (%d skipped)",
				imported.Upserted, imported.RowsRead, imported.Skipped))
		}
	}

	return result, nil
}

// RefreshCatalog is the full maintenance pass: sync plus listing crawl.
// It satisfies the job queue's refresher contract.
func (r *Refresher) RefreshCatalog(ctx context.Context, progress func(string)) error {
	if _, err := r.SyncCatalog(ctx, progress); err != nil {
		return err
	}
	if _, err := r.updater.Run(ctx, progress); err != nil {
		return err
	}
	return nil
}
