package http

import (
	"context"

	"github.com/fontpeek/fontpeek/internal/dafont"
	"github.com/fontpeek/fontpeek/internal/database"
	"github.com/fontpeek/fontpeek/internal/entities"
	"github.com/fontpeek/fontpeek/internal/preview"
	"github.com/fontpeek/fontpeek/internal/tasks"
)

// FontReader is the catalog access the font endpoints need.
type FontReader interface {
	GetFont(slug string) (*entities.Font, error)
	SearchFonts(query, letter, categoryKey string, limit, offset int) ([]entities.Font, int64, error)
	SetPreviewToken(slug, token string) error
	CountFonts() (int64, error)
}

// SyncMetaReader exposes the last recorded catalog sync state.
type SyncMetaReader interface {
	GetSyncMeta() (*entities.SyncMeta, error)
}

// RemoteClient is the slice of the site client the controllers need: link
// normalization, URL templates and detail-page fetching.
type RemoteClient interface {
	NormalizeLink(raw string) (*dafont.FontRef, error)
	DownloadURLFor(slug string) string
	PageURL(slug string) string
	FetchFontDetails(ctx context.Context, pageURL string) (*dafont.FontDetails, error)
}

// PreviewPipeline is the cache pipeline surface the preview endpoints need.
type PreviewPipeline interface {
	RenderPreview(ctx context.Context, req preview.RenderRequest, progress func(string)) (*preview.RenderResult, error)
	Tokens(ctx context.Context, slug, downloadURL string, progress func(string)) (*preview.TokensResult, error)
}

// RouterConfig carries all dependencies for router construction.
type RouterConfig struct {
	Database *database.Database
	Version  string

	Fonts    FontReader
	SyncMeta SyncMetaReader
	Remote   RemoteClient
	Pipeline PreviewPipeline
	Executor *tasks.Executor

	// SyncCatalog runs the conditional database sync plus the legacy import.
	// Nil disables the sync endpoint.
	SyncCatalog tasks.Func

	// EnqueueRefresh hands a full catalog refresh to the job queue.
	// Nil disables the refresh endpoint.
	EnqueueRefresh func(trigger string) error
}
