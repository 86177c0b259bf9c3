// Package updater crawls every category listing and refreshes the catalog
// rows from what the pages currently show.
package updater

import (
	"context"
	"fmt"

	"github.com/fontpeek/fontpeek/internal/entities"
)

// CategoryLister supplies the categories to crawl.
type CategoryLister interface {
	GetAllCategories() ([]entities.Category, error)
}

// FontWriter persists crawled font batches.
type FontWriter interface {
	UpsertFonts(fonts []entities.Font) (int, error)
}

// ListingClient fetches and parses category listing pages.
type ListingClient interface {
	LastPageForCategory(ctx context.Context, listingURL string) (int, error)
	FetchListing(ctx context.Context, listingURL, categoryKey string, page int) ([]entities.Font, error)
}

// Result accumulates counters over one full crawl.
type Result struct {
	Categories    int
	TotalSeen     int
	TotalUpserted int
}

type Service struct {
	categories CategoryLister
	repo       FontWriter
	client     ListingClient
}

func NewService(categories CategoryLister, repo FontWriter, client ListingClient) *Service {
	return &Service{
		categories: categories,
		repo:       repo,
		client:     client,
	}
}

// Run crawls pages 1..last of every category sequentially and upserts each
// page's fonts as one batch. A failed page aborts the whole run; there is no
// resumption state, the caller restarts from the first category.
func (s *Service) Run(ctx context.Context, progress func(string)) (*Result, error) {
	categories, err := s.categories.GetAllCategories()
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	result := &Result{}
	for _, category := range categories {
		report(progress, fmt.Sprintf("Updating category %s…", category.DisplayName))

		lastPage, err := s.client.LastPageForCategory(ctx, category.ListingURL)
		if err != nil {
			return nil, fmt.Errorf("probe last page for %s: %w", category.Key, err)
		}

		for page := 1; page <= lastPage; page++ {
			fonts, err := s.client.FetchListing(ctx, category.ListingURL, category.Key, page)
			if err != nil {
				return nil, fmt.Errorf("fetch %s page %d: %w", category.Key, page, err)
			}

			upserted, err := s.repo.UpsertFonts(fonts)
			if err != nil {
				return nil, fmt.Errorf("upsert %s page %d: %w", category.Key, page, err)
			}

			result.TotalSeen += len(fonts)
			result.TotalUpserted += upserted
			report(progress, fmt.Sprintf("Category %s: page %d/%d, %d fonts", category.DisplayName, page, lastPage, len(fonts)))
		}

		result.Categories++
	}

	report(progress, fmt.Sprintf("Catalog update finished: %d fonts across %d categories", result.TotalSeen, result.Categories))
	return result, nil
}

func report(progress func(string), msg string) {
	if progress != nil {
		progress(msg)
	}
}
