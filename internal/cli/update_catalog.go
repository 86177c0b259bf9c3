package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/fontpeek/fontpeek/internal/config"
	"github.com/fontpeek/fontpeek/internal/entrypoint"
)

// UpdateCatalogCommand crawls every category listing and refreshes the
// catalog from the pages.
type UpdateCatalogCommand struct {
	SkipSync bool
	Verbose  bool
}

// NewUpdateCatalogCommand creates a new UpdateCatalogCommand
func NewUpdateCatalogCommand() *UpdateCatalogCommand {
	return &UpdateCatalogCommand{}
}

// ParseFlags parses command line flags
func (cmd *UpdateCatalogCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("update-catalog", flag.ExitOnError)

	fs.BoolVar(&cmd.SkipSync, "skip-sync", false, "Skip the database sync, only crawl the listings")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s update-catalog [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Crawl every category listing and refresh the catalog.\n\n")
		fmt.Fprintf(os.Stderr, "This command:\n")
		fmt.Fprintf(os.Stderr, "  1. Syncs the catalog database (unless -skip-sync)\n")
		fmt.Fprintf(os.Stderr, "  2. Probes every category for its last listing page\n")
		fmt.Fprintf(os.Stderr, "  3. Walks all pages and upserts the discovered fonts\n\n")
		fmt.Fprintf(os.Stderr, "A failed run keeps no resumption state; rerun to start over.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

// Run executes the update command
func (cmd *UpdateCatalogCommand) Run() error {
	cfg := config.NewConfig()

	components, err := entrypoint.Build(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer components.Close()

	ctx := context.Background()
	progress := func(msg string) { fmt.Println(msg) }

	if !cmd.SkipSync {
		if _, err := components.Refresher.SyncCatalog(ctx, progress); err != nil {
			return err
		}
	}

	result, err := components.Updater.Run(ctx, progress)
	if err != nil {
		return err
	}

	fmt.Printf("Done: %d fonts seen, %d upserted across %d categories\n",
		result.TotalSeen, result.TotalUpserted, result.Categories)
	return nil
}
