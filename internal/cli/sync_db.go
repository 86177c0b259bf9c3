// Package cli implements the maintenance commands that run without the
// HTTP server.
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/fontpeek/fontpeek/internal/config"
	"github.com/fontpeek/fontpeek/internal/entrypoint"
)

// SyncDBCommand downloads the remote catalog database when it changed and
// imports its rows into the live store.
type SyncDBCommand struct {
	Force   bool
	Verbose bool
}

// NewSyncDBCommand creates a new SyncDBCommand
func NewSyncDBCommand() *SyncDBCommand {
	return &SyncDBCommand{}
}

// ParseFlags parses command line flags
func (cmd *SyncDBCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sync-db", flag.ExitOnError)

	fs.BoolVar(&cmd.Force, "force", false, "Delete the local copy first, forcing a full download")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sync-db [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Sync the local catalog database with the remote copy.\n\n")
		fmt.Fprintf(os.Stderr, "This command:\n")
		fmt.Fprintf(os.Stderr, "  1. Probes the remote database with a conditional request\n")
		fmt.Fprintf(os.Stderr, "  2. Downloads it only when it changed since the last sync\n")
		fmt.Fprintf(os.Stderr, "  3. Imports its rows into the live catalog\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s sync-db\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s sync-db -force\n", os.Args[0])
	}

	return fs.Parse(args)
}

// Run executes the sync command
func (cmd *SyncDBCommand) Run() error {
	cfg := config.NewConfig()

	components, err := entrypoint.Build(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer components.Close()

	if cmd.Force {
		if err := os.Remove(cfg.Database.CatalogPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove local copy: %w", err)
		}
		fmt.Println("Local copy removed; forcing a full download")
	}

	result, err := components.Refresher.SyncCatalog(context.Background(), func(msg string) {
		fmt.Println(msg)
	})
	if err != nil {
		return err
	}

	if result.Updated {
		fmt.Printf("Catalog updated (%s): %d bytes, sha256 %s\n",
			result.Reason, result.BytesDownloaded, result.SHA256)
	} else {
		fmt.Printf("Catalog already up to date (%s)\n", result.Reason)
	}
	return nil
}
