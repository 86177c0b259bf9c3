package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/fontpeek/fontpeek/internal/config"
	"github.com/fontpeek/fontpeek/internal/entrypoint"
)

// DownloadCommand saves a font archive outside the ephemeral cache tree.
type DownloadCommand struct {
	Dir string

	target string
}

// NewDownloadCommand creates a new DownloadCommand
func NewDownloadCommand() *DownloadCommand {
	return &DownloadCommand{}
}

// ParseFlags parses command line flags
func (cmd *DownloadCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)

	fs.StringVar(&cmd.Dir, "dir", ".", "Directory to save the archive into")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s download [options] <slug-or-link>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Download a font archive for keeps. Accepts a catalog slug, a font page\n")
		fmt.Fprintf(os.Stderr, "link or a download link. An existing file is reused, not re-downloaded.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected exactly one slug or link argument")
	}
	cmd.target = fs.Arg(0)
	return nil
}

// Run executes the download command
func (cmd *DownloadCommand) Run() error {
	cfg := config.NewConfig()

	components, err := entrypoint.Build(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer components.Close()

	slug, downloadURL, err := resolveTarget(components, cmd.target)
	if err != nil {
		return err
	}

	path, err := components.Pipeline.DownloadTo(context.Background(), slug, downloadURL, cmd.Dir, func(msg string) {
		fmt.Println(msg)
	})
	if err != nil {
		return err
	}

	fmt.Printf("Saved: %s\n", path)
	return nil
}
