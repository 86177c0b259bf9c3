package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fontpeek/fontpeek/internal/config"
	"github.com/fontpeek/fontpeek/internal/entrypoint"
	"github.com/fontpeek/fontpeek/internal/preview"
	"github.com/fontpeek/fontpeek/internal/utils"
)

// PreviewCommand renders an offline preview image for one font.
type PreviewCommand struct {
	Text  string
	Size  int
	Width int
	Color string

	target string
}

// NewPreviewCommand creates a new PreviewCommand
func NewPreviewCommand() *PreviewCommand {
	return &PreviewCommand{}
}

// ParseFlags parses command line flags
func (cmd *PreviewCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)

	fs.StringVar(&cmd.Text, "text", "", "Text to render (defaults to the configured preview text)")
	fs.IntVar(&cmd.Size, "size", 0, "Font size in points")
	fs.IntVar(&cmd.Width, "width", 0, "Image width in pixels")
	fs.StringVar(&cmd.Color, "color", "", "Text color as #RRGGBB or #RRGGBBAA")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s preview [options] <slug-or-link>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Render a preview image for a font, downloading and extracting it first\n")
		fmt.Fprintf(os.Stderr, "when not cached. Accepts a catalog slug, a font page link or a download link.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s preview my-font\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s preview -text \"Olá mundo\" -size 96 https://www.dafont.com/pt/my-font.font\n", os.Args[0])
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

// Run executes the preview command
func (cmd *PreviewCommand) Run() error {
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

	req := preview.RenderRequest{
		Slug:        slug,
		DownloadURL: downloadURL,
		Text:        cmd.Text,
		Size:        cmd.Size,
		Width:       cmd.Width,
	}
	if req.Text == "" {
		req.Text = cfg.Cache.PreviewText
	}
	if req.Size == 0 {
		req.Size = cfg.Cache.PreviewSize
	}
	if req.Width == 0 {
		req.Width = cfg.Cache.PreviewWidth
	}
	req.Padding = cfg.Cache.PreviewPadding

	if cmd.Color != "" {
		fg, err := utils.ParseHexColor(cmd.Color)
		if err != nil {
			return err
		}
		req.Foreground = fg
	}

	result, err := components.Pipeline.RenderPreview(context.Background(), req, func(msg string) {
		fmt.Println(msg)
	})
	if err != nil {
		return err
	}

	if result.CacheHit {
		fmt.Printf("Preview already cached: %s\n", result.ImagePath)
	} else {
		fmt.Printf("Preview rendered: %s\n", result.ImagePath)
	}
	fmt.Printf("Font member: %s\n", result.FontMember)
	return nil
}

// resolveTarget accepts a catalog slug or a pasted link and returns the slug
// with its archive download URL.
func resolveTarget(components *entrypoint.Components, target string) (string, string, error) {
	if strings.Contains(target, "://") {
		ref, err := components.Client.NormalizeLink(target)
		if err != nil {
			return "", "", err
		}
		return ref.Slug, ref.DownloadURL, nil
	}

	// A known catalog entry carries its own download link.
	if font, err := components.Fonts.GetFont(target); err == nil && font.DownloadURL != "" {
		return font.Slug, font.DownloadURL, nil
	}
	return target, components.Client.DownloadURLFor(target), nil
}
