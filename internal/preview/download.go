package preview

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fontpeek/fontpeek/internal/utils"
)

// DownloadTo saves the font archive into targetDir for the user to keep,
// outside the ephemeral cache tree. An existing non-empty file is reused.
func (p *Pipeline) DownloadTo(ctx context.Context, slug, sourceURL, targetDir string, progress func(string)) (string, error) {
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	fileName := utils.SafeFilename(strings.ReplaceAll(slug, "-", "_")) + ".zip"
	outPath := filepath.Join(targetDir, fileName)
	if isNonEmptyFile(outPath) {
		return outPath, nil
	}

	data, err := p.fetcher.FetchBytes(ctx, sourceURL)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		os.Remove(outPath) // drop a partial write, ignore failure
		return "", fmt.Errorf("write download: %w", err)
	}

	report(progress, fmt.Sprintf("Download finished: %s", outPath))
	return outPath, nil
}
