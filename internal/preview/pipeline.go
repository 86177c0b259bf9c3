// Package preview implements the layered content cache behind offline font
// previews: a downloaded archive per slug, an extracted font file per
// archive member, and a rendered preview image per render-input cache key.
// Every layer is immutable once written; presence with non-zero size is its
// own validity proof. The whole tree is purged only by the shutdown policy.
package preview

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoFontInArchive signals an archive without any usable .ttf/.otf member.
var ErrNoFontInArchive = errors.New("archive contains no .ttf or .otf member")

// MalformedArchiveError signals archive bytes that cannot be read.
type MalformedArchiveError struct {
	Path string
	Err  error
}

func (e *MalformedArchiveError) Error() string {
	return fmt.Sprintf("unreadable archive %s: %v", e.Path, e.Err)
}

func (e *MalformedArchiveError) Unwrap() error { return e.Err }

// Fetcher is the fetch capability the pipeline needs from the remote client.
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// TokenStore caches derived preview token sets.
type TokenStore interface {
	GetPreviewTokens(slug string) ([]string, error)
	SetPreviewTokens(slug string, tokens []string) error
}

// Pipeline owns the cache directory tree and the three cache stages.
type Pipeline struct {
	fetcher Fetcher
	tokens  TokenStore

	cacheDir   string
	archiveDir string
	fontDir    string
	previewDir string
}

// NewPipeline creates the cache tree under cacheDir. The token store may be
// nil when token derivation is not needed.
func NewPipeline(cacheDir string, fetcher Fetcher, tokens TokenStore) (*Pipeline, error) {
	p := &Pipeline{
		fetcher:    fetcher,
		tokens:     tokens,
		cacheDir:   cacheDir,
		archiveDir: filepath.Join(cacheDir, "archives"),
		fontDir:    filepath.Join(cacheDir, "fonts"),
		previewDir: filepath.Join(cacheDir, "previews"),
	}
	for _, dir := range []string{p.archiveDir, p.fontDir, p.previewDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	return p, nil
}

// CacheDir returns the root of the cache tree.
func (p *Pipeline) CacheDir() string { return p.cacheDir }

// ArchivePath returns the cache location for a slug's archive.
func (p *Pipeline) ArchivePath(slug string) string {
	return filepath.Join(p.archiveDir, slug+".zip")
}

func (p *Pipeline) fontPath(slug, member string) string {
	base := member
	base = strings.ReplaceAll(base, "\\", "/")
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	return filepath.Join(p.fontDir, slug+"__"+base)
}

func (p *Pipeline) previewPath(slug, key string) string {
	return filepath.Join(p.previewDir, slug+"__"+key+".png")
}

// EnsureArchiveCached returns the cached archive for slug, downloading it
// first when absent. Archives are small enough to buffer whole.
func (p *Pipeline) EnsureArchiveCached(ctx context.Context, slug, sourceURL string, progress func(string)) (string, error) {
	path := p.ArchivePath(slug)
	if isNonEmptyFile(path) {
		return path, nil
	}

	report(progress, "Downloading archive to cache…")
	data, err := p.fetcher.FetchBytes(ctx, sourceURL)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		os.Remove(path) // drop a partial write, ignore failure
		return "", fmt.Errorf("write archive cache: %w", err)
	}
	report(progress, fmt.Sprintf("Archive cached: %d bytes", len(data)))
	return path, nil
}

// EnsureFontExtracted returns the extracted font file for the archive's
// chosen member, extracting it when absent. The member choice is
// deterministic: .ttf beats .otf, then shortest path, then lexicographically
// smallest name.
func (p *Pipeline) EnsureFontExtracted(slug, archivePath string, progress func(string)) (string, string, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", "", &MalformedArchiveError{Path: archivePath, Err: err}
	}
	defer reader.Close()

	member := pickFontMember(&reader.Reader)
	if member == nil {
		return "", "", ErrNoFontInArchive
	}

	outPath := p.fontPath(slug, member.Name)
	if isNonEmptyFile(outPath) {
		return outPath, member.Name, nil
	}

	report(progress, "Extracting font from archive…")
	rc, err := member.Open()
	if err != nil {
		return "", "", &MalformedArchiveError{Path: archivePath, Err: err}
	}
	defer rc.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return "", "", fmt.Errorf("create extracted font: %w", err)
	}
	if _, err := out.ReadFrom(rc); err != nil {
		out.Close()
		os.Remove(outPath) // drop a partial extraction, ignore failure
		return "", "", fmt.Errorf("extract font member: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return "", "", fmt.Errorf("finish extracted font: %w", err)
	}

	report(progress, fmt.Sprintf("Font extracted: %s", filepath.Base(outPath)))
	return outPath, member.Name, nil
}

// pickFontMember selects the archive member to extract: .ttf preferred over
// .otf, then the shortest path, then the lexicographically smallest
// lowercased name, so repeated runs always pick the same member.
func pickFontMember(reader *zip.Reader) *zip.File {
	var candidates []*zip.File
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		lower := strings.ToLower(f.Name)
		if strings.HasSuffix(lower, ".ttf") || strings.HasSuffix(lower, ".otf") {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		li, lj := strings.ToLower(candidates[i].Name), strings.ToLower(candidates[j].Name)
		ti, tj := strings.HasSuffix(li, ".ttf"), strings.HasSuffix(lj, ".ttf")
		if ti != tj {
			return ti
		}
		if len(li) != len(lj) {
			return len(li) < len(lj)
		}
		return li < lj
	})
	return candidates[0]
}

// cacheKey derives the deterministic preview cache key from the semantic
// render inputs.
func cacheKey(slug, fontFileName, text string, size, width int, fg color.RGBA) string {
	h := sha256.New()
	for _, part := range []string{
		slug, fontFileName, text,
		fmt.Sprint(size), fmt.Sprint(width),
	} {
		h.Write([]byte(part))
		h.Write([]byte{'|'})
	}
	h.Write([]byte{fg.R, fg.G, fg.B, fg.A})
	return hex.EncodeToString(h.Sum(nil))[:24]
}

// PurgeAll removes every cached artifact and recreates the empty tree.
// Called by the shutdown policy; never automatic.
func (p *Pipeline) PurgeAll() error {
	for _, dir := range []string{p.archiveDir, p.fontDir, p.previewDir} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("purge cache dir: %w", err)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("recreate cache dir: %w", err)
		}
	}
	return nil
}

func isNonEmptyFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

func report(progress func(string), msg string) {
	if progress != nil {
		progress(msg)
	}
}
