package preview

import (
	"archive/zip"
	"context"
	"strings"

	"github.com/fontpeek/fontpeek/internal/entities"
)

// maxTokens caps how many preview tokens are derived from one archive.
const maxTokens = 6

// TokensResult reports the derived tokens and where they came from.
type TokensResult struct {
	Tokens []string
	Source string // "cache" or "archive"
}

// Tokens returns the preview tokens for slug, deriving them from the cached
// archive's font member names on first request. Token sets are immutable:
// once stored they are only re-derived if absent.
func (p *Pipeline) Tokens(ctx context.Context, slug, downloadURL string, progress func(string)) (*TokensResult, error) {
	if cached, err := p.tokens.GetPreviewTokens(slug); err != nil {
		return nil, err
	} else if len(cached) > 0 {
		return &TokensResult{Tokens: cached, Source: "cache"}, nil
	}

	archivePath, err := p.EnsureArchiveCached(ctx, slug, downloadURL, progress)
	if err != nil {
		return nil, err
	}

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, &MalformedArchiveError{Path: archivePath, Err: err}
	}
	defer reader.Close()

	seen := make(map[string]struct{})
	var tokens []string
	for _, f := range reader.File {
		lower := strings.ToLower(f.Name)
		if !strings.HasSuffix(lower, ".ttf") && !strings.HasSuffix(lower, ".otf") {
			continue
		}
		token := normalizeToken(f.Name)
		if token == "" {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
		if len(tokens) >= maxTokens {
			break
		}
	}

	if len(tokens) == 0 {
		return nil, ErrNoFontInArchive
	}

	if err := p.tokens.SetPreviewTokens(slug, tokens); err != nil {
		return nil, err
	}
	return &TokensResult{Tokens: tokens, Source: "archive"}, nil
}

// normalizeToken turns an archive member name into the token the remote
// preview endpoint expects: base name, extension stripped, slug-normalized.
func normalizeToken(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[:idx]
	}
	return entities.NormalizeSlug(name)
}
