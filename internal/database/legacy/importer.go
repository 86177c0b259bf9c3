// Package legacy imports the synced legacy catalog database into the live
// schema. The remote authoritative copy still uses the original single-table
// layout (fontes with Portuguese column names); it is read exactly once after
// each successful sync and never queried live.
package legacy

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fontpeek/fontpeek/internal/entities"
)

const batchSize = 500

// FontWriter is the slice of the catalog repository the importer needs.
type FontWriter interface {
	UpsertFonts(fonts []entities.Font) (int, error)
}

// Result summarizes one import run.
type Result struct {
	RowsRead int
	Upserted int
	Skipped  int
}

// Importer copies rows from a legacy fontes database into the live store.
type Importer struct {
	repo FontWriter

	// FallbackCategory is assigned to every imported row: the legacy schema
	// carries no category information.
	FallbackCategory string
}

// NewImporter creates an importer writing through the given repository.
func NewImporter(repo FontWriter, fallbackCategory string) *Importer {
	return &Importer{repo: repo, FallbackCategory: fallbackCategory}
}

var pageSlugRe = regexp.MustCompile(`/([^/]+)\.font(?:$|\?)`)

// slugFromLink derives the slug from a legacy page link, falling back to the
// last path segment when the link does not end in .font.
func slugFromLink(link string) string {
	if m := pageSlugRe.FindStringSubmatch(link); m != nil {
		return entities.NormalizeSlug(m[1])
	}
	seg := strings.TrimSuffix(strings.TrimRight(link, "/"), ".font")
	if idx := strings.LastIndex(seg, "/"); idx >= 0 {
		seg = seg[idx+1:]
	}
	return entities.NormalizeSlug(seg)
}

// Run opens the legacy database read-only, maps every fontes row onto the
// live schema and upserts it in batches. Rows without a derivable slug are
// skipped and counted.
func (i *Importer) Run(legacyPath string, progress func(msg string)) (*Result, error) {
	db, err := sql.Open("sqlite3", "file:"+legacyPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open legacy database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query("SELECT nome, link, link_download FROM fontes")
	if err != nil {
		return nil, fmt.Errorf("query legacy fonts: %w", err)
	}
	defer rows.Close()

	result := &Result{}
	batch := make([]entities.Font, 0, batchSize)
	seen := make(map[string]struct{})

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		written, err := i.repo.UpsertFonts(batch)
		result.Upserted += written
		batch = batch[:0]
		if err != nil {
			return fmt.Errorf("upsert legacy batch: %w", err)
		}
		return nil
	}

	for rows.Next() {
		var name, link, downloadLink sql.NullString
		if err := rows.Scan(&name, &link, &downloadLink); err != nil {
			return result, fmt.Errorf("scan legacy row: %w", err)
		}
		result.RowsRead++

		slug := slugFromLink(strings.TrimSpace(link.String))
		if slug == "" {
			slug = entities.NormalizeSlug(name.String)
		}
		if slug == "" {
			result.Skipped++
			continue
		}
		if _, dup := seen[slug]; dup {
			result.Skipped++
			continue
		}
		seen[slug] = struct{}{}

		font := entities.Font{
			Slug:        slug,
			Name:        strings.TrimSpace(name.String),
			CategoryKey: i.FallbackCategory,
			PageURL:     strings.TrimSpace(link.String),
			DownloadURL: strings.TrimSpace(downloadLink.String),
		}
		if font.Name == "" {
			font.Name = slug
		}

		batch = append(batch, font)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return result, err
			}
			if progress != nil {
				progress(fmt.Sprintf("Imported %d legacy rows…", result.Upserted))
			}
		}
	}
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("iterate legacy rows: %w", err)
	}

	if err := flush(); err != nil {
		return result, err
	}
	if progress != nil {
		progress(fmt.Sprintf("Legacy import finished: %d rows, %d upserted, %d skipped",
			result.RowsRead, result.Upserted, result.Skipped))
	}
	return result, nil
}
