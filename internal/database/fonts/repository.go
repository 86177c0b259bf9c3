// Package fonts provides database operations for the font catalog.
//
// The repository serializes all physical access behind a single mutex: the
// store is shared between the request path and background workers, and the
// workload is not write-heavy enough to need anything finer.
//
// # Usage
//
//	repo := fonts.NewRepository(db)
//	rows, total, err := repo.SearchFonts("sans", "#", "", 100, 0)
package fonts

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/fontpeek/fontpeek/internal/entities"
)

// UnknownCategoryError signals an upsert referencing a category key that was
// never seeded.
type UnknownCategoryError struct {
	CategoryKey string
	Slug        string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown category %q for font %q", e.CategoryKey, e.Slug)
}

// Repository handles all font catalog database operations.
type Repository struct {
	db *gorm.DB
	mu sync.Mutex
}

// NewRepository creates a new fonts repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// UpsertCategories inserts missing categories and refreshes the mutable
// fields of existing ones.
func (r *Repository) UpsertCategories(categories []entities.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, category := range categories {
		var existing entities.Category
		result := r.db.Where("key = ?", category.Key).First(&existing)
		if result.Error == gorm.ErrRecordNotFound {
			if err := r.db.Create(&category).Error; err != nil {
				return fmt.Errorf("create category %s: %w", category.Key, err)
			}
			continue
		}
		if result.Error != nil {
			return fmt.Errorf("lookup category %s: %w", category.Key, result.Error)
		}

		existing.DisplayName = category.DisplayName
		existing.ThemeID = category.ThemeID
		existing.ListingURL = category.ListingURL
		if err := r.db.Save(&existing).Error; err != nil {
			return fmt.Errorf("update category %s: %w", category.Key, err)
		}
	}
	return nil
}

// UpsertFonts inserts or refreshes a batch of catalog entries and returns the
// number of rows written. Mutable fields are last-writer-wins, except the
// preview token: an existing non-empty token survives an incoming empty one.
// An entry with an empty slug is rejected; a reference to an unseeded
// category fails with UnknownCategoryError.
func (r *Repository) UpsertFonts(fonts []entities.Font) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	known, err := r.categoryKeys()
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	written := 0

	for _, font := range fonts {
		font.Slug = strings.TrimSpace(font.Slug)
		if font.Slug == "" {
			return written, errors.New("upsert font: empty slug")
		}
		if _, ok := known[font.CategoryKey]; !ok {
			return written, &UnknownCategoryError{CategoryKey: font.CategoryKey, Slug: font.Slug}
		}

		var existing entities.Font
		result := r.db.Where("slug = ?", font.Slug).First(&existing)
		if result.Error == gorm.ErrRecordNotFound {
			font.FirstSeen = now
			font.LastSeen = now
			if err := r.db.Create(&font).Error; err != nil {
				return written, fmt.Errorf("create font %s: %w", font.Slug, err)
			}
			written++
			continue
		}
		if result.Error != nil {
			return written, fmt.Errorf("lookup font %s: %w", font.Slug, result.Error)
		}

		existing.Name = font.Name
		existing.CategoryKey = font.CategoryKey
		existing.PageURL = font.PageURL
		existing.DownloadURL = font.DownloadURL
		if font.PreviewToken != "" {
			existing.PreviewToken = font.PreviewToken
		}
		existing.LastSeen = now
		if err := r.db.Save(&existing).Error; err != nil {
			return written, fmt.Errorf("update font %s: %w", font.Slug, err)
		}
		written++
	}

	return written, nil
}

// SetPreviewToken records the preview token for a known slug.
func (r *Repository) SetPreviewToken(slug, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.db.Model(&entities.Font{}).Where("slug = ?", slug).
		Update("preview_token", token).Error
}

// GetFont retrieves a catalog entry by slug.
func (r *Repository) GetFont(slug string) (*entities.Font, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var font entities.Font
	err := r.db.Where("slug = ?", slug).First(&font).Error
	if err != nil {
		return nil, err
	}
	return &font, nil
}

// SearchFonts applies an optional case-insensitive substring filter on the
// name, an optional letter bucket filter ("#" matches names whose uppercased
// first character is outside A-Z) and an optional category filter. Results
// are ordered by name, case-insensitively ascending, and paginated with
// offset+limit. The second return value is the total match count before
// pagination.
func (r *Repository) SearchFonts(query, letter, categoryKey string, limit, offset int) ([]entities.Font, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := r.db.Model(&entities.Font{})

	if query = strings.TrimSpace(query); query != "" {
		tx = tx.Where(`LOWER(name) LIKE LOWER(?) ESCAPE '\'`, "%"+escapeLike(query)+"%")
	}
	if letter != "" {
		if letter == "#" {
			tx = tx.Where("NOT (upper(substr(name,1,1)) BETWEEN 'A' AND 'Z')")
		} else {
			tx = tx.Where("upper(substr(name,1,1)) = ?", strings.ToUpper(letter))
		}
	}
	if categoryKey != "" {
		tx = tx.Where("category_key = ?", categoryKey)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count fonts: %w", err)
	}

	var rows []entities.Font
	err := tx.Order("name COLLATE NOCASE ASC").Limit(limit).Offset(offset).Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("search fonts: %w", err)
	}
	return rows, total, nil
}

// escapeLike neutralizes LIKE metacharacters so a query matches them
// literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// CountFonts returns the total number of catalog entries.
func (r *Repository) CountFonts() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total int64
	err := r.db.Model(&entities.Font{}).Count(&total).Error
	return total, err
}

func (r *Repository) categoryKeys() (map[string]struct{}, error) {
	var categories []entities.Category
	if err := r.db.Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	keys := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		keys[c.Key] = struct{}{}
	}
	return keys, nil
}
