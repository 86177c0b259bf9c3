// Package kvstore provides the small key-value database holding sync
// metadata and per-slug preview token caches. It lives in its own sqlite
// file alongside the main catalog database.
package kvstore

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fontpeek/fontpeek/internal/entities"
)

// Repository handles sync metadata and preview token persistence.
type Repository struct {
	db *gorm.DB
	mu sync.Mutex
}

// Open opens (or creates) the key-value database at path and migrates its
// schema.
func Open(path string) (*Repository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open kv database: %w", err)
	}

	err = db.AutoMigrate(&entities.SyncMeta{}, &entities.PreviewTokenSet{})
	if err != nil {
		return nil, fmt.Errorf("failed to migrate kv database: %w", err)
	}

	return &Repository{db: db}, nil
}

// NewRepository wraps an already opened and migrated database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetSyncMeta returns the stored sync metadata, or nil when no sync has
// completed yet.
func (r *Repository) GetSyncMeta() (*entities.SyncMeta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var meta entities.SyncMeta
	err := r.db.First(&meta, 1).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load sync meta: %w", err)
	}
	return &meta, nil
}

// SetSyncMeta replaces the singleton sync metadata record.
func (r *Repository) SetSyncMeta(etag, sha256 string, size int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta := entities.SyncMeta{
		ID:        1,
		ETag:      etag,
		SHA256:    sha256,
		Size:      size,
		UpdatedAt: time.Now().UTC(),
	}
	return r.db.Save(&meta).Error
}

// GetPreviewTokens returns the cached token list for slug, or nil when the
// slug has no cached set.
func (r *Repository) GetPreviewTokens(slug string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var set entities.PreviewTokenSet
	err := r.db.Where("slug = ?", slug).First(&set).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load preview tokens for %s: %w", slug, err)
	}

	var tokens []string
	if err := json.Unmarshal([]byte(set.Tokens), &tokens); err != nil {
		return nil, fmt.Errorf("decode preview tokens for %s: %w", slug, err)
	}
	return tokens, nil
}

// SetPreviewTokens stores the ordered token list for slug.
func (r *Repository) SetPreviewTokens(slug string, tokens []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	encoded, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("encode preview tokens for %s: %w", slug, err)
	}

	set := entities.PreviewTokenSet{
		Slug:      slug,
		Tokens:    string(encoded),
		UpdatedAt: time.Now().UTC(),
	}
	return r.db.Save(&set).Error
}
