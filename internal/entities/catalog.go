package entities

import (
	"regexp"
	"strings"
	"time"
)

// Category is one of the fixed DaFont browsing categories. The set is seeded
// at startup and never mutated during a session.
type Category struct {
	Key         string    `gorm:"primaryKey;size:50" json:"key"`
	DisplayName string    `gorm:"size:100" json:"display_name"`
	ThemeID     int       `json:"theme_id"` // dafont mtheme id
	ListingURL  string    `gorm:"size:500" json:"listing_url"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Category) TableName() string {
	return "categories"
}

// Font is one catalog entry, keyed by the slug derived from its page URL.
// Rows are created or refreshed by the updater and never deleted.
type Font struct {
	Slug         string    `gorm:"primaryKey;size:200" json:"slug"`
	Name         string    `gorm:"index;size:300" json:"name"`
	CategoryKey  string    `gorm:"index;size:50" json:"category_key"`
	PageURL      string    `gorm:"size:500" json:"page_url"`
	DownloadURL  string    `gorm:"size:500" json:"download_url"`
	PreviewToken string    `gorm:"size:200" json:"preview_token,omitempty"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
}

func (Font) TableName() string {
	return "fonts"
}

// FirstLetter returns the letter bucket for the font name: the uppercased
// first character when it is in A-Z, otherwise "#".
func (f *Font) FirstLetter() string {
	return LetterBucket(f.Name)
}

// SyncMeta is the single persistent record describing the last installed
// copy of the remote catalog database.
type SyncMeta struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ETag      string    `gorm:"size:200" json:"etag,omitempty"`
	SHA256    string    `gorm:"size:64" json:"sha256,omitempty"`
	Size      int64     `json:"size,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SyncMeta) TableName() string {
	return "sync_meta"
}

// PreviewTokenSet maps a slug to the ordered preview tokens derived from its
// archive. Created once per slug; re-derived only when absent.
type PreviewTokenSet struct {
	Slug      string    `gorm:"primaryKey;size:200" json:"slug"`
	Tokens    string    `gorm:"type:text" json:"tokens"` // JSON-encoded ordered list
	UpdatedAt time.Time `json:"updated_at"`
}

func (PreviewTokenSet) TableName() string {
	return "preview_tokens"
}

var slugStripRe = regexp.MustCompile(`[^a-z0-9_-]+`)

// NormalizeSlug lowercases s and strips every character outside [a-z0-9_-].
func NormalizeSlug(s string) string {
	return slugStripRe.ReplaceAllString(strings.ToLower(s), "")
}

// LetterBucket returns "#" when the uppercased first character of name is
// outside A-Z, otherwise that character.
func LetterBucket(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "#"
	}
	ch := strings.ToUpper(name[:1])
	if ch >= "A" && ch <= "Z" {
		return ch
	}
	return "#"
}
