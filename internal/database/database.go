package database

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fontpeek/fontpeek/internal/entities"
)

var defaultCategories = []entities.Category{
	{Key: "fantasia", DisplayName: "Fantasia", ThemeID: 1},
	{Key: "estrangeiras", DisplayName: "Estrangeiras", ThemeID: 2},
	{Key: "tecno", DisplayName: "Tecno", ThemeID: 3},
	{Key: "gotica", DisplayName: "Gótica", ThemeID: 4},
	{Key: "basica", DisplayName: "Básica", ThemeID: 5},
	{Key: "escrita", DisplayName: "Escrita", ThemeID: 6},
	{Key: "dingbats", DisplayName: "Dingbats", ThemeID: 7},
	{Key: "festas", DisplayName: "Festas", ThemeID: 8},
}

type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the main catalog database, migrates the schema and seeds
// the static category set.
func NewDatabase(dbPath string, baseURL string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.Category{},
		&entities.Font{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db}

	if err := database.seedCategories(baseURL); err != nil {
		return nil, fmt.Errorf("failed to seed categories: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return database, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) seedCategories(baseURL string) error {
	for _, category := range defaultCategories {
		category.ListingURL = fmt.Sprintf("%s/pt/mtheme.php?id=%d", baseURL, category.ThemeID)

		var existing entities.Category
		result := d.DB.Where("key = ?", category.Key).First(&existing)
		if result.Error == gorm.ErrRecordNotFound {
			if err := d.DB.Create(&category).Error; err != nil {
				return fmt.Errorf("failed to create category %s: %w", category.Key, err)
			}
			log.Printf("Created category: %s", category.DisplayName)
		}
	}
	return nil
}

// GetCategoryByKey returns the category with the given key.
func (d *Database) GetCategoryByKey(key string) (*entities.Category, error) {
	var category entities.Category
	err := d.DB.Where("key = ?", key).First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// GetAllCategories returns every seeded category ordered by theme id.
func (d *Database) GetAllCategories() ([]entities.Category, error) {
	var categories []entities.Category
	err := d.DB.Order("theme_id ASC").Find(&categories).Error
	return categories, err
}
