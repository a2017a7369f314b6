package database

import (
	"fmt"
	"log"
	"os"

	"github.com/dawamr/dramabox-astro/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the database selected by DB_DRIVER (sqlite by default,
// postgres with DB_DSN) and runs the auto-migrations.
func Connect() (*gorm.DB, error) {
	driver := os.Getenv("DB_DRIVER")
	var dialector gorm.Dialector

	if driver == "postgres" {
		dsn := os.Getenv("DB_DSN")
		if dsn == "" {
			return nil, fmt.Errorf("DB_DSN is required for the postgres driver")
		}
		dialector = postgres.Open(dsn)
		log.Println("Connecting to PostgreSQL...")
	} else {
		dsn := os.Getenv("DB_PATH")
		if dsn == "" {
			dsn = "dramabox.db"
		}
		dialector = sqlite.Open(dsn)
		log.Println("Connecting to SQLite...")
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs every schema migration. Shared with cmd/migrator.
func Migrate(db *gorm.DB) error {
	if err := models.MigrateSeries(db); err != nil {
		return fmt.Errorf("migrate series: %w", err)
	}
	if err := models.MigrateHistory(db); err != nil {
		return fmt.Errorf("migrate history: %w", err)
	}
	if err := models.MigrateBookmarks(db); err != nil {
		return fmt.Errorf("migrate bookmarks: %w", err)
	}
	return nil
}
