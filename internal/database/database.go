package database

import (
	"fmt"
	"os"
	"path/filepath"

	"witweb-studio/config"
	"witweb-studio/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect opens the configured database and stores it in DB
func Connect(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "sqlite", "":
		if dir := filepath.Dir(cfg.DBPath); dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("ensure db dir: %w", err)
			}
		}
		// WAL plus a busy timeout lets the reconciler and request handlers write concurrently
		dialector = sqlite.Open(cfg.DBPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	DB = db
	return db, nil
}

// Migrate creates or updates every table the engine owns
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ProviderConfig{},
		&models.Task{},
		&models.TaskResult{},
		&models.ActiveTask{},
		&models.TaskTimer{},
		&models.HistoryRecord{},
		&models.Character{},
	)
}
