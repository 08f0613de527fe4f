package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/loregraph/internal/data/journal"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&journal.Entry{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
