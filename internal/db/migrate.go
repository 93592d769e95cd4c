package db

import (
	"collaborative-document-service/internal/document"
	"collaborative-document-service/internal/history"

	"gorm.io/gorm"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&document.Document{},
		&history.EditHistory{},
	)
}
