package database

import (
	"fmt"

	"promptmart/internal/models"

	"gorm.io/gorm"
)

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Listing{},
		&models.Follow{},
		&models.Like{},
		&models.Favorite{},
		&models.Comment{},
		&models.Purchase{},
	}
}

// LedgerTableNames resolves the table name of every persistent model, in
// PersistentModels order.
func LedgerTableNames(db *gorm.DB) ([]string, error) {
	names := make([]string, 0, len(PersistentModels()))
	for _, model := range PersistentModels() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("parse %T: %w", model, err)
		}
		names = append(names, stmt.Schema.Table)
	}
	return names, nil
}
