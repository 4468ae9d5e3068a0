package db

import (
	"fmt"

	"github.com/nbousseta/atelier/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.MaintenanceTemplate{},
		&models.TemplateAction{},
		&models.TemplateCheckpoint{},
		&models.MaintenanceWorkflow{},
		&models.MaintenanceAction{},
		&models.ActionDep{},
		&models.ActionNote{},
		&models.MaintenanceCheckpoint{},
		&models.MaintenanceResource{},
	}
}

// AutoMigrate creates or updates all Atelier tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
