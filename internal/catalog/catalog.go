package catalog

import (
	"errors"
	"fmt"

	"github.com/nbousseta/atelier/internal/models"
	"gorm.io/gorm"
)

// ListTemplates returns active templates with their ordered actions and
// checkpoints. Pass includeInactive to also return retired templates.
func ListTemplates(db *gorm.DB, includeInactive bool) ([]models.MaintenanceTemplate, error) {
	q := preloadTemplate(db)
	if !includeInactive {
		q = q.Where("active = ?", true)
	}

	var templates []models.MaintenanceTemplate
	if err := q.Order("id ASC").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("catalog: list templates: %w", err)
	}
	return templates, nil
}

// GetTemplate returns a template by ID with actions and checkpoints loaded.
// An unknown ID yields (nil, nil), never an error.
func GetTemplate(db *gorm.DB, id string) (*models.MaintenanceTemplate, error) {
	var t models.MaintenanceTemplate
	err := preloadTemplate(db).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get template %s: %w", id, err)
	}
	return &t, nil
}

// ListResources returns resource catalog entries, optionally filtered by type.
func ListResources(db *gorm.DB, resourceType string) ([]models.MaintenanceResource, error) {
	q := db.Model(&models.MaintenanceResource{})
	if resourceType != "" {
		q = q.Where("type = ?", resourceType)
	}

	var resources []models.MaintenanceResource
	if err := q.Order("type ASC, name ASC").Find(&resources).Error; err != nil {
		return nil, fmt.Errorf("catalog: list resources: %w", err)
	}
	return resources, nil
}

// preloadTemplate attaches ordered action and checkpoint preloads.
func preloadTemplate(db *gorm.DB) *gorm.DB {
	return db.Preload("Actions", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC")
	}).Preload("Actions.Checkpoints", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC")
	})
}
