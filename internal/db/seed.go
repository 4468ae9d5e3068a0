package db

import (
	"fmt"

	"github.com/nbousseta/atelier/internal/catalog"
	"github.com/nbousseta/atelier/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedCatalog upserts templates and resources from a parsed catalog file.
// Template actions and checkpoints are replaced wholesale so the store always
// mirrors the authored catalog; live workflows are untouched because they
// copy template data at creation time.
func SeedCatalog(db *gorm.DB, f *catalog.File) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, spec := range f.Templates {
			if err := seedTemplate(tx, spec); err != nil {
				return err
			}
		}
		for _, spec := range f.Resources {
			if err := seedResource(tx, spec); err != nil {
				return err
			}
		}
		return nil
	})
}

func seedTemplate(tx *gorm.DB, spec catalog.TemplateSpec) error {
	t := models.MaintenanceTemplate{
		ID:             spec.ID,
		Name:           spec.Name,
		Description:    spec.Description,
		Category:       spec.Category,
		EquipmentTypes: models.EncodeStrings(spec.EquipmentTypes),
		EstimatedTotal: spec.EstimatedTotal,
		Active:         !spec.Inactive,
	}

	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "category", "equipment_types", "estimated_total", "active"}),
	}).Create(&t)
	if result.Error != nil {
		return fmt.Errorf("db: seed template %q: %w", spec.ID, result.Error)
	}

	// Replace the action tree so removed steps don't linger.
	var oldActions []models.TemplateAction
	if err := tx.Where("template_id = ?", spec.ID).Find(&oldActions).Error; err != nil {
		return fmt.Errorf("db: load actions for template %q: %w", spec.ID, err)
	}
	for _, a := range oldActions {
		if err := tx.Where("action_id = ?", a.ID).Delete(&models.TemplateCheckpoint{}).Error; err != nil {
			return fmt.Errorf("db: clear checkpoints for template action %q: %w", a.ID, err)
		}
	}
	if err := tx.Where("template_id = ?", spec.ID).Delete(&models.TemplateAction{}).Error; err != nil {
		return fmt.Errorf("db: clear actions for template %q: %w", spec.ID, err)
	}

	for i, as := range spec.Actions {
		action := models.TemplateAction{
			ID:                as.ID,
			TemplateID:        spec.ID,
			Title:             as.Title,
			Description:       as.Description,
			Type:              as.Type,
			Priority:          as.Priority,
			EstimatedDuration: as.EstimatedDuration,
			Position:          i + 1,
			DependsOn:         models.EncodeStrings(as.DependsOn),
			Resources:         models.EncodeStrings(as.Resources),
			Skills:            models.EncodeStrings(as.Skills),
			Safety:            models.EncodeStrings(as.Safety),
			RequiresApproval:  as.RequiresApproval,
		}
		if err := tx.Create(&action).Error; err != nil {
			return fmt.Errorf("db: seed template action %q: %w", as.ID, err)
		}

		for j, cs := range as.Checkpoints {
			cp := models.TemplateCheckpoint{
				ID:          cs.ID,
				ActionID:    as.ID,
				Title:       cs.Title,
				Description: cs.Description,
				IsMandatory: cs.Mandatory,
				Position:    j + 1,
			}
			if err := tx.Create(&cp).Error; err != nil {
				return fmt.Errorf("db: seed checkpoint %q: %w", cs.ID, err)
			}
		}
	}
	return nil
}

func seedResource(tx *gorm.DB, spec catalog.ResourceSpec) error {
	r := models.MaintenanceResource{
		ID:       spec.ID,
		Name:     spec.Name,
		Type:     spec.Type,
		Quantity: spec.Quantity,
		Unit:     spec.Unit,
		UnitCost: spec.UnitCost,
		Supplier: spec.Supplier,
	}

	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "type", "quantity", "unit", "unit_cost", "supplier"}),
	}).Create(&r)
	if result.Error != nil {
		return fmt.Errorf("db: seed resource %q: %w", spec.ID, result.Error)
	}
	return nil
}
